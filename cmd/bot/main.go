// Package main is the entry point for the tournament arena bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arena-bot/internal/bot"
	"arena-bot/internal/config"
	"arena-bot/internal/game"
	"arena-bot/internal/metrics"
	"arena-bot/internal/model"
	"arena-bot/internal/pkg/db"
	"arena-bot/internal/pkg/lock"
	"arena-bot/internal/repository"
	"arena-bot/internal/service"
	"arena-bot/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, keeping info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(nil)

	var (
		pool      *db.Pool
		pinger    metrics.Pinger
		poolStats metrics.PoolStatter
		flushWG   sync.WaitGroup
	)
	flushCtx, stopFlusher := context.WithCancel(ctx)
	defer stopFlusher()

	if cfg.Database.Enabled {
		pool, err = db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()
		pinger = pool
		poolStats = pool

		if err := repository.Migrate(ctx, pool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		snapshots := repository.NewSnapshotRepository(pool.Pool)
		loaded, err := snapshots.Load(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load arena state")
		}
		st.Restore(loaded)

		flushWG.Add(1)
		go func() {
			defer flushWG.Done()
			st.RunFlusher(flushCtx, snapshots, cfg.Arena.PersistInterval)
		}()
	} else {
		log.Warn().Msg("Database disabled, arena state lives in memory only")
	}

	directory := service.NewDirectoryService(st)
	seed, err := buildSeed(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid seed accounts")
	}
	if err := directory.ApplySeed(ctx, seed); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed accounts")
	}

	generator, err := service.NewGeminiGenerator(ctx, service.GeminiConfig{
		APIKey:      cfg.Strategy.APIKey,
		Model:       cfg.Strategy.Model,
		Temperature: cfg.Strategy.Temperature,
		TopP:        cfg.Strategy.TopP,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create strategy generator")
	}
	if cfg.Strategy.APIKey == "" {
		log.Warn().Msg("No strategy API key configured, /strategy will answer with a fallback")
	}

	m := metrics.New(st, poolStats)
	deps := &bot.Dependencies{
		Config:      cfg,
		Directory:   directory,
		Sessions:    service.NewSessionManager(directory),
		Accounts:    service.NewAccountService(st),
		Matches:     service.NewMatchService(st, game.DefaultRegistry, cfg.Arena.RoomWindow),
		Withdrawals: service.NewWithdrawalService(st),
		Ranking:     service.NewRankingService(st),
		Strategy:    service.NewStrategyService(st, generator, cfg.Strategy.Timeout),
		Metrics:     m,
		InFlight:    lock.NewInFlight(),
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           metrics.NewRouter(st, pinger, m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("Ops endpoint listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Ops endpoint stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ops endpoint shutdown failed")
	}

	// The flusher saves once more on cancellation; wait before closing the pool.
	stopFlusher()
	flushWG.Wait()
	log.Info().Uint64("version", st.Version()).Msg("Bot stopped gracefully")
}

// buildSeed turns the configured owner, admins and demo users into a directory seed.
func buildSeed(cfg *config.Config) (service.Seed, error) {
	seed := service.Seed{
		Owner: model.Owner{
			ID:          cfg.Owner.ID,
			Credentials: model.Credentials{Username: cfg.Owner.Username, Password: cfg.Owner.Password},
		},
	}
	for _, a := range cfg.Admins {
		seed.Admins = append(seed.Admins, model.Admin{
			ID:          a.ID,
			Credentials: model.Credentials{Username: a.Username, Password: a.Password},
		})
	}
	for _, u := range cfg.Arena.DemoUsers {
		balance := decimal.Zero
		if u.OpeningBalance != "" {
			var err error
			if balance, err = decimal.NewFromString(u.OpeningBalance); err != nil {
				return service.Seed{}, fmt.Errorf("demo user %q opening balance: %w", u.Username, err)
			}
		}
		seed.Users = append(seed.Users, service.SeedUser{
			ID:             u.ID,
			Username:       u.Username,
			Password:       u.Password,
			Email:          u.Email,
			OpeningBalance: balance,
		})
	}
	return seed, nil
}
