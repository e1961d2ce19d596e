package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// Messages returned in place of a strategy when generation fails.
const (
	StrategyUnavailableMsg = "Could not connect to the AI service. The API key is missing or invalid. Please contact the platform administrator."
	StrategyFailedMsg      = "An unexpected error occurred while generating the AI strategy. Please try again later."
)

// ErrNoAPIKey is returned by generators that have no credentials configured.
var ErrNoAPIKey = errors.New("strategy generator has no API key")

// MatchSummary is the part of a match the strategy prompt is built from.
type MatchSummary struct {
	Title    string
	GameMode model.GameMode
	SubMode  model.SubMode
	Map      string
}

// Generator produces free text for a prompt. Implementations make one attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures GeminiGenerator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	TopP        float32
}

// GeminiGenerator generates text with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiGenerator creates a Gemini-backed generator. Without an API key it
// returns a generator whose every call fails with ErrNoAPIKey.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.APIKey == "" {
		return &GeminiGenerator{cfg: cfg}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, cfg: cfg}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrNoAPIKey
	}

	genCfg := &genai.GenerateContentConfig{}
	if g.cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(g.cfg.Temperature)
	}
	if g.cfg.TopP > 0 {
		genCfg.TopP = genai.Ptr(g.cfg.TopP)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// StrategyService produces pre-match strategy text. It reads the match under
// the store lock and calls the generator outside it.
type StrategyService struct {
	store   *store.Store
	gen     Generator
	timeout time.Duration
}

// NewStrategyService creates a new StrategyService instance.
func NewStrategyService(st *store.Store, gen Generator, timeout time.Duration) *StrategyService {
	return &StrategyService{store: st, gen: gen, timeout: timeout}
}

// StrategyPrompt builds the prompt for a match.
func StrategyPrompt(m MatchSummary) string {
	mapName := m.Map
	if mapName == "" {
		mapName = "any map"
	}
	return fmt.Sprintf(`You are an expert Free Fire strategist. Give a concise pre-match strategy for a %s match, sub-mode %s, on %s.
Structure the answer in three short sections:
1. Landing and early game
2. Mid game rotations and positioning
3. Final circle and team play
Keep it under 200 words.`, m.GameMode, m.SubMode, mapName)
}

// Strategy returns strategy text for the match. Generation failures are
// reported as one of the fallback messages, never as an error; only an unknown
// match is an error.
func (s *StrategyService) Strategy(ctx context.Context, matchID string) (string, error) {
	var (
		summary MatchSummary
		found   bool
	)
	s.store.View(func(st *store.State) {
		if m, ok := st.Match(matchID); ok {
			summary = MatchSummary{Title: m.Title, GameMode: m.GameMode, SubMode: m.SubMode, Map: m.Map}
			found = true
		}
	})
	if !found {
		return "", fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}

	if s.gen == nil {
		return StrategyUnavailableMsg, nil
	}

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.gen.Generate(genCtx, StrategyPrompt(summary))
	if err != nil {
		log.Warn().Err(err).Str("match_id", matchID).Msg("Strategy generation failed")
		if errors.Is(err, ErrNoAPIKey) || strings.Contains(strings.ToLower(err.Error()), "api key") {
			return StrategyUnavailableMsg, nil
		}
		return StrategyFailedMsg, nil
	}
	return text, nil
}
