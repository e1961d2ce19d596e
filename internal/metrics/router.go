package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"arena-bot/internal/store"
)

// Pinger checks a backing dependency. *db.Pool satisfies it.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Health is the /healthz response body.
type Health struct {
	Status       string `json:"status"`
	StateVersion uint64 `json:"state_version"`
	Dirty        bool   `json:"dirty"`
	Database     string `json:"database"`
}

// NewRouter builds the ops router. db may be nil when persistence is off.
func NewRouter(st *store.Store, db Pinger, m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		h := Health{Status: "ok", StateVersion: st.Version(), Dirty: st.Dirty(), Database: "disabled"}
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				log.Warn().Err(err).Msg("Database health check failed")
				h.Status, h.Database = "degraded", "unreachable"
				code = http.StatusServiceUnavailable
			} else {
				h.Database = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(h)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))

	return r
}
