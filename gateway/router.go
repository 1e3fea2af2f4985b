package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relicpool/factory"
	"relicpool/observability/metrics"
)

// Config wires the gateway's collaborators.
type Config struct {
	Factory  *factory.Factory
	EventLog *EventLog
	Logger   *slog.Logger
}

// New builds the HTTP handler exposing the read-only query surface: pool
// summaries, per-depositor staked assets and pending rewards, asset scores,
// recent events, plus health and metrics endpoints.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	if cfg.Logger != nil {
		r.Use(AccessLog(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	h := &handlers{factory: cfg.Factory, eventLog: cfg.EventLog, metrics: metrics.Staking()}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/pools", h.listPools)
		r.Get("/pools/{pool}", h.poolSummary)
		r.Get("/pools/{pool}/depositors/{depositor}/assets", h.stakedAssets)
		r.Get("/pools/{pool}/depositors/{depositor}/pending", h.pendingReward)
		r.Get("/pools/{pool}/assets/{assetID}/score", h.assetScore)
		r.Get("/events", h.recentEvents)
	})
	return r
}
