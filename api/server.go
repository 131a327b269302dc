/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Instrument: zap request log + Prometheus request metrics
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for browser clients

ROUTE GROUPS:
  /api/assets/*      Token ledger
  /api/swaps/*       Pools, liquidity, trades, quotes
  /api/currency/*    Base currency balances and faucet
  /api/events        Recent committed events
  /api/audit         On-demand bookkeeping audit
  /api/scenarios/*   Demo scenarios
  /metrics           Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(instrument(h.log, h.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderAccount},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Token ledger
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", h.CreateAsset)
			r.Get("/{id}", h.GetAsset)
			r.Get("/{id}/balances/{account}", h.GetAssetBalance)
			r.Get("/{id}/allowances/{owner}/{spender}", h.GetAllowance)
			r.Post("/{id}/transfer", h.Transfer)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/transfer-from", h.TransferFrom)
			r.Post("/{id}/mint", h.Mint)
			r.Post("/{id}/burn", h.Burn)
		})

		// Pools
		r.Route("/swaps", func(r chi.Router) {
			r.Get("/", h.ListSwaps)
			r.Post("/", h.CreateSwap)
			r.Get("/{id}", h.GetSwap)
			r.Post("/{id}/liquidity", h.AddLiquidity)
			r.Post("/{id}/liquidity/remove", h.RemoveLiquidity)
			r.Post("/{id}/trades/{kind}", h.Trade)
			r.Get("/{id}/quote/{kind}", h.Quote)
		})

		// Base currency
		r.Route("/currency", func(r chi.Router) {
			r.Post("/deposit", h.Deposit)
			r.Get("/{account}", h.GetCurrency)
		})

		r.Get("/events", h.ListEvents)
		r.Get("/audit", h.RunAudit)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	return r
}
