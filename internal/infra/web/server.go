package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"restaurant-loyalty/internal/config"
	"restaurant-loyalty/internal/infra/logging"
	red "restaurant-loyalty/internal/infra/redis"
	"restaurant-loyalty/internal/usecase"
)

// Server exposes the loyalty API. Request parsing and authorization happen
// here; everything behind the use-case boundary receives validated,
// already-scoped inputs.
type Server struct {
	balanceUC    *usecase.BalanceUseCase
	catalogUC    *usecase.CatalogUseCase
	redemptionUC *usecase.RedemptionUseCase
	auth         *AuthManager
	limiter      *red.RateLimiter
	loyaltyCfg   config.LoyaltyConfig
	log          *zerolog.Logger
}

func NewServer(
	balanceUC *usecase.BalanceUseCase,
	catalogUC *usecase.CatalogUseCase,
	redemptionUC *usecase.RedemptionUseCase,
	auth *AuthManager,
	limiter *red.RateLimiter,
	loyaltyCfg config.LoyaltyConfig,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		balanceUC:    balanceUC,
		catalogUC:    catalogUC,
		redemptionUC: redemptionUC,
		auth:         auth,
		limiter:      limiter,
		loyaltyCfg:   loyaltyCfg,
		log:          &l,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Use(s.auth.Middleware)

		r.Route("/rewards", func(r chi.Router) {
			r.With(RequireRole(RoleAdmin)).Post("/", s.handleRewardCreate)
			r.Get("/", s.handleRewardList)
			r.Get("/{id}", s.handleRewardGet)
			r.With(RequireRole(RoleAdmin)).Patch("/{id}", s.handleRewardPatch)
			r.With(RequireRole(RoleAdmin)).Delete("/{id}", s.handleRewardDelete)
			r.With(RequireRole(RoleAdmin)).Post("/{id}/restock", s.handleRewardRestock)
		})

		r.Route("/balances", func(r chi.Router) {
			r.With(RequireRole(RoleStaff, RoleAdmin)).Post("/earn", s.handleEarn)
			r.Get("/{customerID}", s.handleBalanceGet)
		})

		r.Route("/redemptions", func(r chi.Router) {
			r.With(RequireRole(RoleCustomer)).Post("/", s.handleRedemptionCreate)
			r.With(RequireRole(RoleCustomer)).Post("/{id}/activate", s.handleRedemptionActivate)
			r.With(RequireRole(RoleStaff, RoleAdmin)).Post("/complete", s.handleRedemptionComplete)
			r.Get("/", s.handleRedemptionList)
		})

		r.With(RequireRole(RoleStaff, RoleAdmin)).Get("/stats", s.handleStats)
	})

	return r
}

// requestLogger tags each request with a trace id and logs it on completion.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), ulid.Make().String())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
