package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verify-nosql/internal/application/delivery"
	"github.com/go-verify-nosql/internal/application/verification"
	"github.com/go-verify-nosql/internal/config"
	"github.com/go-verify-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-verify-nosql/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	// The rate limiter keys on RemoteAddr, so forwarded headers are only
	// honoured when the deployment says a trusted proxy sets them.
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 per client IP.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verifySvc := verification.NewService(verification.ServiceDeps{
		Store: deps.VerificationStore,
		Config: verification.Config{
			DefaultTTL:        cfg.Verification.TTL,
			DefaultCodeLength: cfg.Verification.CodeLength,
			ResendInterval:    cfg.Verification.ResendInterval,
		},
	})
	deliverySvc := delivery.NewService(deps.Mailer)

	// Keep the interface nil when the provider is absent.
	var grants handler.GrantIssuer
	if deps.JWTProvider != nil {
		grants = deps.JWTProvider
	}

	healthH := handler.NewHealthHandler()
	codesH := handler.NewVerificationCodeHandler(verifySvc, deliverySvc, grants)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/verification-codes/{action}", codesH.Action)

		// Grant-scoped cancel of a re-requested code; see VerificationCodeHandler.Delete.
		if deps.JWTProvider != nil {
			r.With(appmiddleware.Auth(deps.JWTProvider)).Delete("/verification-codes", codesH.Delete)
		}
	})

	return r
}
