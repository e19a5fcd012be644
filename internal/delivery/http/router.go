package http

import (
	"log/slog"
	"net/http"

	_ "bannedemails/docs"
	"bannedemails/internal/delivery/http/controllers"
	"bannedemails/internal/delivery/http/middleware"
	"bannedemails/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps holds everything NewRouter wires into the mux.
type RouterDeps struct {
	Logger             *slog.Logger
	BanController      *controllers.BanController
	CheckoutController *controllers.CheckoutController
	HealthController   *controllers.HealthController
	Verifier           domain.TokenVerifier
	AllowedOrigins     []string
	// Registry receives HTTP metrics and backs /metrics. Nil uses the default registry.
	Registry *prometheus.Registry
}

// NewRouter initializes the HTTP router with all application routes and
// wraps it in the middleware chain.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	mux := http.NewServeMux()
	admin := middleware.RequireRole(deps.Verifier, domain.RoleAdmin, deps.Logger)
	optionalAuth := middleware.OptionalAuth(deps.Verifier)

	// Admin
	mux.HandleFunc("GET "+controllers.BannedEmailsPath, admin(deps.BanController.RenderForm))
	mux.HandleFunc("POST "+controllers.BannedEmailsPath, admin(deps.BanController.Save))
	mux.HandleFunc("GET /api/banned-emails", admin(deps.BanController.List))

	// Checkout hook
	mux.HandleFunc("POST /checkout/validate", optionalAuth(deps.CheckoutController.ValidateCheckout))

	// Ops
	mux.HandleFunc("GET /healthz", deps.HealthController.Health)
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		reg, gatherer = deps.Registry, deps.Registry
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	httpMetrics, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}
	var handler http.Handler = httpMetrics.Middleware(mux)
	handler = middleware.CORS(deps.AllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(deps.Logger, handler)
	handler = middleware.RequestID(handler)
	return handler, nil
}
