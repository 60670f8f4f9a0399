package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/config"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/controllers"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/middleware"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
)

const (
	HealthPath         = "/health"
	LoginPath          = "/auth/v1/login"
	PaymentWebhookPath = "/api/v1/payments/webhook"
)

// Deps collects everything the router needs. Constructed once at process
// start and per test, so no hidden singletons are involved.
type Deps struct {
	Cfg        *config.Config
	KV         kvstore.Store
	Users      repositories.UserRepository
	Tokens     services.TokenService
	Sessions   services.SessionService
	CSRF       services.CSRFService
	BruteForce services.BruteForceService
	Monitor    services.MonitorService
	Auth       services.AuthService
	Webhooks   services.WebhookVerifier
}

// BuildRouter wires the middleware pipeline in its mandatory order:
// headers -> IP block -> global rate limit -> speed limit -> sanitize ->
// CSRF -> (per-route limits / brute-force gate) -> auth -> handler ->
// response-phase scan and event emission.
func BuildRouter(d Deps) *mux.Router {
	authController := controllers.NewAuthController(d.Auth, d.Users)
	csrfController := controllers.NewCSRFController(d.CSRF)
	securityController := controllers.NewSecurityController(d.Monitor, d.Sessions)
	webhookController := controllers.NewWebhookController(d.Webhooks)
	healthController := controllers.NewHealthController()

	router := mux.NewRouter()

	// Outermost first: mux.Use applies in registration order.
	router.Use(middleware.SecurityHeaders)
	router.Use(middleware.Telemetry(d.Monitor, middleware.TelemetryOptions{
		AuthPathPrefixes: []string{"/auth/"},
		HighRiskPaths: []string{
			"/security/v1/dashboard",
			"/security/v1/sessions",
			PaymentWebhookPath,
		},
	}))
	router.Use(middleware.IPBlockGate(d.Monitor))
	router.Use(middleware.RateLimit(d.KV, d.Monitor, middleware.RateLimitOptions{
		KeyPrefix: "rl:global",
		Window:    d.Cfg.GlobalRateWindow,
		Max:       d.Cfg.GlobalRateMax,
		SkipPaths: []string{HealthPath},
	}))
	router.Use(middleware.SpeedLimit(d.KV, middleware.SpeedLimitOptions{
		KeyPrefix: "sl:global",
		Window:    d.Cfg.GlobalRateWindow,
		After:     d.Cfg.SpeedLimitAfter,
		DelayStep: d.Cfg.SpeedLimitStep,
		MaxDelay:  d.Cfg.SpeedLimitMax,
	}))
	router.Use(middleware.SanitizeInput)
	router.Use(middleware.CSRFProtect(d.CSRF, d.Monitor, middleware.CSRFOptions{
		// Login carries no prior session to bind a token to and is guarded
		// by its own rate and brute-force gates; the webhook authenticates
		// via HMAC signature instead.
		ExemptPaths: []string{LoginPath, PaymentWebhookPath},
	}))

	router.HandleFunc(HealthPath, healthController.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/csrf-token", csrfController.IssueToken).Methods(http.MethodGet)
	router.HandleFunc(PaymentWebhookPath, webhookController.PaymentWebhook).Methods(http.MethodPost)

	authRouter := router.PathPrefix("/auth/v1").Subrouter()
	authRouter.Use(middleware.RateLimit(d.KV, d.Monitor, middleware.RateLimitOptions{
		KeyPrefix:       "rl:auth",
		Window:          d.Cfg.AuthRateWindow,
		Max:             d.Cfg.AuthRateMax,
		RefundOnSuccess: true,
	}))
	authRouter.HandleFunc("/login", authController.Login).Methods(http.MethodPost)

	authenticated := middleware.Authenticate(d.Tokens, d.Sessions, d.Users, d.Monitor)

	protected := router.PathPrefix("/auth/v1").Subrouter()
	protected.Use(authenticated)
	protected.HandleFunc("/logout", authController.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/me", authController.Me).Methods(http.MethodGet)

	admin := router.PathPrefix("/security/v1").Subrouter()
	admin.Use(middleware.RateLimit(d.KV, d.Monitor, middleware.RateLimitOptions{
		KeyPrefix: "rl:admin",
		Window:    d.Cfg.AdminRateWindow,
		Max:       d.Cfg.AdminRateMax,
	}))
	admin.Use(authenticated)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/dashboard", securityController.Dashboard).Methods(http.MethodGet)
	admin.HandleFunc("/events", securityController.RecentEvents).Methods(http.MethodGet)
	admin.HandleFunc("/block-ip", securityController.BlockIP).Methods(http.MethodPost)
	admin.HandleFunc("/unblock-ip", securityController.UnblockIP).Methods(http.MethodPost)
	admin.HandleFunc("/sessions", securityController.ListSessions).Methods(http.MethodGet)
	admin.HandleFunc("/sessions/{userId}/logout", securityController.ForceLogout).Methods(http.MethodPost)

	return router
}
