package main

import (
	"net/http"

	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/app"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/config"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/routes"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

func main() {
	utils.InitLogger(config.DefaultAppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	userRepo := repositories.NewUserRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.TokenIssuer, cfg.TokenExpiry)
	sessionService := services.NewSessionService(cfg.SessionIdleTimeout, cfg.TokenExpiry)
	csrfService := services.NewCSRFService(cfg.CSRFTokenExpiry)
	bruteForceService := services.NewBruteForceService(application.KV, cfg.MaxLoginAttempts, cfg.LockoutDuration)
	monitorService := services.NewMonitorService(application.KV, cfg.Monitor)
	webhookVerifier := services.NewWebhookVerifier(cfg.WebhookSecret)

	authService := services.NewAuthService(
		userRepo,
		tokenService,
		sessionService,
		bruteForceService,
		monitorService,
	)

	//----------------------------------------------------------------------
	// Router
	//----------------------------------------------------------------------
	router := routes.BuildRouter(routes.Deps{
		Cfg:        cfg,
		KV:         application.KV,
		Users:      userRepo,
		Tokens:     tokenService,
		Sessions:   sessionService,
		CSRF:       csrfService,
		BruteForce: bruteForceService,
		Monitor:    monitorService,
		Auth:       authService,
		Webhooks:   webhookVerifier,
	})

	//----------------------------------------------------------------------
	// Periodic maintenance via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// idle session sweep
	_, schErr1 := c.AddFunc("@every 30m", func() {
		if n := sessionService.Sweep(); n > 0 {
			utils.Logger.Infof("Session sweep removed %d idle sessions", n)
		}
	})
	if schErr1 != nil {
		utils.Logger.WithError(schErr1).Fatal("Failed to schedule session sweep job")
	}

	// expired anti-forgery tokens
	_, schErr2 := c.AddFunc("@every 5m", func() {
		if n := csrfService.Cleanup(); n > 0 {
			utils.Logger.Infof("CSRF cleanup removed %d expired tokens", n)
		}
	})
	if schErr2 != nil {
		utils.Logger.WithError(schErr2).Fatal("Failed to schedule CSRF cleanup job")
	}

	// revocation entries whose tokens have expired on their own
	_, schErr3 := c.AddFunc("@hourly", func() {
		if n := tokenService.PruneRevoked(); n > 0 {
			utils.Logger.Infof("Revocation prune removed %d entries", n)
		}
	})
	if schErr3 != nil {
		utils.Logger.WithError(schErr3).Fatal("Failed to schedule revocation prune job")
	}

	// bounded in-memory alert history
	_, schErr4 := c.AddFunc("@hourly", func() {
		if n := monitorService.TrimRetention(); n > 0 {
			utils.Logger.Infof("Alert retention trim removed %d records", n)
		}
	})
	if schErr4 != nil {
		utils.Logger.WithError(schErr4).Fatal("Failed to schedule alert retention job")
	}

	// The redis store expires keys natively; only the in-process store
	// needs an explicit sweep.
	if mem, ok := application.KV.(*kvstore.MemoryStore); ok {
		_, schErr5 := c.AddFunc("@every 10m", func() {
			if n := mem.Sweep(); n > 0 {
				utils.Logger.Infof("Counter store sweep removed %d expired keys", n)
			}
		})
		if schErr5 != nil {
			utils.Logger.WithError(schErr5).Fatal("Failed to schedule counter store sweep job")
		}
	}

	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-CSRF-Token", "X-Webhook-Signature"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
