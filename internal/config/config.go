package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// Config holds all application configuration.
type Config struct {
	AppName string
	AppPort string
	AppURL  string

	DBUrl    string
	RedisURL string // empty selects the in-process store

	JWTSecret     []byte
	TokenIssuer   string
	TokenExpiry   time.Duration
	WebhookSecret []byte

	SessionIdleTimeout time.Duration
	SessionSweepEvery  time.Duration

	CSRFTokenExpiry  time.Duration
	CSRFCleanupEvery time.Duration

	MaxLoginAttempts int
	LockoutDuration  time.Duration

	GlobalRateWindow time.Duration
	GlobalRateMax    int
	AuthRateWindow   time.Duration
	AuthRateMax      int
	AdminRateWindow  time.Duration
	AdminRateMax     int

	SpeedLimitAfter int
	SpeedLimitStep  time.Duration
	SpeedLimitMax   time.Duration

	Monitor services.MonitorConfig
}

// Defaults for every window and threshold. Env vars override the handful
// that vary between environments; the rest are deliberate constants.
const (
	DefaultAppName  = "skillgame-backend"
	DefaultAppPort  = "8080"
	DefaultTokenTTL = 7 * 24 * time.Hour

	SessionIdleTimeout = time.Hour
	SessionSweepEvery  = 30 * time.Minute

	CSRFTokenExpiry  = time.Hour
	CSRFCleanupEvery = 5 * time.Minute

	MaxLoginAttempts = 5
	LockoutDuration  = 30 * time.Minute

	GlobalRateWindow = 15 * time.Minute
	GlobalRateMax    = 1000
	AuthRateWindow   = 15 * time.Minute
	AuthRateMax      = 5
	AdminRateWindow  = 5 * time.Minute
	AdminRateMax     = 100

	SpeedLimitAfter = 100
	SpeedLimitStep  = 500 * time.Millisecond
	SpeedLimitMax   = 20 * time.Second
)

// LoadConfig reads the environment (with .env support for local runs) and
// fails fast on missing required secrets.
func LoadConfig() *Config {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		utils.Logger.Fatal("JWT_SECRET env var is missing")
	}
	if len(jwtSecret) < 32 {
		utils.Logger.Fatal("JWT_SECRET must be at least 32 bytes")
	}

	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	if webhookSecret == "" {
		utils.Logger.Fatal("WEBHOOK_SECRET env var is missing")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	tokenTTL := DefaultTokenTTL
	if raw := os.Getenv("TOKEN_TTL_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			utils.Logger.Fatalf("Invalid TOKEN_TTL_HOURS: %q", raw)
		}
		tokenTTL = time.Duration(hours) * time.Hour
	}

	return &Config{
		AppName: envOr("APP_NAME", DefaultAppName),
		AppPort: envOr("APP_PORT", DefaultAppPort),
		AppURL:  os.Getenv("APP_URL"),

		DBUrl:    dbURL,
		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret:     []byte(jwtSecret),
		TokenIssuer:   envOr("TOKEN_ISSUER", "SkillGame"),
		TokenExpiry:   tokenTTL,
		WebhookSecret: []byte(webhookSecret),

		SessionIdleTimeout: SessionIdleTimeout,
		SessionSweepEvery:  SessionSweepEvery,

		CSRFTokenExpiry:  CSRFTokenExpiry,
		CSRFCleanupEvery: CSRFCleanupEvery,

		MaxLoginAttempts: MaxLoginAttempts,
		LockoutDuration:  LockoutDuration,

		GlobalRateWindow: GlobalRateWindow,
		GlobalRateMax:    GlobalRateMax,
		AuthRateWindow:   AuthRateWindow,
		AuthRateMax:      AuthRateMax,
		AdminRateWindow:  AdminRateWindow,
		AdminRateMax:     AdminRateMax,

		SpeedLimitAfter: SpeedLimitAfter,
		SpeedLimitStep:  SpeedLimitStep,
		SpeedLimitMax:   SpeedLimitMax,

		Monitor: services.DefaultMonitorConfig(),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
