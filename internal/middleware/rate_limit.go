package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// RateLimitOptions configures one fixed-window per-IP ceiling.
type RateLimitOptions struct {
	KeyPrefix string
	Window    time.Duration
	Max       int
	// SkipPaths are exempt entirely (health checks).
	SkipPaths []string
	// RefundOnSuccess decrements the counter when the response status is
	// below 400, so only failed or abandoned requests count against the
	// ceiling. Used on authentication routes.
	RefundOnSuccess bool
}

// statusRecorder lets post-handler logic see the response status.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

// RateLimit enforces a fixed-window request ceiling per client IP, backed
// by the atomic counter store. On breach it responds 429 with a retry-after
// hint and emits a security event; counter-store failures fail open.
func RateLimit(store kvstore.Store, monitor services.MonitorService, opts RateLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range opts.SkipPaths {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			ip := utils.ClientIP(r)
			key := fmt.Sprintf("%s:%s", opts.KeyPrefix, ip)

			count, err := store.Incr(r.Context(), key, opts.Window)
			if err != nil {
				utils.Logger.WithError(err).Error("Rate limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(opts.Max) {
				retryAfter, terr := store.TTL(r.Context(), key)
				if terr != nil || retryAfter <= 0 {
					retryAfter = opts.Window
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
				monitor.LogEvent(r.Context(), models.SecurityEvent{
					Kind:      models.EventRateLimitExceeded,
					IP:        ip,
					UserAgent: r.UserAgent(),
					Path:      r.URL.Path,
					Method:    r.Method,
					Details: map[string]any{
						"limit":  opts.Max,
						"window": opts.Window.String(),
					},
					Blocked: true,
				})
				utils.RespondErrorWithCode(
					w, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded,
					"Too many requests, slow down",
					map[string]any{"retry_after_seconds": int(retryAfter.Seconds())},
				)
				return
			}

			if !opts.RefundOnSuccess {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status != 0 && rec.status < 400 {
				if _, err := store.Decr(r.Context(), key); err != nil {
					utils.Logger.WithError(err).Debug("Rate limit refund failed")
				}
			}
		})
	}
}
