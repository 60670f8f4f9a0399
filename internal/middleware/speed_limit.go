package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// SpeedLimitOptions configures the soft throttle that degrades automated
// abuse with artificial latency instead of hard-rejecting.
type SpeedLimitOptions struct {
	KeyPrefix string
	Window    time.Duration
	// After this many requests in the window each further request is
	// delayed by DelayStep, capped at MaxDelay.
	After     int
	DelayStep time.Duration
	MaxDelay  time.Duration
}

// SpeedLimit delays requests past a per-IP threshold within the window.
// Unlike RateLimit it never rejects; legitimate bursts only slow down.
func SpeedLimit(store kvstore.Store, opts SpeedLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			key := fmt.Sprintf("%s:%s", opts.KeyPrefix, ip)

			count, err := store.Incr(r.Context(), key, opts.Window)
			if err != nil {
				utils.Logger.WithError(err).Error("Speed limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if excess := count - int64(opts.After); excess > 0 {
				delay := time.Duration(excess) * opts.DelayStep
				if delay > opts.MaxDelay {
					delay = opts.MaxDelay
				}
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
