package middleware

import (
	"net/http"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// IPBlockGate rejects every request from an IP on the monitor's block list
// until the block's TTL elapses or an admin unblocks it.
func IPBlockGate(monitor services.MonitorService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			if ip != "" && monitor.IsIPBlocked(r.Context(), ip) {
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeIPBlocked,
					"Access from this address is blocked", nil,
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
