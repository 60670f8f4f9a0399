package middleware

import (
	"net/http"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

const (
	CSRFHeaderName = "X-CSRF-Token"
	CSRFCookieName = "csrf_token"
)

// CSRFOptions selects the validation mode and the exempt paths.
type CSRFOptions struct {
	// DoubleSubmit switches to the stateless cookie-vs-header comparison.
	// Used where session continuity across the CSRF store is not
	// guaranteed; the default mode is the stored single-use token.
	DoubleSubmit bool
	// ExemptPaths bypass CSRF entirely. The payment webhook is exempt
	// because it authenticates via its own HMAC signature scheme.
	ExemptPaths []string
}

// CSRFProtect validates anti-forgery tokens on mutating methods; safe
// methods pass through untouched.
func CSRFProtect(csrf services.CSRFService, monitor services.MonitorService, opts CSRFOptions) func(http.Handler) http.Handler {
	exempt := make(map[string]struct{}, len(opts.ExemptPaths))
	for _, p := range opts.ExemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get(CSRFHeaderName)
			if presented == "" {
				logCSRFViolation(r, monitor, utils.ErrCodeCSRFTokenMissing)
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeCSRFTokenMissing,
					"CSRF token required", nil,
				)
				return
			}

			if opts.DoubleSubmit {
				cookieVal := ""
				if c, err := r.Cookie(CSRFCookieName); err == nil {
					cookieVal = c.Value
				}
				if !csrf.ValidateDoubleSubmit(cookieVal, presented) {
					logCSRFViolation(r, monitor, utils.ErrCodeCSRFDoubleSubmit)
					utils.RespondErrorWithCode(
						w, http.StatusForbidden, utils.ErrCodeCSRFDoubleSubmit,
						"CSRF token mismatch", nil,
					)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !csrf.Validate(CSRFOwnerKey(r), presented) {
				logCSRFViolation(r, monitor, utils.ErrCodeCSRFTokenInvalid)
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeCSRFTokenInvalid,
					"CSRF token invalid or already used", nil,
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logCSRFViolation(r *http.Request, monitor services.MonitorService, code string) {
	monitor.LogEvent(r.Context(), models.SecurityEvent{
		Kind:      models.EventCSRFViolation,
		IP:        utils.ClientIP(r),
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Method:    r.Method,
		Details:   map[string]any{"code": code},
		Blocked:   true,
	})
}
