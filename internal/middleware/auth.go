package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// Authenticate verifies the bearer token, resolves the account, and runs
// the session state machine. On a session violation or idle expiry the
// presented token is revoked before the 401 goes out, so it can never be
// replayed against a fresh session.
func Authenticate(
	tokens services.TokenService,
	sessions services.SessionService,
	users repositories.UserRepository,
	monitor services.MonitorService,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractBearerToken(r)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeNoToken,
					"Authentication required", nil,
				)
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				code := utils.ErrCodeInvalidToken
				switch {
				case errors.Is(err, services.ErrTokenRevoked):
					code = utils.ErrCodeBlacklistedToken
				case errors.Is(err, services.ErrTokenExpired):
					code = utils.ErrCodeTokenExpired
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, code, "Invalid or expired token", nil,
				)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeInvalidToken, "Invalid subject", nil,
				)
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				// Credential lookup is a hard dependency of auth: fail closed.
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUserNotFound,
					"Account lookup failed", nil, err,
				)
				return
			}
			if user == nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUserNotFound, "Account not found", nil,
				)
				return
			}
			if !user.CanAuthenticate() {
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeAccountSuspended,
					"Account is suspended or banned", nil,
				)
				return
			}

			ip := utils.ClientIP(r)
			sessionID, err := sessions.TouchOrCreate(claims.SessionID, claims.UserID, ip, r.UserAgent())
			if err != nil {
				tokens.Revoke(tokenStr)
				if errors.Is(err, services.ErrSessionViolation) {
					monitor.LogEvent(r.Context(), models.SecurityEvent{
						Kind:      models.EventSessionViolation,
						IP:        ip,
						UserAgent: r.UserAgent(),
						UserID:    claims.UserID,
						Path:      r.URL.Path,
						Method:    r.Method,
						Blocked:   true,
					})
					utils.RespondErrorWithCode(
						w, http.StatusUnauthorized, utils.ErrCodeSessionViolation,
						"Session ownership violation", nil,
					)
					return
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeSessionExpired,
					"Session expired, log in again", nil,
				)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyUserRole, string(user.Role))
			ctx = context.WithValue(ctx, ContextKeySessionID, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates admin-only routes; it assumes Authenticate already ran.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ContextKeyUserRole).(string)
		if role != string(models.UserRoleAdmin) {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrCodeForbidden,
				"Administrator access required", nil,
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractBearerToken exposes the token string for handlers that need it
// (logout revokes the exact presented token).
func ExtractBearerToken(r *http.Request) string {
	tok, _ := extractBearerToken(r)
	return tok
}

func extractBearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", errors.New("missing Authorization header")
	}
	tok := strings.TrimPrefix(h, "Bearer ")
	if tok == "" {
		return "", errors.New("empty bearer token")
	}
	return tok, nil
}
