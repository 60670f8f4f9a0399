package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

type authTestEnv struct {
	tokens   services.TokenService
	sessions services.SessionService
	users    *repositories.MemoryUserRepository
	monitor  services.MonitorService
	handler  http.Handler
	seenUser string
	seenRole string
}

func newAuthTestEnv() *authTestEnv {
	env := &authTestEnv{
		tokens:   services.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "SkillGame", 7*24*time.Hour),
		sessions: services.NewSessionService(time.Hour, 7*24*time.Hour),
		users:    repositories.NewMemoryUserRepository(),
		monitor:  newTestMonitor(),
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.seenUser = UserIDFromRequest(r)
		env.seenRole, _ = r.Context().Value(ContextKeyUserRole).(string)
		w.WriteHeader(http.StatusOK)
	})
	env.handler = Authenticate(env.tokens, env.sessions, env.users, env.monitor)(inner)
	return env
}

func (env *authTestEnv) addUser(role models.UserRole, status models.UserStatus) *models.User {
	u := &models.User{
		ID:     uuid.New(),
		Email:  "player@example.com",
		Role:   role,
		Status: status,
	}
	env.users.Add(u)
	return u
}

func (env *authTestEnv) get(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/v1/me", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

// issueTokenWithSession signs a token carrying an arbitrary session claim,
// simulating a stolen session identifier.
func issueTokenWithSession(t *testing.T, userID, sessionID string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "SkillGame",
		"sub": userID,
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return signed
}

func TestAuthRejectsMissingToken(t *testing.T) {
	env := newAuthTestEnv()

	rr := env.get("")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, utils.ErrCodeNoToken, decodeErrorCode(t, rr.Body.Bytes()))
}

func TestAuthRejectsMalformedToken(t *testing.T) {
	env := newAuthTestEnv()

	rr := env.get("not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, utils.ErrCodeInvalidToken, decodeErrorCode(t, rr.Body.Bytes()))
}

func TestAuthAcceptsValidTokenAndSetsContext(t *testing.T) {
	env := newAuthTestEnv()
	user := env.addUser(models.UserRoleAdmin, models.UserStatusActive)

	token, _, err := env.tokens.Issue(user.ID.String())
	require.NoError(t, err)

	rr := env.get(token)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, user.ID.String(), env.seenUser)
	require.Equal(t, string(models.UserRoleAdmin), env.seenRole)
}

func TestAuthRejectsRevokedToken(t *testing.T) {
	env := newAuthTestEnv()
	user := env.addUser(models.UserRolePlayer, models.UserStatusActive)

	token, _, err := env.tokens.Issue(user.ID.String())
	require.NoError(t, err)
	env.tokens.Revoke(token)

	rr := env.get(token)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, utils.ErrCodeBlacklistedToken, decodeErrorCode(t, rr.Body.Bytes()))
}

func TestAuthRejectsUnknownAccount(t *testing.T) {
	env := newAuthTestEnv()

	// Valid token for an account that no longer exists.
	token, _, err := env.tokens.Issue(uuid.NewString())
	require.NoError(t, err)

	rr := env.get(token)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, utils.ErrCodeUserNotFound, decodeErrorCode(t, rr.Body.Bytes()))
}

func TestAuthRejectsSuspendedAccount(t *testing.T) {
	env := newAuthTestEnv()
	user := env.addUser(models.UserRolePlayer, models.UserStatusSuspended)

	token, _, err := env.tokens.Issue(user.ID.String())
	require.NoError(t, err)

	rr := env.get(token)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, utils.ErrCodeAccountSuspended, decodeErrorCode(t, rr.Body.Bytes()))
}

func TestSessionViolationRevokesPresentedToken(t *testing.T) {
	env := newAuthTestEnv()
	victim := env.addUser(models.UserRolePlayer, models.UserStatusActive)
	attacker := env.addUser(models.UserRolePlayer, models.UserStatusActive)

	// The victim establishes the session.
	victimToken, sessionID, err := env.tokens.Issue(victim.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, env.get(victimToken).Code)

	// Forge a token claiming the victim's session for another account.
	forged := issueTokenWithSession(t, attacker.ID.String(), sessionID)

	rr := env.get(forged)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, utils.ErrCodeSessionViolation, decodeErrorCode(t, rr.Body.Bytes()))
	require.True(t, env.tokens.IsRevoked(forged))

	// The hijack attempt killed the session for the victim too.
	rr = env.get(victimToken)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, utils.ErrCodeSessionExpired, decodeErrorCode(t, rr.Body.Bytes()))

	// And it was recorded for the monitor.
	events := env.monitor.RecentEvents(0)
	found := false
	for _, e := range events {
		if e.Kind == models.EventSessionViolation {
			found = true
		}
	}
	require.True(t, found)
}

func TestRequireAdmin(t *testing.T) {
	inner := okHandler()
	handler := RequireAdmin(inner)

	// No role in context at all.
	rr := doRequest(handler, http.MethodGet, "/security/v1/dashboard", "1.2.3.4")
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, utils.ErrCodeForbidden, decodeErrorCode(t, rr.Body.Bytes()))

	env := newAuthTestEnv()
	admin := env.addUser(models.UserRoleAdmin, models.UserStatusActive)
	adminChain := Authenticate(env.tokens, env.sessions, env.users, env.monitor)(RequireAdmin(inner))

	token, _, err := env.tokens.Issue(admin.ID.String())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/security/v1/dashboard", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	adminChain.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
