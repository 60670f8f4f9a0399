package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

type authFixture struct {
	svc      AuthService
	users    *repositories.MemoryUserRepository
	tokens   TokenService
	sessions SessionService
	monitor  *monitorService
	clock    *time.Time
}

func newAuthFixture(t *testing.T, start time.Time) *authFixture {
	t.Helper()
	clock := start

	store := kvstore.NewMemoryStore()
	store.Now = func() time.Time { return clock }

	tokens := NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "SkillGame", testTokenTTL).(*tokenService)
	tokens.now = func() time.Time { return clock }

	sessions := NewSessionService(time.Hour, testTokenTTL).(*sessionService)
	sessions.now = func() time.Time { return clock }

	monitor := NewMonitorService(store, DefaultMonitorConfig()).(*monitorService)
	monitor.now = func() time.Time { return clock }

	users := repositories.NewMemoryUserRepository()

	svc := NewAuthService(users, tokens, sessions, NewBruteForceService(store, 5, 30*time.Minute), monitor)
	return &authFixture{
		svc:      svc,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		monitor:  monitor,
		clock:    &clock,
	}
}

func (f *authFixture) addUser(t *testing.T, email, password string, status models.UserStatus) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRolePlayer,
		Status:       status,
	}
	f.users.Add(u)
	return u
}

func TestLoginSucceedsWithValidCredentials(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Now())
	user := f.addUser(t, "player@example.com", "correct horse", models.UserStatusActive)

	result, err := f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.NotEmpty(t, result.SessionID)
	require.Equal(t, user.ID, result.User.ID)

	claims, err := f.tokens.Verify(result.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, result.SessionID, claims.SessionID)

	sess, ok := f.sessions.Get(result.SessionID)
	require.True(t, ok)
	require.Equal(t, user.ID.String(), sess.UserID)

	events := f.monitor.RecentEvents(0)
	require.Equal(t, 1, countKind(events, models.EventSuccessfulLogin))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Now())
	f.addUser(t, "player@example.com", "correct horse", models.UserStatusActive)

	_, err := f.svc.Login(ctx, "player@example.com", "wrong", "1.2.3.4", "ua")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownEmailIdentically(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Now())

	// Unknown account and wrong password must be indistinguishable.
	_, err := f.svc.Login(ctx, "nobody@example.com", "whatever", "1.2.3.4", "ua")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Now())
	f.addUser(t, "player@example.com", "correct horse", models.UserStatusSuspended)

	_, err := f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	require.ErrorIs(t, err, ErrAccountSuspended)
}

func TestLoginLocksOutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	f.addUser(t, "player@example.com", "correct horse", models.UserStatusActive)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, "player@example.com", "wrong", "1.2.3.4", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The sixth attempt is refused before the credential check, even with
	// the correct password.
	_, err := f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	var locked *ErrLockedOut
	require.ErrorAs(t, err, &locked)
	require.Greater(t, locked.RetryAfter, time.Duration(0))

	// A different IP is not affected by the pair's lockout.
	_, err = f.svc.Login(ctx, "player@example.com", "correct horse", "5.6.7.8", "ua")
	require.NoError(t, err)

	// After the lockout lapses the pair may try again.
	*f.clock = f.clock.Add(31 * time.Minute)
	_, err = f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	require.NoError(t, err)
}

func TestSuccessfulLoginResetsFailureCounter(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Now())
	f.addUser(t, "player@example.com", "correct horse", models.UserStatusActive)

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, "player@example.com", "wrong", "1.2.3.4", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	require.NoError(t, err)

	// The slate is clean: four more failures still leave one attempt.
	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, "player@example.com", "wrong", "1.2.3.4", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	require.NoError(t, err)
}

func TestLogoutRevokesTokenAndSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, time.Now())
	f.addUser(t, "player@example.com", "correct horse", models.UserStatusActive)

	result, err := f.svc.Login(ctx, "player@example.com", "correct horse", "1.2.3.4", "ua")
	require.NoError(t, err)

	f.svc.Logout(ctx, result.Token, result.SessionID)

	_, err = f.tokens.Verify(result.Token)
	require.ErrorIs(t, err, ErrTokenRevoked)
	_, ok := f.sessions.Get(result.SessionID)
	require.False(t, ok)
}
