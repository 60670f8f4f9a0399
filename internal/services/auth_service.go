package services

import (
	"context"
	"errors"
	"time"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
)

// ErrLockedOut carries the retry-after hint for a brute-force lockout.
type ErrLockedOut struct {
	RetryAfter time.Duration
}

func (e *ErrLockedOut) Error() string { return "too many failed attempts" }

type LoginResult struct {
	Token     string
	SessionID string
	User      *models.User
}

// AuthService orchestrates the login path: brute-force gate, credential
// check, counter bookkeeping, token issuance and session creation.
type AuthService interface {
	Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, token, sessionID string)
}

type authService struct {
	users      repositories.UserRepository
	tokens     TokenService
	sessions   SessionService
	bruteForce BruteForceService
	monitor    MonitorService
}

func NewAuthService(
	users repositories.UserRepository,
	tokens TokenService,
	sessions SessionService,
	bruteForce BruteForceService,
	monitor MonitorService,
) AuthService {
	return &authService{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		bruteForce: bruteForce,
		monitor:    monitor,
	}
}

func (s *authService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	// The lockout gate runs before any credential check so a locked-out
	// pair never exercises the password hash.
	allowed, retryAfter := s.bruteForce.CheckAllowed(ctx, ip, email)
	if !allowed {
		return nil, &ErrLockedOut{RetryAfter: retryAfter}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		utils.Logger.WithError(err).Error("Credential store lookup failed during login")
		return nil, err
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		// The telemetry middleware classifies the resulting 401 as a
		// failed-login event, so only the lockout counter is updated here.
		s.bruteForce.RecordFailure(ctx, ip, email)
		return nil, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, ErrAccountSuspended
	}

	s.bruteForce.RecordSuccess(ctx, ip, email)

	token, sessionID, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.TouchOrCreate(sessionID, user.ID.String(), ip, userAgent); err != nil {
		return nil, err
	}

	s.monitor.LogEvent(ctx, models.SecurityEvent{
		Kind:      models.EventSuccessfulLogin,
		IP:        ip,
		UserAgent: userAgent,
		UserID:    user.ID.String(),
		Path:      "/auth/v1/login",
		Method:    "POST",
	})

	return &LoginResult{Token: token, SessionID: sessionID, User: user}, nil
}

func (s *authService) Logout(ctx context.Context, token, sessionID string) {
	s.tokens.Revoke(token)
	if sessionID != "" {
		s.sessions.Invalidate(sessionID)
	}
}
