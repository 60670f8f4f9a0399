package services

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenClaims is the verified content of an access token.
type TokenClaims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues, verifies and revokes bearer session tokens.
type TokenService interface {
	Issue(userID string) (token string, sessionID string, err error)
	Verify(tokenString string) (*TokenClaims, error)
	// Revoke adds the token to the revocation set. Idempotent.
	Revoke(tokenString string)
	IsRevoked(tokenString string) bool
	// PruneRevoked drops revocation entries whose token has passed its own
	// expiry and reports how many were removed.
	PruneRevoked() int
}

type tokenService struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration

	// revoked maps token string to the token's natural expiry, after which
	// the entry is prunable. Kept in-process so revocation checks never
	// depend on the analytics store and always fail closed.
	mu      sync.RWMutex
	revoked map[string]time.Time

	now func() time.Time
}

func NewTokenService(secret []byte, issuer string, tokenTTL time.Duration) TokenService {
	return &tokenService{
		secret:   secret,
		issuer:   issuer,
		tokenTTL: tokenTTL,
		revoked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *tokenService) Issue(userID string) (string, string, error) {
	sessionID := uuid.NewString()
	now := s.now()

	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": userID,
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}

	// One fixed algorithm, one shared secret. No negotiation.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return signed, sessionID, nil
}

func (s *tokenService) Verify(tokenString string) (*TokenClaims, error) {
	// Revocation check comes first: known-bad tokens are rejected before
	// any cryptographic work.
	if s.IsRevoked(tokenString) {
		return nil, ErrTokenRevoked
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if sub == "" || sid == "" {
		return nil, ErrTokenInvalid
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	now := s.now()
	expiresAt := time.Unix(int64(exp), 0)
	issuedAt := time.Unix(int64(iat), 0)

	// The library already enforced exp; these re-checks are independent so
	// a forged exp can never outlive the issuance age ceiling.
	if expiresAt.Before(now) {
		return nil, ErrTokenExpired
	}
	if issuedAt.Before(now.Add(-s.tokenTTL)) {
		return nil, ErrTokenExpired
	}

	return &TokenClaims{
		UserID:    sub,
		SessionID: sid,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *tokenService) Revoke(tokenString string) {
	if tokenString == "" {
		return
	}
	expiry := s.now().Add(s.tokenTTL)
	// Best effort: read the real expiry so pruning is exact. An unparseable
	// token keeps the conservative default above.
	if token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{}); err == nil {
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if exp, ok := claims["exp"].(float64); ok {
				expiry = time.Unix(int64(exp), 0)
			}
		}
	}

	s.mu.Lock()
	s.revoked[tokenString] = expiry
	s.mu.Unlock()
}

func (s *tokenService) IsRevoked(tokenString string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenString]
	return ok
}

func (s *tokenService) PruneRevoked() int {
	now := s.now()

	s.mu.RLock()
	var stale []string
	for tok, expiry := range s.revoked {
		if expiry.Before(now) {
			stale = append(stale, tok)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, tok := range stale {
		s.mu.Lock()
		if expiry, ok := s.revoked[tok]; ok && expiry.Before(now) {
			delete(s.revoked, tok)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}
