package services

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// CSRFService issues and validates one-time anti-forgery tokens bound to a
// session or IP. A token is accepted exactly once; clients must re-fetch
// after every mutating call. That is the replay defense, not an
// inconvenience to relax.
type CSRFService interface {
	// Issue creates a fresh token for the owner, overwriting any prior
	// record for that key.
	Issue(ownerKey string) string
	// Validate burns the token on success. Expired records are deleted on
	// sight; a second call with the same token always fails.
	Validate(ownerKey, presentedToken string) bool
	// ValidateDoubleSubmit is the stateless mode: cookie and header values
	// must both be present and equal.
	ValidateDoubleSubmit(cookieValue, headerValue string) bool
	// Cleanup purges expired or used records and reports how many.
	Cleanup() int
}

type csrfService struct {
	tokenTTL time.Duration

	mu      sync.Mutex
	records map[string]*models.CSRFRecord

	now func() time.Time
}

func NewCSRFService(tokenTTL time.Duration) CSRFService {
	return &csrfService{
		tokenTTL: tokenTTL,
		records:  make(map[string]*models.CSRFRecord),
		now:      time.Now,
	}
}

func (s *csrfService) Issue(ownerKey string) string {
	token := utils.RandomHex(32)

	s.mu.Lock()
	s.records[ownerKey] = &models.CSRFRecord{
		OwnerKey:  ownerKey,
		Token:     token,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	s.mu.Unlock()

	return token
}

func (s *csrfService) Validate(ownerKey, presentedToken string) bool {
	if presentedToken == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[ownerKey]
	if !ok {
		return false
	}
	if rec.ExpiresAt.Before(s.now()) {
		delete(s.records, ownerKey)
		return false
	}
	if rec.Used {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(presentedToken)) != 1 {
		return false
	}

	rec.Used = true
	return true
}

func (s *csrfService) ValidateDoubleSubmit(cookieValue, headerValue string) bool {
	if cookieValue == "" || headerValue == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) == 1
}

func (s *csrfService) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if rec.Used || rec.ExpiresAt.Before(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}
