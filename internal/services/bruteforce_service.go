package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// BruteForceService counts failed authentication attempts per (IP, email)
// pair and locks the pair out once the threshold is reached. Counting-store
// failures are logged and the request is allowed through: unavailability of
// this control must not become a denial-of-service vector.
type BruteForceService interface {
	// CheckAllowed reports whether a login attempt for the pair may even
	// reach the credential check, with a retry-after hint when locked out.
	CheckAllowed(ctx context.Context, ip, email string) (allowed bool, retryAfter time.Duration)
	RecordFailure(ctx context.Context, ip, email string)
	RecordSuccess(ctx context.Context, ip, email string)
}

type bruteForceService struct {
	store       kvstore.Store
	maxAttempts int
	lockout     time.Duration
}

func NewBruteForceService(store kvstore.Store, maxAttempts int, lockout time.Duration) BruteForceService {
	return &bruteForceService{
		store:       store,
		maxAttempts: maxAttempts,
		lockout:     lockout,
	}
}

func attemptKey(ip, email string) string {
	return fmt.Sprintf("bf:%s:%s", ip, strings.ToLower(email))
}

func (s *bruteForceService) CheckAllowed(ctx context.Context, ip, email string) (bool, time.Duration) {
	key := attemptKey(ip, email)

	val, ok, err := s.store.Get(ctx, key)
	if err != nil {
		utils.Logger.WithError(err).Error("Brute-force counter unavailable, allowing attempt")
		return true, 0
	}
	if !ok {
		return true, 0
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return true, 0
	}
	if count < s.maxAttempts {
		return true, 0
	}

	retryAfter, err := s.store.TTL(ctx, key)
	if err != nil || retryAfter <= 0 {
		retryAfter = s.lockout
	}
	return false, retryAfter
}

func (s *bruteForceService) RecordFailure(ctx context.Context, ip, email string) {
	if _, err := s.store.Incr(ctx, attemptKey(ip, email), s.lockout); err != nil {
		utils.Logger.WithError(err).Error("Failed to record login failure")
	}
}

func (s *bruteForceService) RecordSuccess(ctx context.Context, ip, email string) {
	if err := s.store.Delete(ctx, attemptKey(ip, email)); err != nil {
		utils.Logger.WithError(err).Error("Failed to clear login attempt counter")
	}
}
