package models

import "time"

// EventKind is the closed set of security event classifications. Adding a
// kind requires updating DefaultSeverity, which switches exhaustively, so
// a new detector is a compile-visible change rather than a loose string.
type EventKind string

const (
	EventFailedLogin          EventKind = "FAILED_LOGIN"
	EventSuccessfulLogin      EventKind = "SUCCESSFUL_LOGIN"
	EventRateLimitExceeded    EventKind = "RATE_LIMIT_EXCEEDED"
	EventCSRFViolation        EventKind = "CSRF_VIOLATION"
	EventSQLInjectionAttempt  EventKind = "SQL_INJECTION_ATTEMPT"
	EventXSSAttempt           EventKind = "XSS_ATTEMPT"
	EventPathTraversalAttempt EventKind = "PATH_TRAVERSAL_ATTEMPT"
	EventScannerDetected      EventKind = "SCANNER_DETECTED"
	EventPermissionDenied     EventKind = "PERMISSION_DENIED"
	EventSessionViolation     EventKind = "SESSION_VIOLATION"
	EventUnusualActivity      EventKind = "UNUSUAL_ACTIVITY"
	EventDDOSAttempt          EventKind = "DDOS_ATTEMPT"
	EventBruteForceAttack     EventKind = "BRUTE_FORCE_ATTACK"
	EventIPBlocked            EventKind = "IP_BLOCKED"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultSeverity maps each event kind to its baseline severity.
func DefaultSeverity(kind EventKind) Severity {
	switch kind {
	case EventFailedLogin, EventRateLimitExceeded, EventUnusualActivity:
		return SeverityLow
	case EventSuccessfulLogin:
		return SeverityLow
	case EventCSRFViolation, EventPermissionDenied, EventScannerDetected:
		return SeverityMedium
	case EventSQLInjectionAttempt, EventXSSAttempt, EventPathTraversalAttempt,
		EventSessionViolation, EventBruteForceAttack, EventIPBlocked:
		return SeverityHigh
	case EventDDOSAttempt:
		return SeverityCritical
	default:
		return SeverityLow
	}
}

// SecurityEvent is immutable once recorded; it is only aggregated and
// eventually expired by the retention sweep.
type SecurityEvent struct {
	Kind      EventKind      `json:"kind"`
	Severity  Severity       `json:"severity"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"user_agent"`
	UserID    string         `json:"user_id,omitempty"`
	Path      string         `json:"path"`
	Method    string         `json:"method"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
	Blocked   bool           `json:"blocked"`
}

// BlockedIP records a block with its reason; expiry is enforced by the
// store's TTL.
type BlockedIP struct {
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
	BlockedAt time.Time `json:"blocked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CSRFRecord is the server-side half of the synchronizer-token scheme.
// One active record exists per owner key; Used flips true on the first
// successful validation and the record is never accepted again.
type CSRFRecord struct {
	OwnerKey  string    `json:"owner_key"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}
