package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// MonitorConfig carries the thresholds for derived attack detection.
type MonitorConfig struct {
	DDOSUniqueIPThreshold int           // unique IPs per minute
	BruteForceThreshold   int           // failed logins per IP per minute
	CoordinatedThreshold  int           // distinct IPs per path per 5 minutes
	AlertCooldown         time.Duration // per (kind, ip)
	AutoBlockDuration     time.Duration // applied on brute-force escalation
	DefaultBlockDuration  time.Duration // for BlockIP calls without a duration
	EventRetention        time.Duration
	DashboardStatusWindow time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		DDOSUniqueIPThreshold: 50,
		BruteForceThreshold:   10,
		CoordinatedThreshold:  5,
		AlertCooldown:         5 * time.Minute,
		AutoBlockDuration:     30 * time.Minute,
		DefaultBlockDuration:  time.Hour,
		EventRetention:        time.Hour,
		DashboardStatusWindow: 5 * time.Minute,
	}
}

// DashboardData is a point-in-time read of the monitor's aggregates.
type DashboardData struct {
	Timestamp           time.Time                `json:"timestamp"`
	Status              string                   `json:"status"`
	EventsLastHour      int                      `json:"events_last_hour"`
	EventsByKind        map[models.EventKind]int `json:"events_by_kind"`
	UniqueIPsThisMinute int64                    `json:"unique_ips_this_minute"`
	AlertsLast5Min      int                      `json:"alerts_last_5_min"`
	BlockedIPs          []models.BlockedIP       `json:"blocked_ips"`
}

// MonitorService ingests classified security events, keeps time-bucketed
// aggregates, detects derived attack patterns and answers dashboard reads.
// Every storage failure here is caught and logged; telemetry is best-effort
// and must never abort the request pipeline.
type MonitorService interface {
	LogEvent(ctx context.Context, event models.SecurityEvent)
	IsIPBlocked(ctx context.Context, ip string) bool
	BlockIP(ctx context.Context, ip, reason string, duration time.Duration)
	UnblockIP(ctx context.Context, ip string)
	BlockedIPs(ctx context.Context) []models.BlockedIP
	RecentEvents(limit int) []models.SecurityEvent
	DashboardData(ctx context.Context) DashboardData
	// TrimRetention drops events and alerts past the retention window.
	TrimRetention() int
}

type alertRecord struct {
	Kind models.EventKind
	IP   string
	At   time.Time
}

type monitorService struct {
	store kvstore.Store
	cfg   MonitorConfig

	mu        sync.Mutex
	events    []models.SecurityEvent
	alerts    []alertRecord
	cooldowns map[string]time.Time

	now func() time.Time
}

func NewMonitorService(store kvstore.Store, cfg MonitorConfig) MonitorService {
	return &monitorService{
		store:     store,
		cfg:       cfg,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

func minuteBucket(t time.Time) int64  { return t.Unix() / 60 }
func hourBucket(t time.Time) int64    { return t.Unix() / 3600 }
func fiveMinBucket(t time.Time) int64 { return t.Unix() / 300 }

func (m *monitorService) LogEvent(ctx context.Context, event models.SecurityEvent) {
	m.logEvent(ctx, event, true)
}

// logEvent records the event, updates the aggregates, and, for primary
// events, runs pattern analysis. Derived events (emitted by the detectors
// themselves) skip analysis so detection can never feed back into itself.
func (m *monitorService) logEvent(ctx context.Context, event models.SecurityEvent, analyze bool) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	if event.Severity == "" {
		event.Severity = models.DefaultSeverity(event.Kind)
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	m.updateCounters(ctx, event)

	if analyze {
		m.analyzePatterns(ctx, event)
	}

	if event.Severity == models.SeverityHigh || event.Severity == models.SeverityCritical {
		m.maybeAlert(event)
	}
}

func (m *monitorService) updateCounters(ctx context.Context, event models.SecurityEvent) {
	now := event.Timestamp
	// Bucketed keys expire on their own; no sweep is needed for them.
	counterTTL := 2 * time.Hour

	keys := []string{
		fmt.Sprintf("sec:type:%s:%d", event.Kind, minuteBucket(now)),
		fmt.Sprintf("sec:ip:%s:%d", event.IP, minuteBucket(now)),
	}
	if event.UserID != "" {
		keys = append(keys, fmt.Sprintf("sec:user:%s:%d", event.UserID, hourBucket(now)))
	}
	for _, key := range keys {
		if _, err := m.store.Incr(ctx, key, counterTTL); err != nil {
			utils.Logger.WithError(err).Debug("Security counter update failed")
		}
	}

	if event.IP != "" {
		uniqKey := fmt.Sprintf("sec:uniq:%d", minuteBucket(now))
		if err := m.store.SAdd(ctx, uniqKey, event.IP, 5*time.Minute); err != nil {
			utils.Logger.WithError(err).Debug("Unique-IP set update failed")
		}
	}
}

func (m *monitorService) analyzePatterns(ctx context.Context, event models.SecurityEvent) {
	m.detectDDOS(ctx, event)
	m.detectBruteForce(ctx, event)
	m.detectCoordinated(ctx, event)
}

func (m *monitorService) detectDDOS(ctx context.Context, event models.SecurityEvent) {
	uniqKey := fmt.Sprintf("sec:uniq:%d", minuteBucket(event.Timestamp))
	uniq, err := m.store.SCard(ctx, uniqKey)
	if err != nil {
		utils.Logger.WithError(err).Debug("Unique-IP cardinality read failed")
		return
	}
	if uniq <= int64(m.cfg.DDOSUniqueIPThreshold) {
		return
	}
	// Emit once per cooldown window, not once per request.
	if !m.takeCooldown(models.EventDDOSAttempt, "global", event.Timestamp) {
		return
	}
	m.logEvent(ctx, models.SecurityEvent{
		Kind:      models.EventDDOSAttempt,
		Severity:  models.SeverityCritical,
		IP:        event.IP,
		Path:      event.Path,
		Method:    event.Method,
		Timestamp: event.Timestamp,
		Details: map[string]any{
			"unique_ips": uniq,
			"threshold":  m.cfg.DDOSUniqueIPThreshold,
		},
	}, false)
}

func (m *monitorService) detectBruteForce(ctx context.Context, event models.SecurityEvent) {
	if event.Kind != models.EventFailedLogin {
		return
	}
	key := fmt.Sprintf("sec:flogin:%s:%d", event.IP, minuteBucket(event.Timestamp))
	count, err := m.store.Incr(ctx, key, 5*time.Minute)
	if err != nil {
		utils.Logger.WithError(err).Debug("Failed-login counter update failed")
		return
	}
	if count <= int64(m.cfg.BruteForceThreshold) {
		return
	}
	if !m.takeCooldown(models.EventBruteForceAttack, event.IP, event.Timestamp) {
		return
	}
	m.logEvent(ctx, models.SecurityEvent{
		Kind:      models.EventBruteForceAttack,
		Severity:  models.SeverityHigh,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		Path:      event.Path,
		Method:    event.Method,
		Timestamp: event.Timestamp,
		Details: map[string]any{
			"failed_logins_this_minute": count,
			"threshold":                 m.cfg.BruteForceThreshold,
		},
		Blocked: true,
	}, false)
	m.BlockIP(ctx, event.IP, "brute force attack detected", m.cfg.AutoBlockDuration)
}

func (m *monitorService) detectCoordinated(ctx context.Context, event models.SecurityEvent) {
	if event.IP == "" || event.Path == "" {
		return
	}
	key := fmt.Sprintf("sec:path:%s:%d", event.Path, fiveMinBucket(event.Timestamp))
	if err := m.store.SAdd(ctx, key, event.IP, 10*time.Minute); err != nil {
		utils.Logger.WithError(err).Debug("Path-IP set update failed")
		return
	}
	distinct, err := m.store.SCard(ctx, key)
	if err != nil {
		utils.Logger.WithError(err).Debug("Path-IP cardinality read failed")
		return
	}
	if distinct <= int64(m.cfg.CoordinatedThreshold) {
		return
	}
	if !m.takeCooldown(models.EventUnusualActivity, event.Path, event.Timestamp) {
		return
	}
	m.logEvent(ctx, models.SecurityEvent{
		Kind:      models.EventUnusualActivity,
		Severity:  models.SeverityHigh,
		IP:        event.IP,
		Path:      event.Path,
		Method:    event.Method,
		Timestamp: event.Timestamp,
		Details: map[string]any{
			"distinct_ips": distinct,
			"threshold":    m.cfg.CoordinatedThreshold,
			"pattern":      "coordinated multi-ip access",
		},
	}, false)
}

// takeCooldown reports whether the (kind, key) pair is clear to fire and,
// if so, starts a new cooldown window. Prevents alert storms.
func (m *monitorService) takeCooldown(kind models.EventKind, key string, at time.Time) bool {
	cooldownKey := string(kind) + "|" + key

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.cooldowns[cooldownKey]; ok && at.Sub(last) < m.cfg.AlertCooldown {
		return false
	}
	m.cooldowns[cooldownKey] = at
	return true
}

func (m *monitorService) maybeAlert(event models.SecurityEvent) {
	if !m.takeCooldown(event.Kind, "alert:"+event.IP, event.Timestamp) {
		return
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, alertRecord{Kind: event.Kind, IP: event.IP, At: event.Timestamp})
	m.mu.Unlock()

	entry := utils.Logger.WithFields(logrus.Fields{
		"kind":     event.Kind,
		"severity": event.Severity,
		"ip":       event.IP,
		"path":     event.Path,
	})
	if event.Severity == models.SeverityCritical {
		entry.Error("SECURITY ALERT")
	} else {
		entry.Warn("SECURITY ALERT")
	}
}

func blockKey(ip string) string { return "sec:block:" + ip }

func (m *monitorService) IsIPBlocked(ctx context.Context, ip string) bool {
	_, ok, err := m.store.Get(ctx, blockKey(ip))
	if err != nil {
		// Fail open: the block list shares the best-effort analytics store.
		utils.Logger.WithError(err).Error("Blocked-IP lookup failed, allowing request")
		return false
	}
	return ok
}

func (m *monitorService) BlockIP(ctx context.Context, ip, reason string, duration time.Duration) {
	if duration <= 0 {
		duration = m.cfg.DefaultBlockDuration
	}
	now := m.now()
	record := models.BlockedIP{
		IP:        ip,
		Reason:    reason,
		BlockedAt: now,
		ExpiresAt: now.Add(duration),
	}
	raw, _ := json.Marshal(record)
	if err := m.store.Set(ctx, blockKey(ip), string(raw), duration); err != nil {
		utils.Logger.WithError(err).Error("Failed to persist IP block")
		return
	}
	m.logEvent(ctx, models.SecurityEvent{
		Kind:      models.EventIPBlocked,
		Severity:  models.SeverityHigh,
		IP:        ip,
		Timestamp: now,
		Details: map[string]any{
			"reason":           reason,
			"duration_seconds": strconv.FormatFloat(duration.Seconds(), 'f', 0, 64),
		},
		Blocked: true,
	}, false)
}

func (m *monitorService) UnblockIP(ctx context.Context, ip string) {
	if err := m.store.Delete(ctx, blockKey(ip)); err != nil {
		utils.Logger.WithError(err).Error("Failed to remove IP block")
	}
}

func (m *monitorService) BlockedIPs(ctx context.Context) []models.BlockedIP {
	keys, err := m.store.Keys(ctx, "sec:block:")
	if err != nil {
		utils.Logger.WithError(err).Error("Blocked-IP enumeration failed")
		return nil
	}
	out := make([]models.BlockedIP, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := m.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var record models.BlockedIP
		if err := json.Unmarshal([]byte(raw), &record); err == nil {
			out = append(out, record)
		}
	}
	return out
}

func (m *monitorService) RecentEvents(limit int) []models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]models.SecurityEvent, limit)
	copy(out, m.events[len(m.events)-limit:])
	return out
}

func (m *monitorService) DashboardData(ctx context.Context) DashboardData {
	now := m.now()
	cutoff := now.Add(-m.cfg.EventRetention)
	statusCutoff := now.Add(-m.cfg.DashboardStatusWindow)

	m.mu.Lock()
	byKind := make(map[models.EventKind]int)
	eventsLastHour := 0
	for _, e := range m.events {
		if e.Timestamp.After(cutoff) {
			eventsLastHour++
			byKind[e.Kind]++
		}
	}
	recentAlerts := 0
	for _, a := range m.alerts {
		if a.At.After(statusCutoff) {
			recentAlerts++
		}
	}
	m.mu.Unlock()

	uniq, err := m.store.SCard(ctx, fmt.Sprintf("sec:uniq:%d", minuteBucket(now)))
	if err != nil {
		uniq = 0
	}

	return DashboardData{
		Timestamp:           now,
		Status:              statusFor(recentAlerts),
		EventsLastHour:      eventsLastHour,
		EventsByKind:        byKind,
		UniqueIPsThisMinute: uniq,
		AlertsLast5Min:      recentAlerts,
		BlockedIPs:          m.BlockedIPs(ctx),
	}
}

func statusFor(alertsLast5Min int) string {
	switch {
	case alertsLast5Min >= 10:
		return "critical"
	case alertsLast5Min >= 5:
		return "high"
	case alertsLast5Min >= 1:
		return "medium"
	default:
		return "normal"
	}
}

func (m *monitorService) TrimRetention() int {
	now := m.now()
	cutoff := now.Add(-m.cfg.EventRetention)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	removed := 0
	for _, e := range m.events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	m.events = kept

	keptAlerts := m.alerts[:0]
	for _, a := range m.alerts {
		if a.At.After(cutoff) {
			keptAlerts = append(keptAlerts, a)
		}
	}
	m.alerts = keptAlerts

	for key, at := range m.cooldowns {
		if now.Sub(at) > m.cfg.AlertCooldown {
			delete(m.cooldowns, key)
		}
	}
	return removed
}
