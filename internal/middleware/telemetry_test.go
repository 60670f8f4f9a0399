package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
)

func telemetryEnv(inner http.Handler) (services.MonitorService, http.Handler) {
	monitor := newTestMonitor()
	handler := Telemetry(monitor, TelemetryOptions{
		AuthPathPrefixes: []string{"/auth/"},
		HighRiskPaths:    []string{"/security/v1/dashboard"},
	})(inner)
	return monitor, handler
}

func kinds(monitor services.MonitorService) map[models.EventKind]int {
	out := make(map[models.EventKind]int)
	for _, e := range monitor.RecentEvents(0) {
		out[e.Kind]++
	}
	return out
}

func TestDetectsSQLInjectionInBody(t *testing.T) {
	monitor, handler := telemetryEnv(okHandler())

	body := `{"q":"1' OR '1'='1"}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code) // detection never blocks

	require.Equal(t, 1, kinds(monitor)[models.EventSQLInjectionAttempt])
}

func TestDetectsXSSInBodyAndReplaysBody(t *testing.T) {
	var handlerSaw string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		handlerSaw = string(b)
		w.WriteHeader(http.StatusOK)
	})
	monitor, handler := telemetryEnv(inner)

	body := `{"comment":"<script>document.cookie</script>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/comments", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// The handler still reads the full body despite the scan sample.
	require.Equal(t, body, handlerSaw)
	require.Equal(t, 1, kinds(monitor)[models.EventXSSAttempt])
}

func TestDetectsPathTraversal(t *testing.T) {
	monitor, handler := telemetryEnv(okHandler())

	doRequest(handler, http.MethodGet, "/files?name=../../etc/passwd", "1.2.3.4")
	require.Equal(t, 1, kinds(monitor)[models.EventPathTraversalAttempt])
}

func TestDetectsScannerUserAgent(t *testing.T) {
	monitor, handler := telemetryEnv(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("User-Agent", "sqlmap/1.7")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	events := monitor.RecentEvents(0)
	require.Len(t, events, 1)
	require.Equal(t, models.EventScannerDetected, events[0].Kind)
	require.Equal(t, "sqlmap", events[0].Details["scanner"])
}

func TestBenignTrafficEmitsNothing(t *testing.T) {
	monitor, handler := telemetryEnv(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/games", strings.NewReader(`{"stake":100}`))
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Empty(t, monitor.RecentEvents(0))
}

func TestClassifies401OnAuthPathAsFailedLogin(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	monitor, handler := telemetryEnv(inner)

	doRequest(handler, http.MethodPost, "/auth/v1/login", "1.2.3.4")
	require.Equal(t, 1, kinds(monitor)[models.EventFailedLogin])

	// A 401 elsewhere is not a failed login.
	doRequest(handler, http.MethodGet, "/api/v1/wallet", "1.2.3.4")
	require.Equal(t, 1, kinds(monitor)[models.EventFailedLogin])
}

func TestClassifies403AsPermissionDenied(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	monitor, handler := telemetryEnv(inner)

	doRequest(handler, http.MethodGet, "/api/v1/admin-thing", "1.2.3.4")
	require.Equal(t, 1, kinds(monitor)[models.EventPermissionDenied])
}

func TestHighRiskPathAlwaysLeavesATrace(t *testing.T) {
	monitor, handler := telemetryEnv(okHandler())

	doRequest(handler, http.MethodGet, "/security/v1/dashboard", "1.2.3.4")
	require.Equal(t, 1, kinds(monitor)[models.EventUnusualActivity])
}
