package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// Attack-signature patterns applied to the URL, query string and request
// body once the handler has finished. Matching is telemetry, not blocking:
// the response already went out.
var (
	sqlInjectionPattern  = regexp.MustCompile(`(?i)(\bunion\b.+\bselect\b|\bselect\b.+\bfrom\b|\binsert\b\s+into\b|\bdrop\b\s+table\b|\bdelete\b\s+from\b|'\s*or\s+'?\d+'?\s*=\s*'?\d+|--\s|;\s*--|\bor\b\s+1\s*=\s*1)`)
	xssPattern           = regexp.MustCompile(`(?i)(<script[\s>]|javascript:|\bon(?:error|load|click|mouseover)\s*=|<iframe[\s>]|document\.cookie|eval\s*\()`)
	pathTraversalPattern = regexp.MustCompile(`(\.\./|\.\.\\|%2e%2e%2f|%2e%2e/|\.\.%2f)`)

	scannerUserAgents = []string{
		"sqlmap", "nikto", "nmap", "masscan", "nessus", "acunetix",
		"dirbuster", "gobuster", "wpscan", "burpsuite", "zgrab", "hydra",
	}
)

const telemetryBodyScanLimit = 8 << 10 // 8 KiB

// TelemetryOptions names the routes the classifier treats specially.
type TelemetryOptions struct {
	// AuthPathPrefixes classify 401 responses as failed-login events.
	AuthPathPrefixes []string
	// HighRiskPaths generate low-severity unusual-activity telemetry on any
	// access, regardless of outcome.
	HighRiskPaths []string
}

// Telemetry observes every completed request and feeds classified events to
// the security monitor. It is a finish-based hook: a request that never
// reaches the handler's end produces no event.
func Telemetry(monitor services.MonitorService, opts TelemetryOptions) func(http.Handler) http.Handler {
	highRisk := make(map[string]struct{}, len(opts.HighRiskPaths))
	for _, p := range opts.HighRiskPaths {
		highRisk[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Snapshot a bounded prefix of the body for signature matching
			// and hand the handler a replayable reader.
			var bodySample []byte
			if r.Body != nil && r.Method != http.MethodGet {
				sample, rest, err := sampleBody(r.Body, telemetryBodyScanLimit)
				if err == nil {
					bodySample = sample
					r.Body = rest
				}
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			ip := utils.ClientIP(r)
			ua := r.UserAgent()
			scanTarget := r.URL.RequestURI()
			if len(bodySample) > 0 {
				scanTarget += "\n" + string(bodySample)
			}

			emit := func(kind models.EventKind, details map[string]any) {
				monitor.LogEvent(r.Context(), models.SecurityEvent{
					Kind:      kind,
					IP:        ip,
					UserAgent: ua,
					UserID:    UserIDFromRequest(r),
					Path:      r.URL.Path,
					Method:    r.Method,
					Details:   details,
				})
			}

			if sqlInjectionPattern.MatchString(scanTarget) {
				emit(models.EventSQLInjectionAttempt, map[string]any{"match": "sql syntax in request"})
			}
			if xssPattern.MatchString(scanTarget) {
				emit(models.EventXSSAttempt, map[string]any{"match": "script syntax in request"})
			}
			if pathTraversalPattern.MatchString(scanTarget) {
				emit(models.EventPathTraversalAttempt, map[string]any{"match": "traversal sequence in request"})
			}
			if scanner := matchScannerAgent(ua); scanner != "" {
				emit(models.EventScannerDetected, map[string]any{"scanner": scanner})
			}

			switch rec.status {
			case http.StatusUnauthorized:
				if hasPrefix(r.URL.Path, opts.AuthPathPrefixes) {
					emit(models.EventFailedLogin, map[string]any{"status": rec.status})
				}
			case http.StatusForbidden:
				emit(models.EventPermissionDenied, map[string]any{"status": rec.status})
			}

			if _, ok := highRisk[r.URL.Path]; ok {
				emit(models.EventUnusualActivity, map[string]any{
					"high_risk_path": true,
					"status":         rec.status,
				})
			}
		})
	}
}

// sampleBody reads up to limit bytes and returns both the sample and a
// reader that replays the full body for downstream consumers.
func sampleBody(body io.ReadCloser, limit int) ([]byte, io.ReadCloser, error) {
	sample := make([]byte, limit)
	n, err := io.ReadFull(body, sample)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, body, err
	}
	sample = sample[:n]

	combined := io.MultiReader(bytes.NewReader(sample), body)
	return sample, struct {
		io.Reader
		io.Closer
	}{combined, body}, nil
}

func matchScannerAgent(ua string) string {
	lowered := strings.ToLower(ua)
	for _, scanner := range scannerUserAgents {
		if strings.Contains(lowered, scanner) {
			return scanner
		}
	}
	return ""
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
