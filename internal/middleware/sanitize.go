package middleware

import (
	"net/http"
	"strings"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// SanitizeInput rejects structurally hostile requests before they reach any
// parser: null bytes in the URL, oversized paths, and unbounded bodies.
func SanitizeInput(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.RequestURI()
		if strings.ContainsRune(raw, 0) || strings.Contains(raw, "%00") {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
				"Malformed request", nil,
			)
			return
		}
		if len(raw) > 2048 {
			utils.RespondErrorWithCode(
				w, http.StatusRequestURITooLong, utils.ErrCodeInvalidPayload,
				"Request URI too long", nil,
			)
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
