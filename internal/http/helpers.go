package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// parseRange reads ?range=, falling back to the default for missing or
// unknown values.
func parseRange(r *http.Request) core.DateRange {
	rng, err := core.ParseDateRange(strings.TrimSpace(r.URL.Query().Get("range")))
	if err != nil {
		return core.DefaultDateRange
	}
	return rng
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(stripControl(s))
}

// stripControl removes control characters other than tab and line breaks.
// Categories go through it untrimmed: they group by exact string.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
