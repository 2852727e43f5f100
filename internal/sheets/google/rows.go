package google

import (
	"fmt"
	"strings"

	ports "fintrack/internal/sheets"
)

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isHeader(cols []string) bool {
	return len(cols) > 0 && strings.EqualFold(cols[0], ports.Header[0])
}

// findID returns the 1-based row holding id in a column A listing, or 0.
func findID(column [][]interface{}, id string) int {
	for i, row := range column {
		cols := toStrings(row)
		if len(cols) > 0 && cols[0] == id {
			return i + 1
		}
	}
	return 0
}

// parseRows converts an A:F matrix into rows, skipping the header and
// rows without an id.
func parseRows(values [][]interface{}) []ports.Row {
	out := make([]ports.Row, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		if i == 0 && isHeader(cols) {
			continue
		}
		id := safeGet(cols, 0)
		if id == "" {
			continue
		}
		out = append(out, ports.Row{
			ID:       id,
			Date:     safeGet(cols, 1),
			Type:     safeGet(cols, 2),
			Category: safeGet(cols, 3),
			Amount:   safeGet(cols, 4),
			Currency: safeGet(cols, 5),
		})
	}
	return out
}
