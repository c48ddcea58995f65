package validators

import "strings"

// maxFilterLen caps free-text filter terms before they reach a LIKE query.
const maxFilterLen = 120

// SanitizeString trims surrounding whitespace and caps the length of a
// free-text query value such as a customer or product filter.
func SanitizeString(input string) string {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) > maxFilterLen {
		return trimmed[:maxFilterLen]
	}
	return trimmed
}
