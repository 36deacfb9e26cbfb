package observability

import "unicode"

// sanitizeString drops control characters and truncates to limit runes so request values cannot forge log lines.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	cleaned := make([]rune, 0, min(len(value), limit))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		if len(cleaned) == limit {
			break
		}
		cleaned = append(cleaned, r)
	}
	return string(cleaned)
}

// SanitizeRoute cleans a route or path for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod cleans an HTTP method for logging.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}
