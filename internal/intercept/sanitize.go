package intercept

import "regexp"

// credentialKeyPattern matches parameter names that look like they carry
// secrets. Matched values are replaced, never logged or stored.
var credentialKeyPattern = regexp.MustCompile(
	`(?i)(password|passwd|secret|token|api[_-]?key|apikey|authorization|auth|credential|cookie|session[_-]?id)`)

const redactedPlaceholder = "[REDACTED]"

// SanitizeParams returns a deep copy of params with credential-like fields
// redacted. The input map is never mutated; nested maps and slices are
// sanitized recursively.
func SanitizeParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if credentialKeyPattern.MatchString(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return SanitizeParams(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
