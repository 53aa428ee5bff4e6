package advisory

import (
	"strings"
)

// extractJSONObject finds the outermost JSON object in a model response.
// Models occasionally wrap JSON in prose or code fences despite the prompt.
func extractJSONObject(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return "", &SchemaError{Reason: "no JSON object found in response"}
	}
	return response[start : end+1], nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
