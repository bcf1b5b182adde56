// Package environment provides helpers for loading process configuration
// from environment variables.
//
// Helpers return either the value or a default; required variables return an
// error instead of exiting so the decision stays with the caller.
package environment

import (
	"fmt"
	"os"
	"strings"
)

// StringOr returns the value of the named environment variable, or
// defaultValue when the variable is unset or empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// RequiredString returns the value of the named environment variable or an
// error when it is unset or empty.
func RequiredString(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("required environment variable %q is not set", name)
	}
	return v, nil
}

// StringSliceOr parses the named environment variable as a comma-separated
// list, trimming whitespace and dropping empty elements. Returns defaultValue
// when the variable is unset or the parsed list is empty.
func StringSliceOr(name string, defaultValue []string) []string {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
