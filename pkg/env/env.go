// Package env resolves settings that are read before config.Load runs.
package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among keys, checked in order, or
// fallback when none is set.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
