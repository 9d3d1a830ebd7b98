package env

import (
	"os"
	"strings"
)

// Prefix namespaces the process environment, the same prefix config loading
// hands to envconfig.
const Prefix = "BAKERY"

// Get returns BAKERY_<key> when set, then the bare <key>, then fallback.
// Blank values count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + "_" + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
