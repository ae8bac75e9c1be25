package env

import (
	"os"
	"strings"
)

// Expand replaces ${VAR} and $VAR with values from the OS environment.
// ${VAR:-fallback} uses fallback when VAR is unset or empty.
func Expand(s string) string {
	return os.Expand(s, lookup)
}

func lookup(name string) string {
	key, fallback, hasFallback := strings.Cut(name, ":-")
	if v := os.Getenv(key); v != "" || !hasFallback {
		return v
	}
	return fallback
}
