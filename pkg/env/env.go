package env

import "os"

// Get returns the value of key, or fallback when it is unset or empty.
// Platform-injected variables such as PORT override config defaults this way.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
