package instance

import "os"

const fallbackID = "instance-0"

// GetID identifies the running process for lock ownership and logs.
// INSTANCE_ID wins over the hostname.
func GetID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
