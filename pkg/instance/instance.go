package instance

import "os"

const fallbackID = "worker-0"

// GetID identifies this process in cron lock tokens and log context.
// WORKER_ID wins over the hostname.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
