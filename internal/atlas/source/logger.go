package source

import (
	"log"
	"time"
)

// LogRequest logs an upstream request being made.
func LogRequest(kind, url string) {
	log.Printf("[source] GET %s kind=%s", url, kind)
}

// LogResponse logs an upstream response received.
func LogResponse(kind string, statusCode int, duration time.Duration, bytes int) {
	log.Printf("[source] %s response status=%d duration=%dms bytes=%d",
		kind, statusCode, duration.Milliseconds(), bytes)
}

// LogError logs a failed upstream operation.
func LogError(kind string, err error) {
	log.Printf("[source] %s error: %v", kind, err)
}
