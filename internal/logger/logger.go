// Package logger provides the process-level bootstrap logger. Individual
// components use github.com/hashicorp/go-hclog instead, named after the
// component, for structured key/value logging.
package logger

import "log"

// Info logs an informational bootstrap message.
func Info(format string, args ...interface{}) {
	log.Printf("INFO: "+format, args...)
}

// Warn logs a warning bootstrap message.
func Warn(format string, args ...interface{}) {
	log.Printf("WARN: "+format, args...)
}

// Error logs an error bootstrap message.
func Error(format string, args ...interface{}) {
	log.Printf("ERROR: "+format, args...)
}

// Debug logs a debug bootstrap message.
func Debug(format string, args ...interface{}) {
	log.Printf("DEBUG: "+format, args...)
}
