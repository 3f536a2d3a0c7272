package database

import (
	"strings"
)

// IsConnectionError reports whether err looks like a transient
// connection problem rather than a SQL or constraint error. Callers use
// it to decide between "retry later" and "this is a bug".
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	connPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"connect: connection",
		"dial tcp",
		"EOF",
		"connection timed out",
		"server closed the connection unexpectedly",
		"could not connect",
		"pool closed",
	}
	for _, p := range connPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
