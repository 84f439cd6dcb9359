// Package netutil classifies transport errors from the Bot API client.
package netutil

import (
	"errors"
	"net"
	"net/url"
)

// ShouldRetry reports whether an outbound call failed for a transient
// reason: timeouts, interrupted dials, and the temporary conditions
// net/http surfaces while reaching the Telegram API.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if inner := urlErr.Err; inner != nil && !errors.Is(inner, err) {
			return ShouldRetry(inner)
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return true
		}
		if transient(opErr) || transient(opErr.Err) {
			return true
		}
	}

	return transient(err)
}

func transient(err error) bool {
	var netErr net.Error
	if !errors.As(err, &netErr) {
		return false
	}
	return netErr.Timeout() || netErr.Temporary()
}
