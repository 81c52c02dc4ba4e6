package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidInput is returned for strings that are not usable gateway URLs.
	ErrInvalidInput = errors.New("invalid gateway url")
	// ErrInsecureTransportNotAllowed is returned for ws:// URLs under a
	// policy that does not allow plaintext transport.
	ErrInsecureTransportNotAllowed = errors.New("insecure transport not allowed")
)

// SecurityPolicy controls which schemes NormalizeURL accepts.
type SecurityPolicy struct {
	// AllowInsecure permits ws:// (and http://). Meant for local gateways
	// and test harnesses only.
	AllowInsecure bool
}

// NormalizeURL validates a user-supplied endpoint and rewrites it into a
// WebSocket URL.
//
// A bare host gets wss://, http and https map to ws and wss. Anything else is
// ErrInvalidInput; plaintext without policy.AllowInsecure is
// ErrInsecureTransportNotAllowed.
func NormalizeURL(raw string, policy SecurityPolicy) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidInput, raw)
	}
	if !strings.Contains(s, "://") {
		s = "wss://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "wss", "https":
		u.Scheme = "wss"
	case "ws", "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidInput)
	}
	if u.Scheme == "ws" && !policy.AllowInsecure {
		return "", fmt.Errorf("%w: %s", ErrInsecureTransportNotAllowed, u.Redacted())
	}
	u.Fragment = ""
	return u.String(), nil
}
