package crypto

import (
	"encoding/base64"
	"strings"
)

// B64URL returns unpadded URL-safe base64.
func B64URL(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

// DecodeB64URL decodes URL-safe base64, with or without padding.
func DecodeB64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
