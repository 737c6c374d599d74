// Package codec handles the flexible binary encodings used by poll vote
// payloads. Upstream sources deliver key material and option identifiers as
// either hex or base64url (with or without padding); everything is normalized
// into a single base64url-no-padding key space so lookups are
// encoding-agnostic.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Decode interprets value as hex or base64url and returns the raw bytes.
// Base64 candidates are round-trip verified (re-encoded and compared) so that
// silently corrupted input is rejected. Returns nil when value cannot be
// decoded.
func Decode(value string) []byte {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if isHex(value) {
		raw, err := hex.DecodeString(value)
		if err == nil {
			return raw
		}
	}

	trimmed := strings.TrimRight(value, "=")
	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil
	}
	if base64.RawURLEncoding.EncodeToString(raw) != trimmed {
		return nil
	}
	return raw
}

// Encode renders raw bytes into the canonical base64url-no-padding key space.
func Encode(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// CanonicalKey maps an identifier into the canonical key space. Identifiers
// that decode as hex or base64url are re-encoded from their raw bytes;
// anything else is treated as raw bytes directly, so plain ids like "opt-1"
// still get a stable key.
func CanonicalKey(id string) string {
	raw := Decode(id)
	if raw == nil {
		raw = []byte(id)
	}
	return Encode(raw)
}

func isHex(value string) bool {
	if len(value) == 0 || len(value)%2 != 0 {
		return false
	}
	for _, c := range value {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
