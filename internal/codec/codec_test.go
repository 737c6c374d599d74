package codec

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}

	t.Run("hex", func(t *testing.T) {
		got := Decode(hex.EncodeToString(raw))
		assert.Equal(t, raw, got)
	})

	t.Run("hex uppercase", func(t *testing.T) {
		got := Decode("DEADBEEF01")
		assert.Equal(t, raw, got)
	})

	t.Run("base64url without padding", func(t *testing.T) {
		got := Decode(base64.RawURLEncoding.EncodeToString(raw))
		assert.Equal(t, raw, got)
	})

	t.Run("base64url with padding", func(t *testing.T) {
		got := Decode(base64.URLEncoding.EncodeToString(raw))
		assert.Equal(t, raw, got)
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		got := Decode("  " + base64.RawURLEncoding.EncodeToString(raw) + "\n")
		assert.Equal(t, raw, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Decode(""))
		assert.Nil(t, Decode("   "))
	})

	t.Run("corrupted input", func(t *testing.T) {
		assert.Nil(t, Decode("not*base64*or*hex"))
		// Length 4k+1 can never be valid base64.
		assert.Nil(t, Decode("abcde"))
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := []byte("poll option digest bytes")
	encoded := Encode(raw)
	assert.NotContains(t, encoded, "=")
	require.Equal(t, raw, Decode(encoded))
}

func TestCanonicalKey(t *testing.T) {
	raw := []byte{0x10, 0x20, 0x30, 0x40}
	want := base64.RawURLEncoding.EncodeToString(raw)

	t.Run("hex id", func(t *testing.T) {
		assert.Equal(t, want, CanonicalKey(hex.EncodeToString(raw)))
	})

	t.Run("base64 id", func(t *testing.T) {
		assert.Equal(t, want, CanonicalKey(base64.URLEncoding.EncodeToString(raw)))
	})

	t.Run("plain id treated as raw bytes", func(t *testing.T) {
		assert.Equal(t, Encode([]byte("opt-1")), CanonicalKey("opt-1"))
	})

	t.Run("hex and base64 of same bytes agree", func(t *testing.T) {
		assert.Equal(t,
			CanonicalKey(hex.EncodeToString(raw)),
			CanonicalKey(base64.RawURLEncoding.EncodeToString(raw)),
		)
	})
}
