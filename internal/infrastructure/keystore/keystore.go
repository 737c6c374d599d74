package keystore

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/codec"
)

// StaticKeyStore is an in-memory fallback source of poll message secrets,
// for polls whose key material never arrived through an event or the
// metadata lookup.
type StaticKeyStore struct {
	secrets map[string][]byte
}

// NewFromEnv builds a keystore from environment variables.
// POLL_SECRETS format: "pollId:secret,pollId2:secret" where secret is hex
// or base64url. POLL_SECRET_FOR_<pollId> overrides or adds a single poll.
func NewFromEnv() (*StaticKeyStore, error) {
	secrets := make(map[string][]byte)

	raw := os.Getenv("POLL_SECRETS")
	if raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New("invalid POLL_SECRETS format")
			}
			secret := codec.Decode(parts[1])
			if secret == nil {
				return nil, errors.New("invalid POLL_SECRETS secret encoding")
			}
			secrets[parts[0]] = secret
		}
	}

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "POLL_SECRET_FOR_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		pollID := strings.TrimPrefix(parts[0], "POLL_SECRET_FOR_")
		if pollID == "" {
			continue
		}
		if secret := codec.Decode(parts[1]); secret != nil {
			secrets[pollID] = secret
		}
	}

	return &StaticKeyStore{secrets: secrets}, nil
}

// SecretFor returns the fallback secret for a poll.
func (s *StaticKeyStore) SecretFor(ctx context.Context, pollID string) ([]byte, error) {
	_ = ctx
	secret, ok := s.secrets[pollID]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return secret, nil
}
