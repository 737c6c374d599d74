// Package wacrypto implements the messaging-platform poll-vote decryption
// primitive. A poll vote travels as an AES-256-GCM sealed ballot; the key is
// derived from the poll's message secret plus the creation message id, the
// poll creator and the voter, so only participants holding the secret can
// read selections.
package wacrypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	voteKeySize = 32
	voteKeyInfo = "Poll Vote"

	// selectedOptionsField is the ballot protobuf field carrying the
	// SHA-256 digests of the selected option names.
	selectedOptionsField = 1
)

var (
	ErrInvalidKeySize = errors.New("message secret must be 32 bytes")
	ErrShortNonce     = errors.New("vote iv is too short")
)

// Decrypter is the production implementation of the vote-decryption
// primitive.
type Decrypter struct{}

// DecryptVote opens the sealed ballot and returns the raw selected-option
// digests. It returns an error for any key-derivation, cipher, or ballot
// parsing failure; callers treat every failure mode identically.
func (Decrypter) DecryptVote(ctx context.Context, payload, iv []byte, creatorJID, messageID string, secret []byte, voterJID string) ([][]byte, error) {
	_ = ctx
	key, err := deriveVoteKey(secret, messageID, creatorJID, voterJID)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init gcm: %w", err)
	}
	if len(iv) < gcm.NonceSize() {
		return nil, ErrShortNonce
	}

	plaintext, err := gcm.Open(nil, iv[:gcm.NonceSize()], payload, additionalData(messageID, voterJID))
	if err != nil {
		return nil, fmt.Errorf("failed to open ballot: %w", err)
	}

	return parseBallot(plaintext)
}

func deriveVoteKey(secret []byte, messageID, creatorJID, voterJID string) ([]byte, error) {
	if len(secret) != voteKeySize {
		return nil, ErrInvalidKeySize
	}

	salt := make([]byte, voteKeySize)
	info := []byte(messageID + creatorJID + voterJID + voteKeyInfo)

	key := make([]byte, voteKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), key); err != nil {
		return nil, fmt.Errorf("failed to derive vote key: %w", err)
	}
	return key, nil
}

func additionalData(messageID, voterJID string) []byte {
	return []byte(messageID + "\x00" + voterJID)
}

// parseBallot decodes the plaintext ballot, a protobuf message whose first
// field repeats the selected-option digests.
func parseBallot(plaintext []byte) ([][]byte, error) {
	selections := make([][]byte, 0, 2)
	for len(plaintext) > 0 {
		num, typ, n := protowire.ConsumeTag(plaintext)
		if n < 0 {
			return nil, fmt.Errorf("malformed ballot: %w", protowire.ParseError(n))
		}
		plaintext = plaintext[n:]

		if num == selectedOptionsField && typ == protowire.BytesType {
			digest, n := protowire.ConsumeBytes(plaintext)
			if n < 0 {
				return nil, fmt.Errorf("malformed ballot selection: %w", protowire.ParseError(n))
			}
			selections = append(selections, digest)
			plaintext = plaintext[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, plaintext)
		if n < 0 {
			return nil, fmt.Errorf("malformed ballot field %d: %w", num, protowire.ParseError(n))
		}
		plaintext = plaintext[n:]
	}
	return selections, nil
}
