package vote

import (
	"context"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/codec"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/telemetry"
)

// decryptSelection recovers the voter's selection from a retained ciphertext.
// The second return value distinguishes "decrypted to no selection" (true
// with an empty list) from "decryption failed" (false). All failures are
// warnings, never errors: the caller proceeds with no resolvable selection.
func (s *Service) decryptSelection(
	ctx context.Context,
	event *poll.VoteEvent,
	blob *poll.EncryptedVote,
	catalog []poll.Option,
	metaOptions []poll.EventOption,
	pollCtx poll.Context,
) ([]string, bool) {
	logger := s.logger.With().
		Str("poll_id", event.PollID).
		Str("voter_jid", event.VoterJID).
		Logger()

	if s.decrypter == nil {
		logger.Warn().Msg("no vote decrypter configured")
		telemetry.DecryptFailuresTotal.Inc()
		return nil, false
	}

	payload := codec.Decode(blob.EncPayload)
	iv := codec.Decode(blob.EncIV)
	if payload == nil || iv == nil {
		logger.Warn().Msg("failed to decode encrypted vote payload")
		telemetry.DecryptFailuresTotal.Inc()
		return nil, false
	}

	secret := s.resolveSecret(ctx, event.PollID, pollCtx)
	if secret == nil {
		logger.Warn().Msg("no message secret available for encrypted vote")
		telemetry.DecryptFailuresTotal.Inc()
		return nil, false
	}

	creator := pollCtx.CreatorJID()
	if creator == nil {
		logger.Warn().Msg("no creator jid available for encrypted vote")
		telemetry.DecryptFailuresTotal.Inc()
		return nil, false
	}

	var messageID string
	if pollCtx.CreationMessageID != nil {
		messageID = *pollCtx.CreationMessageID
	}

	selections, err := s.decrypter.DecryptVote(ctx, payload, iv, *creator, messageID, secret, event.VoterJID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to decrypt vote")
		telemetry.DecryptFailuresTotal.Inc()
		return nil, false
	}

	// Known option ids are projected into the codec key space once, so the
	// decrypted digests can be matched regardless of the id encoding.
	table := make(map[string]string, len(catalog)+len(metaOptions))
	for _, o := range catalog {
		table[codec.CanonicalKey(o.ID)] = o.ID
	}
	for _, o := range metaOptions {
		if o.ID != "" {
			table[codec.CanonicalKey(o.ID)] = o.ID
		}
	}

	ids := make([]string, 0, len(selections))
	for _, raw := range selections {
		key := codec.Encode(raw)
		if id, ok := table[key]; ok {
			ids = append(ids, id)
			continue
		}
		// Unknown selections keep their encoded key as a synthetic id so no
		// vote is silently lost.
		ids = append(ids, key)
	}
	return poll.NormalizeIDs(ids), true
}

// resolveSecret picks the symmetric key material, favoring whatever the
// merged context carries (event over metadata over prior state), then the
// configured fallback keystore.
func (s *Service) resolveSecret(ctx context.Context, pollID string, pollCtx poll.Context) []byte {
	if pollCtx.MessageSecret != nil {
		if secret := codec.Decode(*pollCtx.MessageSecret); secret != nil {
			return secret
		}
		s.logger.Warn().Str("poll_id", pollID).Msg("failed to decode message secret")
	}
	if s.secrets != nil {
		secret, err := s.secrets.SecretFor(ctx, pollID)
		if err == nil && len(secret) > 0 {
			return secret
		}
	}
	return nil
}
