// Package schemas ships the JSON Schemas used to validate inbound webhook
// payloads at runtime.
package schemas

import "embed"

//go:embed *.json
var FS embed.FS

// PollVoteEvent is the schema file validating inbound poll vote events.
const PollVoteEvent = "poll_vote_event.json"
