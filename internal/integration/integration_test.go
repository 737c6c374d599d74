//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	httpapi "github.com/alangsilva86/leadengine-corban-sub002/internal/api/http"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/pipeline"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/vote"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/memstore"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/sse"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/wacrypto"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	store := memstore.New()
	messages := memstore.NewMessageIndex()

	voteSvc := vote.NewService(store, nil, &wacrypto.Decrypter{}, nil, logger)
	votePipeline, err := pipeline.New(voteSvc, messages, logger)
	require.NoError(t, err)

	apiServer := httpapi.NewServer(votePipeline, store, messages, nil, sse.NewHub(), "", logger)

	server := httptest.NewServer(apiServer.Router())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, headers map[string]string, body interface{}, out interface{}) int {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestVoteLifecycleIntegration(t *testing.T) {
	server := newTestServer(t)

	event := map[string]interface{}{
		"pollId":    "poll-int-1",
		"voterJid":  "5511999999999@s.whatsapp.net",
		"chatId":    "5511999999999@s.whatsapp.net",
		"messageId": "msg-1",
		"optionIds": []string{"opt-a"},
		"options": []map[string]interface{}{
			{"id": "opt-a", "title": "Yes", "index": 0},
			{"id": "opt-b", "title": "No", "index": 1},
		},
	}
	headers := map[string]string{"X-Tenant-ID": "tenant-1"}

	var first struct {
		Status  string `json:"status"`
		PollID  string `json:"pollId"`
		Rewrite *struct {
			Status   string `json:"status"`
			TenantID string `json:"tenantId"`
			ChatID   string `json:"chatId"`
		} `json:"rewrite"`
		Fallback *struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		} `json:"fallback"`
	}
	code := postJSON(t, server.URL+"/v1/webhooks/poll-votes", headers, event, &first)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "persisted", first.Status)
	require.Equal(t, "poll-int-1", first.PollID)
	require.NotNil(t, first.Rewrite)
	require.Equal(t, "rewrite", first.Rewrite.Status)
	require.Equal(t, "tenant-1", first.Rewrite.TenantID)
	require.NotNil(t, first.Fallback)
	require.Equal(t, "requireInbox", first.Fallback.Status)

	record := map[string]interface{}{
		"tenantId":          "tenant-1",
		"chatId":            "5511999999999@s.whatsapp.net",
		"messageId":         "out-msg-1",
		"selectedOptionIds": []string{"opt-a"},
	}
	code = postJSON(t, server.URL+"/v1/polls/poll-int-1/messages", nil, record, nil)
	require.Equal(t, http.StatusOK, code)

	var second struct {
		Status   string `json:"status"`
		Fallback *struct {
			Status            string `json:"status"`
			Reason            string `json:"reason"`
			ExistingMessageID string `json:"existingMessageId"`
		} `json:"fallback"`
	}
	code = postJSON(t, server.URL+"/v1/webhooks/poll-votes", headers, event, &second)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "duplicate", second.Status)
	require.NotNil(t, second.Fallback)
	require.Equal(t, "skip", second.Fallback.Status)
	require.Equal(t, "up_to_date", second.Fallback.Reason)
	require.Equal(t, "out-msg-1", second.Fallback.ExistingMessageID)

	resp, err := http.Get(server.URL + "/v1/polls/poll-int-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state struct {
		PollID     string `json:"pollId"`
		Aggregates struct {
			TotalVoters  int            `json:"totalVoters"`
			TotalVotes   int            `json:"totalVotes"`
			OptionTotals map[string]int `json:"optionTotals"`
		} `json:"aggregates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.Equal(t, "poll-int-1", state.PollID)
	require.Equal(t, 1, state.Aggregates.TotalVoters)
	require.Equal(t, 1, state.Aggregates.TotalVotes)
	require.Equal(t, 1, state.Aggregates.OptionTotals["opt-a"])
}

func TestInvalidVoteRejectedIntegration(t *testing.T) {
	server := newTestServer(t)

	var out struct {
		Status string   `json:"status"`
		Reason string   `json:"reason"`
		Issues []string `json:"issues"`
	}
	code := postJSON(t, server.URL+"/v1/webhooks/poll-votes", nil, map[string]interface{}{
		"voterJid": "voter@s.whatsapp.net",
	}, &out)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "invalid", out.Status)
	require.Equal(t, "schema_error", out.Reason)
	require.NotEmpty(t, out.Issues)
}
