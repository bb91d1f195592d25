package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcore/internal/config"
	"leadcore/internal/lead"
)

func webhookConfig(url string) config.WebhookConfig {
	return config.WebhookConfig{
		Enabled:        true,
		URL:            url,
		APIToken:       "tok-123",
		LocationID:     "loc-9",
		TeamID:         "team-4",
		WrapperField:   "lead",
		TimeoutSeconds: 2,
	}
}

func submission() lead.Submission {
	return lead.NewSubmission(lead.Payload{
		"firstName": "Jane",
		"email":     "jane@x.com",
		"phone":     "555-0100",
		"consent":   true,
	})
}

func TestForwardSuccess(t *testing.T) {
	var gotBody map[string]json.RawMessage
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("accepted"))
	}))
	defer srv.Close()

	res := New(webhookConfig(srv.URL)).Forward(context.Background(), submission())

	assert.True(t, res.OK)
	assert.Equal(t, "accepted", res.Detail)
	assert.Equal(t, http.StatusOK, res.Status)

	// The payload must arrive under the wrapper field, not bare.
	require.Contains(t, gotBody, "lead")
	var fields map[string]any
	require.NoError(t, json.Unmarshal(gotBody["lead"], &fields))
	assert.Equal(t, "jane@x.com", fields["email"])
	assert.NotEmpty(t, fields["submitted_at"])

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "tok-123", gotHeaders.Get("X-API-Token"))
	assert.Equal(t, "loc-9", gotHeaders.Get("X-Location-Id"))
	assert.Equal(t, "team-4", gotHeaders.Get("X-Team-Id"))
}

func TestForwardSuccessEmptyBodyGetsDefaultDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := New(webhookConfig(srv.URL)).Forward(context.Background(), submission())
	assert.True(t, res.OK)
	assert.Equal(t, "accepted", res.Detail)
}

func TestForwardUpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	res := New(webhookConfig(srv.URL)).Forward(context.Background(), submission())
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	assert.Equal(t, "rate limited", res.Detail)
}

func TestForwardTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	res := New(webhookConfig(srv.URL)).Forward(context.Background(), submission())
	assert.False(t, res.OK)
	assert.Zero(t, res.Status)
	assert.Equal(t, "server error", res.Detail)
}

func TestForwardMissingConfig(t *testing.T) {
	cases := []config.WebhookConfig{
		{},
		{URL: "https://collector.example.com"},
		{URL: "https://collector.example.com", APIToken: "tok"},
		{URL: "https://collector.example.com", APIToken: "tok", LocationID: "loc"},
	}
	for _, cfg := range cases {
		res := New(cfg).Forward(context.Background(), submission())
		assert.False(t, res.OK)
		assert.Zero(t, res.Status)
		assert.NotEmpty(t, res.Detail)
		assert.NotEqual(t, "server error", res.Detail, "missing config should name the gap")
	}
}

func TestForwardSendsExactlyOneRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res := New(webhookConfig(srv.URL)).Forward(context.Background(), submission())
	assert.False(t, res.OK)
	assert.Equal(t, 1, calls, "the relay must not retry")
}

func TestForwardCustomWrapperField(t *testing.T) {
	var gotBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := webhookConfig(srv.URL)
	cfg.WrapperField = "contact"
	res := New(cfg).Forward(context.Background(), submission())
	assert.True(t, res.OK)
	assert.Contains(t, gotBody, "contact")
	assert.NotContains(t, gotBody, "lead")
}
