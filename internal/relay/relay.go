// Package relay forwards lead submissions to the configured external
// collector. It issues exactly one outbound POST per submission and absorbs
// every failure mode into a normalized Result; nothing propagates to the
// caller as an error.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"leadcore/internal/config"
	"leadcore/internal/lead"
	"leadcore/internal/logger"
)

const (
	headerAPIToken   = "X-API-Token"
	headerLocationID = "X-Location-Id"
	headerTeamID     = "X-Team-Id"

	detailAccepted    = "accepted"
	detailServerError = "server error"

	// Upstream bodies can be large and are only echoed into logs/results.
	maxBodyBytes = 64 << 10
)

// Result is the normalized outcome of one forward attempt. Status is 0 when
// no upstream response was obtained.
type Result struct {
	OK     bool
	Detail string
	Status int
}

// Relay holds the collector endpoint, its credentials and one shared HTTP
// client. Configuration is read at construction and never mutated.
type Relay struct {
	cfg    config.WebhookConfig
	client *http.Client
}

// New builds a relay from webhook configuration. The client timeout comes
// from config (default applied by the config layer).
func New(cfg config.WebhookConfig) *Relay {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Relay{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (r *Relay) SetHTTPClient(client *http.Client) {
	r.client = client
}

// Forward wraps the submission payload under the configured wrapper field
// and POSTs it upstream. Classification is purely by HTTP status range; the
// body is read as text because the collector sometimes answers non-JSON.
func (r *Relay) Forward(ctx context.Context, sub lead.Submission) Result {
	if err := r.configComplete(); err != "" {
		logger.Errorf("[relay] submission=%s dropped: %s", sub.ID, err)
		return Result{OK: false, Detail: err}
	}

	wrapper := strings.TrimSpace(r.cfg.WrapperField)
	if wrapper == "" {
		wrapper = "lead"
	}
	body, err := json.Marshal(map[string]any{wrapper: sub.Payload})
	if err != nil {
		logger.Errorf("[relay] submission=%s marshal failed: %v", sub.ID, err)
		return Result{OK: false, Detail: detailServerError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		logger.Errorf("[relay] submission=%s request build failed: %v", sub.ID, err)
		return Result{OK: false, Detail: detailServerError}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIToken, r.cfg.APIToken)
	req.Header.Set(headerLocationID, r.cfg.LocationID)
	req.Header.Set(headerTeamID, r.cfg.TeamID)

	resp, err := r.client.Do(req)
	if err != nil {
		// Transport failure: no status obtained. The cause stays in the
		// operator log; the caller only sees a generic message.
		logger.Errorf("[relay] submission=%s transport failed: %v", sub.ID, err)
		return Result{OK: false, Detail: detailServerError}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		logger.Errorf("[relay] submission=%s read body failed status=%d: %v", sub.ID, resp.StatusCode, readErr)
		return Result{OK: false, Detail: detailServerError}
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode/100 == 2 {
		detail := text
		if detail == "" {
			detail = detailAccepted
		}
		logger.Infof("[relay] submission=%s forwarded status=%d", sub.ID, resp.StatusCode)
		return Result{OK: true, Detail: detail, Status: resp.StatusCode}
	}

	logger.Errorf("[relay] submission=%s upstream rejected status=%d msg=%s",
		sub.ID, resp.StatusCode, upstreamMessage(text))
	return Result{OK: false, Detail: text, Status: resp.StatusCode}
}

func (r *Relay) configComplete() string {
	switch {
	case strings.TrimSpace(r.cfg.URL) == "":
		return "webhook endpoint is not configured"
	case strings.TrimSpace(r.cfg.APIToken) == "":
		return "webhook api token is not configured"
	case strings.TrimSpace(r.cfg.LocationID) == "" || strings.TrimSpace(r.cfg.TeamID) == "":
		return "webhook tenant identifiers are not configured"
	}
	return ""
}

// upstreamMessage pulls a human-readable message out of JSON error bodies
// for the log line. Classification never depends on it.
func upstreamMessage(body string) string {
	if body == "" {
		return "<empty>"
	}
	if gjson.Valid(body) {
		parsed := gjson.Parse(body)
		for _, key := range []string{"message", "error", "detail"} {
			if v := strings.TrimSpace(parsed.Get(key).String()); v != "" {
				return v
			}
		}
	}
	if len(body) > 200 {
		return body[:200] + "..."
	}
	return body
}
