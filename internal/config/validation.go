package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate performs fail-fast checks so a misconfigured webhook surfaces at
// startup instead of as a runtime relay failure.
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Webhook.validate(); err != nil {
		return err
	}
	if err := c.Funnel.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (w *WebhookConfig) validate() error {
	if !w.Enabled {
		return nil
	}
	raw := strings.TrimSpace(w.URL)
	if raw == "" {
		return fmt.Errorf("webhook.url cannot be empty when webhook.enabled")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("webhook.url is not a valid URL: %s", w.URL)
	}
	if strings.TrimSpace(w.APIToken) == "" {
		return fmt.Errorf("webhook.api_token cannot be empty when webhook.enabled")
	}
	if strings.TrimSpace(w.LocationID) == "" {
		return fmt.Errorf("webhook.location_id cannot be empty when webhook.enabled")
	}
	if strings.TrimSpace(w.TeamID) == "" {
		return fmt.Errorf("webhook.team_id cannot be empty when webhook.enabled")
	}
	if w.TimeoutSeconds < 0 {
		return fmt.Errorf("webhook.timeout_seconds must be >= 0")
	}
	return nil
}

func (f *FunnelConfig) validate() error {
	if strings.TrimSpace(f.PresetsPath) == "" {
		return fmt.Errorf("funnel.presets_path cannot be empty")
	}
	return nil
}
