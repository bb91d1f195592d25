package config

// Config is the process-wide configuration. Read once at startup, never
// mutated at runtime.
type Config struct {
	App     AppConfig     `toml:"app"`
	Webhook WebhookConfig `toml:"webhook"`
	Funnel  FunnelConfig  `toml:"funnel"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// WebhookConfig holds the upstream lead collector endpoint and its
// credentials: one API token plus the two tenant identifiers the collector
// requires on every request.
type WebhookConfig struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	APIToken       string `toml:"api_token"`
	LocationID     string `toml:"location_id"`
	TeamID         string `toml:"team_id"`
	WrapperField   string `toml:"wrapper_field"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type FunnelConfig struct {
	PresetsPath string `toml:"presets_path"`
}
