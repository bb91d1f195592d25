package config

import "strings"

const (
	defaultAppEnv             = "dev"
	defaultAppLogLevel        = "info"
	defaultAppHTTPAddr        = ":8788"
	defaultWebhookWrapper     = "lead"
	defaultWebhookTimeoutSecs = 15
	defaultFunnelPresetsPath  = "configs/presets.yaml"
)

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Webhook.applyDefaults(keys)
	c.Funnel.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (w *WebhookConfig) applyDefaults(keys keySet) {
	if w == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("webhook.wrapper_field", &w.WrapperField, defaultWebhookWrapper),
		fieldDefault{
			key:   "webhook.timeout_seconds",
			need:  func() bool { return w.TimeoutSeconds <= 0 },
			apply: func() { w.TimeoutSeconds = defaultWebhookTimeoutSecs },
		},
	)
}

func (f *FunnelConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("funnel.presets_path", &f.PresetsPath, defaultFunnelPresetsPath),
	)
}
