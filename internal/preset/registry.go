// Package preset manages the per-page funnel presets: stage names, default
// rates, ticket values and uplift assumptions that each landing page's
// calculator starts from. Presets live in a yaml file and hot-reload on
// change so marketing can tune numbers without a deploy.
package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"leadcore/internal/funnel"
	"leadcore/internal/logger"
	"leadcore/internal/pkg/convert"
)

// Stage names one conversion step and its default rate in percent.
type Stage struct {
	Name string  `yaml:"name" json:"name"`
	Rate float64 `yaml:"rate" json:"rate"`
}

// Preset is one page's calculator configuration. OverridesSchema, when set,
// constrains the client-supplied slider values (min/max guards).
type Preset struct {
	ID              string                 `yaml:"id"`
	Label           string                 `yaml:"label"`
	LeadVolume      float64                `yaml:"lead_volume"`
	AvgValue        float64                `yaml:"avg_value"`
	Stages          []Stage                `yaml:"stages"`
	Uplifts         []funnel.StageUplift   `yaml:"uplifts"`
	OverridesSchema map[string]interface{} `yaml:"overrides_schema"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig maps the presets file root.
type FileConfig struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Snapshot is an immutable view of the loaded presets.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Registry loads the presets file and watches it for updates.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the presets file and starts watching it.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read presets file failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("preset reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// OnChange registers a reload listener.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Snapshot returns the current preset set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Preset returns the preset with the given id.
func (r *Registry) Preset(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Presets[strings.TrimSpace(id)]
	return p, ok
}

// IDs returns the preset ids in stable order.
func (r *Registry) IDs() []string {
	snap := r.Snapshot()
	out := make([]string, 0, len(snap.Presets))
	for id := range snap.Presets {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve merges client-supplied overrides onto the named preset and
// returns ready-to-compute funnel inputs. Overrides are validated against
// the preset's schema when one is configured; string-typed numbers are
// coerced first, since sliders sometimes post "200" instead of 200.
func (r *Registry) Resolve(id string, overrides map[string]any) (funnel.Inputs, error) {
	p, ok := r.Preset(id)
	if !ok {
		return funnel.Inputs{}, fmt.Errorf("unknown preset: %s", id)
	}
	sanitized, _ := sanitizeOverrides(overrides).(map[string]any)
	if p.schemaCompiled != nil && len(sanitized) > 0 {
		if err := p.schemaCompiled.Validate(sanitized); err != nil {
			return funnel.Inputs{}, fmt.Errorf("overrides rejected for preset %s: %w", id, err)
		}
	}

	in := funnel.Inputs{
		LeadVolume: p.LeadVolume,
		AvgValue:   p.AvgValue,
		StageRates: make([]float64, len(p.Stages)),
		Uplifts:    append([]funnel.StageUplift(nil), p.Uplifts...),
	}
	for i, st := range p.Stages {
		in.StageRates[i] = st.Rate
	}

	if v, ok := sanitized["lead_volume"]; ok {
		in.LeadVolume = convert.NonNegative(v)
	}
	if v, ok := sanitized["avg_value"]; ok {
		in.AvgValue = convert.NonNegative(v)
	}
	if raw, ok := sanitized["stage_rates"].([]any); ok {
		for i, v := range raw {
			if i >= len(in.StageRates) {
				break
			}
			in.StageRates[i] = convert.Percent(v)
		}
	}
	return in, nil
}

func (r *Registry) reload() error {
	cfg, err := readPresetFile(r.path)
	if err != nil {
		return err
	}
	presets := make(map[string]Preset)
	for name, p := range cfg.Presets {
		norm := normalizePreset(name, p)
		presets[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  presets,
	}
	r.mu.Unlock()
	logger.Infof("preset registry loaded %d presets from %s", len(presets), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("preset listener")
			cb(snap)
		}(fn)
	}
}

func normalizePreset(name string, p Preset) Preset {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Label = strings.TrimSpace(p.Label)
	p.LeadVolume = convert.NonNegative(p.LeadVolume)
	p.AvgValue = convert.NonNegative(p.AvgValue)
	for i := range p.Stages {
		p.Stages[i].Name = strings.TrimSpace(p.Stages[i].Name)
		p.Stages[i].Rate = convert.Percent(p.Stages[i].Rate)
	}
	if len(p.OverridesSchema) > 0 {
		if compiled, err := compileSchema(p.OverridesSchema); err != nil {
			logger.Errorf("preset schema compile failed id=%s: %v", p.ID, err)
		} else {
			p.schemaCompiled = compiled
		}
	}
	return p
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Presets:  make(map[string]Preset, len(src.Presets)),
	}
	for id, p := range src.Presets {
		dst.Presets[id] = p
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readPresetFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read presets file failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse presets file failed: %w", err)
	}
	return cfg, nil
}

// sanitizeOverrides walks the override map converting string-form numbers
// to float64 so schema validation and merge both see numbers.
func sanitizeOverrides(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeOverrides(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeOverrides(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
