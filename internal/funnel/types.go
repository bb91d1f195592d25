package funnel

// StageUplift describes a hypothetical improvement applied to one funnel
// stage. Multiplier and DropPct act on the stage volume (speed-to-lead
// style uplift followed by qualification friction); Points is added to the
// stage conversion rate directly. A single computation may carry both kinds
// across different stages.
type StageUplift struct {
	Stage      int     `json:"stage" yaml:"stage"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier"`
	DropPct    float64 `json:"drop_pct,omitempty" yaml:"drop_pct"`
	Points     float64 `json:"points,omitempty" yaml:"points"`
}

// Inputs is one immutable set of calculator inputs. StageRates are
// percentages in funnel order (e.g. lead→booked, booked→shown, shown→closed).
type Inputs struct {
	LeadVolume float64       `json:"lead_volume"`
	StageRates []float64     `json:"stage_rates"`
	AvgValue   float64       `json:"avg_value"`
	Uplifts    []StageUplift `json:"uplifts,omitempty"`
}

// Projection holds the per-stage volumes and the resulting revenue for one
// pass through the funnel.
type Projection struct {
	StageVolumes []float64 `json:"stage_volumes"`
	Revenue      float64   `json:"revenue"`
}

// Delta is the revenue difference between the improved and baseline
// projections, floored at 0.
type Delta struct {
	Monthly float64 `json:"monthly"`
	Annual  float64 `json:"annual"`
}

// Result is the full output of one computation. Recomputed fresh on every
// input change; never persisted.
type Result struct {
	Baseline Projection `json:"baseline"`
	Improved Projection `json:"improved"`
	Delta    Delta      `json:"delta"`
}
