// Package funnel implements the ROI projection engine shared by every
// calculator page: a baseline pass through the conversion stages, an
// improved pass with uplift assumptions applied, and the revenue delta.
// All functions are pure; malformed input degrades to zero, never to an
// error or a non-finite number.
package funnel

import (
	"github.com/shopspring/decimal"

	"leadcore/internal/pkg/convert"
)

// Compute runs the full projection: baseline, improved, delta.
func Compute(in Inputs) Result {
	in = sanitize(in)
	baseline := computeBaseline(in)
	improved := computeImproved(in)
	return Result{
		Baseline: baseline,
		Improved: improved,
		Delta:    ComputeDelta(baseline, improved),
	}
}

// ComputeBaseline multiplies the lead volume through each stage rate in
// order and prices the final stage volume at the average ticket value.
func ComputeBaseline(in Inputs) Projection {
	return computeBaseline(sanitize(in))
}

// ComputeImproved applies the stage uplifts before the same sequential
// multiplication. An improved stage can never process more units than
// entered it, regardless of the uplift parameters.
func ComputeImproved(in Inputs) Projection {
	return computeImproved(sanitize(in))
}

// ComputeDelta returns the monthly revenue gain floored at 0 and its
// annualization. Annual is exactly monthly*12.
func ComputeDelta(baseline, improved Projection) Delta {
	monthly := roundMoney(improved.Revenue - baseline.Revenue)
	if monthly < 0 {
		monthly = 0
	}
	return Delta{Monthly: monthly, Annual: monthly * 12}
}

func computeBaseline(in Inputs) Projection {
	vols := make([]float64, len(in.StageRates))
	vol := in.LeadVolume
	for i, rate := range in.StageRates {
		vol = vol * rate / 100
		vols[i] = vol
	}
	return Projection{StageVolumes: vols, Revenue: revenue(vols, in.AvgValue)}
}

func computeImproved(in Inputs) Projection {
	uplifts := upliftByStage(in.Uplifts, len(in.StageRates))
	vols := make([]float64, len(in.StageRates))
	prev := in.LeadVolume
	for i, rate := range in.StageRates {
		u := uplifts[i]
		rate = convert.Percent(rate + u.Points)
		vol := prev * rate / 100
		if u.Multiplier > 0 {
			vol *= u.Multiplier
		}
		if u.DropPct > 0 {
			vol *= 1 - u.DropPct/100
		}
		// An uplift cannot manufacture more units than entered this stage.
		vol = convert.Clamp(vol, 0, prev)
		vols[i] = vol
		prev = vol
	}
	return Projection{StageVolumes: vols, Revenue: revenue(vols, in.AvgValue)}
}

func revenue(vols []float64, avgValue float64) float64 {
	if len(vols) == 0 {
		return 0
	}
	closed := decimal.NewFromFloat(vols[len(vols)-1])
	value := decimal.NewFromFloat(avgValue)
	f, _ := closed.Mul(value).Round(2).Float64()
	return f
}

func roundMoney(f float64) float64 {
	out, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return out
}

// sanitize coerces every numeric field defensively: non-finite and negative
// values become 0, rates and drops clamp into [0,100].
func sanitize(in Inputs) Inputs {
	out := Inputs{
		LeadVolume: convert.NonNegative(in.LeadVolume),
		AvgValue:   convert.NonNegative(in.AvgValue),
	}
	out.StageRates = make([]float64, len(in.StageRates))
	for i, r := range in.StageRates {
		out.StageRates[i] = convert.Percent(r)
	}
	out.Uplifts = make([]StageUplift, 0, len(in.Uplifts))
	for _, u := range in.Uplifts {
		out.Uplifts = append(out.Uplifts, StageUplift{
			Stage:      u.Stage,
			Multiplier: convert.NonNegative(u.Multiplier),
			DropPct:    convert.Percent(u.DropPct),
			Points:     convert.ToFloat64(u.Points),
		})
	}
	return out
}

func upliftByStage(uplifts []StageUplift, stages int) []StageUplift {
	out := make([]StageUplift, stages)
	for _, u := range uplifts {
		if u.Stage < 0 || u.Stage >= stages {
			continue
		}
		merged := out[u.Stage]
		merged.Stage = u.Stage
		if u.Multiplier > 0 {
			merged.Multiplier = u.Multiplier
		}
		if u.DropPct > 0 {
			merged.DropPct = u.DropPct
		}
		merged.Points += u.Points
		out[u.Stage] = merged
	}
	return out
}
