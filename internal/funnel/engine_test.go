package funnel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBaseline(t *testing.T) {
	in := Inputs{
		LeadVolume: 200,
		StageRates: []float64{40, 60, 25},
		AvgValue:   1500,
	}
	p := ComputeBaseline(in)
	require.Len(t, p.StageVolumes, 3)
	assert.InDelta(t, 80, p.StageVolumes[0], 1e-9)
	assert.InDelta(t, 48, p.StageVolumes[1], 1e-9)
	assert.InDelta(t, 12, p.StageVolumes[2], 1e-9)
	assert.Equal(t, 18000.0, p.Revenue)
}

func TestBaselineVolumesNonIncreasing(t *testing.T) {
	cases := []Inputs{
		{LeadVolume: 200, StageRates: []float64{40, 60, 25}},
		{LeadVolume: 1, StageRates: []float64{100, 100, 100, 100}},
		{LeadVolume: 5000, StageRates: []float64{99.9, 0.1, 50}},
		{LeadVolume: 0, StageRates: []float64{40, 60}},
	}
	for _, in := range cases {
		p := ComputeBaseline(in)
		prev := in.LeadVolume
		for i, v := range p.StageVolumes {
			assert.LessOrEqual(t, v, prev, "stage %d grew", i)
			assert.GreaterOrEqual(t, v, 0.0)
			prev = v
		}
	}
}

func TestImprovedMultiplierAndDrop(t *testing.T) {
	in := Inputs{
		LeadVolume: 200,
		StageRates: []float64{40, 60, 25},
		AvgValue:   1500,
		Uplifts: []StageUplift{
			{Stage: 0, Multiplier: 2.0, DropPct: 7},
		},
	}
	p := ComputeImproved(in)
	// 200*0.40*2.0*0.93 = 148.8, under the 200 clamp.
	assert.InDelta(t, 148.8, p.StageVolumes[0], 1e-9)
	assert.InDelta(t, 148.8*0.60, p.StageVolumes[1], 1e-9)
	assert.InDelta(t, 148.8*0.60*0.25, p.StageVolumes[2], 1e-9)
}

func TestImprovedFirstStageClampedToLeadVolume(t *testing.T) {
	in := Inputs{
		LeadVolume: 100,
		StageRates: []float64{90, 50},
		AvgValue:   100,
		Uplifts: []StageUplift{
			{Stage: 0, Multiplier: 5.0},
		},
	}
	p := ComputeImproved(in)
	assert.Equal(t, 100.0, p.StageVolumes[0])
	assert.InDelta(t, 50, p.StageVolumes[1], 1e-9)
}

func TestImprovedAdditivePointsClampedTo100(t *testing.T) {
	in := Inputs{
		LeadVolume: 100,
		StageRates: []float64{40, 80},
		AvgValue:   100,
		Uplifts: []StageUplift{
			{Stage: 1, Points: 35},
		},
	}
	p := ComputeImproved(in)
	// 80 + 35 clamps to 100.
	assert.InDelta(t, 40, p.StageVolumes[0], 1e-9)
	assert.InDelta(t, 40, p.StageVolumes[1], 1e-9)
}

func TestCombinedUpliftScenario(t *testing.T) {
	in := Inputs{
		LeadVolume: 200,
		StageRates: []float64{40, 60, 25},
		AvgValue:   1500,
		Uplifts: []StageUplift{
			{Stage: 0, Multiplier: 2.0, DropPct: 7},
			{Stage: 1, Points: 35},
			{Stage: 2, Points: 25},
		},
	}
	res := Compute(in)
	assert.Equal(t, 18000.0, res.Baseline.Revenue)

	assert.InDelta(t, 148.8, res.Improved.StageVolumes[0], 1e-9)
	assert.InDelta(t, 148.8*0.95, res.Improved.StageVolumes[1], 1e-9)
	assert.InDelta(t, 148.8*0.95*0.50, res.Improved.StageVolumes[2], 1e-9)

	assert.GreaterOrEqual(t, res.Delta.Monthly, 0.0)
	assert.Equal(t, res.Delta.Monthly*12, res.Delta.Annual)
	assert.LessOrEqual(t, res.Improved.StageVolumes[0], in.LeadVolume)
}

func TestDeltaFlooredAtZero(t *testing.T) {
	in := Inputs{
		LeadVolume: 100,
		StageRates: []float64{50, 50},
		AvgValue:   1000,
		Uplifts: []StageUplift{
			// A "improvement" that actually reduces throughput.
			{Stage: 0, DropPct: 80},
		},
	}
	res := Compute(in)
	assert.Equal(t, 0.0, res.Delta.Monthly)
	assert.Equal(t, 0.0, res.Delta.Annual)
}

func TestAnnualIsTwelveTimesMonthly(t *testing.T) {
	cases := []Inputs{
		{LeadVolume: 200, StageRates: []float64{40, 60, 25}, AvgValue: 1500,
			Uplifts: []StageUplift{{Stage: 0, Multiplier: 2, DropPct: 7}}},
		{LeadVolume: 33, StageRates: []float64{17.5, 42.1}, AvgValue: 249.99,
			Uplifts: []StageUplift{{Stage: 1, Points: 10}}},
		{LeadVolume: 0, StageRates: []float64{40}, AvgValue: 100},
	}
	for _, in := range cases {
		res := Compute(in)
		assert.Equal(t, res.Delta.Monthly*12, res.Delta.Annual)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	in := Inputs{
		LeadVolume: 123.4,
		StageRates: []float64{37.2, 58.9, 21.3},
		AvgValue:   987.65,
		Uplifts: []StageUplift{
			{Stage: 0, Multiplier: 1.8, DropPct: 5},
			{Stage: 2, Points: 12},
		},
	}
	first := Compute(in)
	second := Compute(in)
	assert.Equal(t, first, second)
}

func TestMalformedInputDegradesToZero(t *testing.T) {
	garbage := Inputs{
		LeadVolume: math.NaN(),
		StageRates: []float64{math.Inf(1), -20, 150},
		AvgValue:   -500,
	}
	res := Compute(garbage)
	zeroed := Compute(Inputs{
		LeadVolume: 0,
		StageRates: []float64{0, 0, 100},
		AvgValue:   0,
	})
	assert.Equal(t, zeroed, res)
	for _, v := range res.Baseline.StageVolumes {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
	assert.Equal(t, 0.0, res.Delta.Monthly)
}

func TestUpliftOutOfRangeStageIgnored(t *testing.T) {
	in := Inputs{
		LeadVolume: 100,
		StageRates: []float64{50},
		AvgValue:   100,
		Uplifts: []StageUplift{
			{Stage: -1, Multiplier: 3},
			{Stage: 5, Points: 40},
		},
	}
	res := Compute(in)
	assert.Equal(t, res.Baseline, res.Improved)
}

func TestNoStagesYieldsZeroRevenue(t *testing.T) {
	res := Compute(Inputs{LeadVolume: 100, AvgValue: 1000})
	assert.Empty(t, res.Baseline.StageVolumes)
	assert.Equal(t, 0.0, res.Baseline.Revenue)
	assert.Equal(t, 0.0, res.Delta.Annual)
}
