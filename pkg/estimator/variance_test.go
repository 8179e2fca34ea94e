package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSRSVariance(t *testing.T) {
	cases := []struct {
		name            string
		data            []float64
		withReplacement bool
		populationSize  int
		want            float64
	}{
		{"with replacement", primaryData, true, 0, 6.5},
		{"with replacement ignores population", primaryData, true, 20, 6.5},
		{"without replacement N=20", primaryData, false, 20, 4.875},
		{"without replacement N=50", primaryData, false, 50, 5.85},
		{"constant sample", []float64{0, 0}, true, 0, 0},
		{"constant sample without replacement", []float64{0, 0}, false, 50, 0},
		{"unknown population falls back to uncorrected", primaryData, false, 0, 6.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mean := SRSMean(tc.data)
			assert.InDelta(t, tc.want, SRSVariance(tc.data, mean, tc.withReplacement, tc.populationSize), 5e-5)
		})
	}
}

func TestSRSVarianceSingleObservationIsNotFinite(t *testing.T) {
	data := []float64{42}
	v := SRSVariance(data, SRSMean(data), true, 0)
	assert.True(t, math.IsNaN(v) || math.IsInf(v, 0), "got %v", v)
}

func TestDiffVariance(t *testing.T) {
	cases := []struct {
		want  float64
		drawn []int
	}{
		{0.13, []int{1, 2, 3}},
		{0.13, []int{1, 2, 4}},
		{0.31, []int{1, 2, 5}},
		{0.31, []int{1, 3, 4}},
		{0.31, []int{1, 3, 5}},
		{0.58, []int{1, 4, 5}},
		{0.31, []int{2, 3, 4}},
		{0.13, []int{2, 3, 5}},
		{0.53, []int{2, 4, 5}},
		{0.58, []int{3, 4, 5}},
	}
	for _, tc := range cases {
		got := DiffVariance(pick(primaryData, tc.drawn...), pick(secondaryData, tc.drawn...), 5)
		assert.InDelta(t, tc.want, got, 5e-3, "drawn %v", tc.drawn)
	}
}

func TestRatioVariance(t *testing.T) {
	cases := []struct {
		want  float64
		drawn []int
	}{
		{0.13, []int{1, 2, 3}},
		{0.03, []int{1, 2, 4}},
		{0.42, []int{1, 2, 5}},
		{0.16, []int{1, 3, 4}},
		{0.35, []int{1, 3, 5}},
		{0.67, []int{1, 4, 5}},
		{0.14, []int{2, 3, 4}},
		{0.13, []int{2, 3, 5}},
		{0.55, []int{2, 4, 5}},
		{0.55, []int{3, 4, 5}},
	}
	for _, tc := range cases {
		got := RatioVariance(pick(primaryData, tc.drawn...), pick(secondaryData, tc.drawn...), 5)
		assert.InDelta(t, tc.want, got, 5e-3, "drawn %v", tc.drawn)
	}
}

func TestHHVariance(t *testing.T) {
	cases := []struct {
		want  float64
		drawn []int
	}{
		{25.75, []int{1, 2, 3}},
		{24.25, []int{1, 2, 4}},
		{240.25, []int{1, 2, 5}},
		{1.75, []int{1, 3, 4}},
		{289.75, []int{1, 3, 5}},
		{282.25, []int{1, 4, 5}},
		{18.25, []int{2, 3, 4}},
		{218.25, []int{2, 3, 5}},
		{208.00, []int{2, 4, 5}},
		{264.25, []int{3, 4, 5}},
	}
	for _, tc := range cases {
		data := pick(primaryData, tc.drawn...)
		probs := pick(inclusionData, tc.drawn...)
		mean := HTMean(data, probs, 20)
		assert.InDelta(t, tc.want, HHVariance(data, probs, mean, 20), 5e-3, "drawn %v", tc.drawn)
	}
}

func TestStratifiedVariance(t *testing.T) {
	cases := []struct {
		want  float64
		drawn []int
	}{
		{2.20, []int{1, 2, 4, 5}},
		{2.25, []int{1, 3, 4, 5}},
		{2.20, []int{2, 3, 4, 5}},
		{6.72, []int{1, 2, 4, 6}},
		{6.76, []int{1, 3, 4, 6}},
		{6.72, []int{2, 3, 4, 6}},
		{1.25, []int{1, 2, 5, 6}},
		{1.29, []int{1, 3, 5, 6}},
		{1.25, []int{2, 3, 5, 6}},
	}
	for _, tc := range cases {
		got := StratifiedVariance(pick(stratumData, tc.drawn...), pick(stratumLabels, tc.drawn...), stratumSizes)
		assert.InDelta(t, tc.want, got, 5e-3, "drawn %v", tc.drawn)
	}
}

func TestClusterVariance(t *testing.T) {
	assert.Equal(t, 0.1305, ClusterVariance(clusterTotals, 4, 40, 2000))
}

func TestHeterogeneousClusterVariance(t *testing.T) {
	mean := HeterogeneousClusterMean(clusterTotals, clusterSizes)
	assert.Equal(t, 0.162, HeterogeneousClusterVariance(clusterTotals, clusterSizes, mean, 4, 40, 2000))
}

func TestEstimatorsAreDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t,
			math.Float64bits(StratifiedVariance(stratumData, stratumLabels, stratumSizes)),
			math.Float64bits(StratifiedVariance(stratumData, stratumLabels, stratumSizes)))
		assert.Equal(t,
			math.Float64bits(HHVariance(primaryData, inclusionData, 1, 20)),
			math.Float64bits(HHVariance(primaryData, inclusionData, 1, 20)))
	}
}
