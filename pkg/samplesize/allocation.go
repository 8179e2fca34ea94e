package samplesize

import (
	"fmt"
	"math"

	"github.com/sahithikokkula/samplingapi/pkg/estimator"
)

// AllocationParameters describe a stratified sample of fixed total size.
// Variances switch from proportional to Neyman allocation; costs are only
// honored together with variances.
type AllocationParameters struct {
	StratumNames      []string  `json:"stratumNames,omitempty"`
	SampleSize        int       `json:"sampleSize" validate:"gt=0"`
	StratumTotalSizes []int     `json:"stratumTotalSizes" validate:"required,min=1,dive,gt=0"`
	StratumVariances  []float64 `json:"stratumVariances,omitempty" validate:"omitempty,dive,gte=0"`
	StratumCosts      []float64 `json:"stratumCosts,omitempty" validate:"omitempty,dive,gt=0"`
}

func (p AllocationParameters) Validate() error {
	var ve estimator.ValidationError
	estimator.CheckStruct(p, &ve)
	k := len(p.StratumTotalSizes)
	if p.StratumNames != nil && len(p.StratumNames) != k {
		ve.Add("stratumTotalSizes", "all provided arrays must have the same length")
	}
	if p.StratumVariances != nil && len(p.StratumVariances) != k {
		ve.Add("stratumTotalSizes", "all provided arrays must have the same length")
	}
	if p.StratumCosts != nil && len(p.StratumCosts) != k {
		ve.Add("stratumTotalSizes", "all provided arrays must have the same length")
	}
	if p.StratumVariances != nil && !anyPositive(p.StratumVariances) {
		ve.Add("stratumVariances", "at least one stratum variance must be positive")
	}
	seen := make(map[string]bool, len(p.StratumNames))
	for _, name := range p.StratumNames {
		if seen[name] {
			ve.Add("stratumNames", "stratum name %q is used more than once", name)
		}
		seen[name] = true
	}
	return ve.Err()
}

func anyPositive(xs []float64) bool {
	for _, x := range xs {
		if x > 0 {
			return true
		}
	}
	return false
}

// Names returns the stratum names, synthesizing stratum1..stratumK when none
// were given.
func (p AllocationParameters) Names() []string {
	if p.StratumNames != nil {
		return p.StratumNames
	}
	names := make([]string, len(p.StratumTotalSizes))
	for i := range names {
		names[i] = fmt.Sprintf("stratum%d", i+1)
	}
	return names
}

// Weights returns N_h·√S_h/√c_h per stratum, with S_h and c_h defaulting to 1.
func (p AllocationParameters) Weights() []float64 {
	weights := make([]float64, len(p.StratumTotalSizes))
	for i, size := range p.StratumTotalSizes {
		variance, cost := 1.0, 1.0
		if p.StratumVariances != nil {
			variance = p.StratumVariances[i]
			if p.StratumCosts != nil {
				cost = p.StratumCosts[i]
			}
		}
		weights[i] = (float64(size) * math.Sqrt(variance)) / math.Sqrt(cost)
	}
	return weights
}

// Allocate validates p and distributes SampleSize over the strata in
// proportion to their weights. Each share is rounded half to even on its own,
// so the shares may not add up to SampleSize exactly.
func Allocate(p AllocationParameters) (map[string]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	weights := p.Weights()
	total := 0.0
	for _, w := range weights {
		total += w
	}

	names := p.Names()
	out := make(map[string]int, len(names))
	for i, w := range weights {
		out[names[i]] = int(math.RoundToEven(float64(p.SampleSize) * w / total))
	}
	return out, nil
}
