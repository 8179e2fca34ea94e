package sampler

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/estimator"
	"github.com/sahithikokkula/samplingapi/pkg/samplesize"
)

// StrataInfo describes one stratum of a drawn stratified sample.
type StrataInfo struct {
	StrataValue string  `json:"strataValue"`
	PopSize     int     `json:"popSize"`
	SampleSize  int     `json:"sampleSize"`
	Variance    float64 `json:"variance,omitempty"`
}

// StratifiedOptions controls Stratified.
type StratifiedOptions struct {
	// StrataColumn labels each row with its stratum.
	StrataColumn string
	// SampleSize is the total number of rows to draw.
	SampleSize int
	// VarianceColumn, when set, switches from proportional to Neyman
	// allocation using the within-stratum variance of that numeric column.
	VarianceColumn string
}

// Stratified groups rows by StrataColumn, allocates SampleSize over the strata
// and draws a simple random sample without replacement inside each stratum.
// Rows of the result are grouped stratum by stratum in label order.
func (s *Sampler) Stratified(t *dataset.Table, opts StratifiedOptions) (*dataset.Table, []StrataInfo, error) {
	var ve estimator.ValidationError
	s.checkSize("sampleSize", opts.SampleSize, &ve)
	labels, ok := t.Column(opts.StrataColumn)
	if !ok {
		ve.Add("strataColumn", "unknown column %q", opts.StrataColumn)
	}
	var measure []json.RawMessage
	if opts.VarianceColumn != "" {
		if measure, ok = t.Column(opts.VarianceColumn); !ok {
			ve.Add("varianceColumn", "unknown column %q", opts.VarianceColumn)
		}
	}
	if err := ve.Err(); err != nil {
		return nil, nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}
	if t.Len() == 0 {
		return nil, nil, ErrEmptyTable
	}

	groups := make(map[string][]int)
	for i, raw := range labels {
		key := labelOf(raw)
		groups[key] = append(groups[key], i)
	}
	strata := make([]StrataInfo, 0, len(groups))
	for key, rows := range groups {
		strata = append(strata, StrataInfo{StrataValue: key, PopSize: len(rows)})
	}
	sort.Slice(strata, func(i, j int) bool { return strata[i].StrataValue < strata[j].StrataValue })

	params := samplesize.AllocationParameters{SampleSize: opts.SampleSize}
	for i := range strata {
		params.StratumNames = append(params.StratumNames, strata[i].StrataValue)
		params.StratumTotalSizes = append(params.StratumTotalSizes, strata[i].PopSize)
	}
	if measure != nil {
		for i := range strata {
			v, err := columnVariance(measure, groups[strata[i].StrataValue])
			if err != nil {
				return nil, nil, fmt.Errorf("stratum %q: %w", strata[i].StrataValue, err)
			}
			strata[i].Variance = v
			params.StratumVariances = append(params.StratumVariances, v)
		}
		// Neyman weights are all zero without any spread; allocate
		// proportionally instead.
		if !anyPositive(params.StratumVariances) {
			params.StratumVariances = nil
		}
	}
	allocation, err := samplesize.Allocate(params)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []int
	for i := range strata {
		members := groups[strata[i].StrataValue]
		n := allocation[strata[i].StrataValue]
		n = max(0, min(n, len(members)))
		for _, j := range s.rng.Perm(len(members))[:n] {
			rows = append(rows, members[j])
		}
		strata[i].SampleSize = n
	}
	return t.Select(rows), strata, nil
}

func anyPositive(xs []float64) bool {
	for _, x := range xs {
		if x > 0 {
			return true
		}
	}
	return false
}

func labelOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func columnVariance(values []json.RawMessage, rows []int) (float64, error) {
	if len(rows) < 2 {
		return 0, nil
	}
	xs := make([]float64, 0, len(rows))
	for _, r := range rows {
		var x float64
		if err := json.Unmarshal(values[r], &x); err != nil {
			return 0, fmt.Errorf("row %d is not numeric: %w", r, err)
		}
		xs = append(xs, x)
	}
	mean := estimator.SRSMean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return ss / float64(len(xs)-1), nil
}
