// Package estimator implements survey-sampling estimators for a population
// mean: point estimates, the sampling variance of each estimate and normal
// confidence intervals, for simple random, model-assisted, design-based,
// stratified and cluster samples.
package estimator

import (
	"encoding/json"
	"fmt"
	"math"
)

// standardNormalQuantiles maps a significance level in percent to the
// two-sided standard normal quantile used for confidence intervals.
var standardNormalQuantiles = map[int]float64{
	10: 1.64,
	5:  1.96,
	1:  2.58,
}

// Quantile returns z for a significance level of 1, 5 or 10 percent.
func Quantile(significanceLevel int) (float64, error) {
	z, ok := standardNormalQuantiles[significanceLevel]
	if !ok {
		return 0, fmt.Errorf("%w: %d (supported: 1, 5, 10)", ErrUnsupportedSignificanceLevel, significanceLevel)
	}
	return z, nil
}

// ConfidenceInterval is a symmetric interval around an estimated mean.
type ConfidenceInterval struct {
	LowerBound        float64 `json:"lowerBound"`
	UpperBound        float64 `json:"upperBound"`
	SignificanceLevel int     `json:"significanceLevel"`
}

// Result is the outcome of one estimation.
type Result struct {
	Mean               float64            `json:"mean"`
	Variance           float64            `json:"variance"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
}

// NewConfidenceInterval builds mean ± z·√variance. A negative variance yields
// NaN bounds.
func NewConfidenceInterval(mean, variance float64, significanceLevel int) (ConfidenceInterval, error) {
	z, err := Quantile(significanceLevel)
	if err != nil {
		return ConfidenceInterval{}, err
	}
	width := z * math.Sqrt(variance)
	return ConfidenceInterval{
		LowerBound:        mean - width,
		UpperBound:        mean + width,
		SignificanceLevel: significanceLevel,
	}, nil
}

func newResult(mean, variance float64, significanceLevel int) (Result, error) {
	ci, err := NewConfidenceInterval(mean, variance, significanceLevel)
	if err != nil {
		return Result{}, err
	}
	return Result{Mean: mean, Variance: variance, ConfidenceInterval: ci}, nil
}

// IsFinite reports whether every number in r is finite.
func (r Result) IsFinite() bool {
	for _, v := range []float64{r.Mean, r.Variance, r.ConfidenceInterval.LowerBound, r.ConfidenceInterval.UpperBound} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Float encodes NaN and infinities as the JSON strings "NaN", "Infinity" and
// "-Infinity"; encoding/json rejects them as numbers.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

func (c ConfidenceInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LowerBound        Float `json:"lowerBound"`
		UpperBound        Float `json:"upperBound"`
		SignificanceLevel int   `json:"significanceLevel"`
	}{Float(c.LowerBound), Float(c.UpperBound), c.SignificanceLevel})
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mean               Float              `json:"mean"`
		Variance           Float              `json:"variance"`
		ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
	}{Float(r.Mean), Float(r.Variance), r.ConfidenceInterval})
}
