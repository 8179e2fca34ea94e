// Package samplesize determines how many observations a sample needs and how
// a fixed sample is distributed over strata.
package samplesize

import (
	"errors"
	"fmt"
	"math"

	"github.com/sahithikokkula/samplingapi/pkg/estimator"
)

var ErrPopulationSizeRequired = errors.New("population size required when drawing without replacement")

// DefaultWorstCasePercentage is the proportion with the largest variance.
const DefaultWorstCasePercentage = 0.5

// SizeParameters describe the precision wanted from a simple random sample:
// with probability 1−alpha the estimate lies within E of the true mean.
type SizeParameters struct {
	E                   float64 `json:"e" validate:"gt=0"`
	Alpha               int     `json:"alpha"`
	WithReplacement     bool    `json:"withReplacement"`
	PopulationSize      *int    `json:"populationSize,omitempty" validate:"omitnil,gt=0"`
	WorstCasePercentage float64 `json:"worstCasePercentage" validate:"gte=0,lte=1"`
}

// NewSizeParameters returns parameters with the default worst case
// percentage; decode requests into its result so an absent field keeps it.
func NewSizeParameters() SizeParameters {
	return SizeParameters{WorstCasePercentage: DefaultWorstCasePercentage}
}

func (p SizeParameters) Validate() error {
	var ve estimator.ValidationError
	estimator.CheckStruct(p, &ve)
	if !p.WithReplacement && p.PopulationSize == nil {
		ve.Add("populationSize", "you need to specify the population size when drawing without replacement")
	}
	return ve.Err()
}

// SRS validates p and returns the minimum simple random sample size.
func SRS(p SizeParameters) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	populationSize := 0
	if p.PopulationSize != nil {
		populationSize = *p.PopulationSize
	}
	return SRSSize(p.E, p.Alpha, p.WithReplacement, populationSize, p.WorstCasePercentage)
}

// SRSSize returns the smallest n for which the confidence interval of an
// estimated proportion has half-width at most e. The result is rounded up.
// populationSize is only read when withReplacement is false.
func SRSSize(e float64, alpha int, withReplacement bool, populationSize int, worstCasePercentage float64) (int, error) {
	z, err := estimator.Quantile(alpha)
	if err != nil {
		return 0, err
	}
	p := worstCasePercentage
	if withReplacement {
		exact := p * (1 - p) * math.Pow(z/e, 2)
		return int(math.Ceil(exact)), nil
	}
	if populationSize <= 0 {
		return 0, fmt.Errorf("srs size: %w", ErrPopulationSizeRequired)
	}
	N := float64(populationSize)
	s := p * (1 - p)
	exact := s / (math.Pow(e/z, 2) + s/N)
	return int(math.Ceil(exact)), nil
}
