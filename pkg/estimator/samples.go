package estimator

import (
	"fmt"
	"strings"
)

// SRSSample is a simple random sample with its estimation metadata.
type SRSSample struct {
	Data            []float64 `json:"data" validate:"required,min=1"`
	WithReplacement bool      `json:"withReplacement"`
	// PopulationSize is optional. Without replacement and without a
	// population size the variance falls back to the uncorrected formula.
	PopulationSize    *int `json:"populationSize,omitempty" validate:"omitnil,gt=0"`
	SignificanceLevel int  `json:"significanceLevel"`
}

func (s SRSSample) Validate() error {
	var ve ValidationError
	CheckStruct(s, &ve)
	return ve.Err()
}

// ModelType selects the model used for model-assisted estimation.
type ModelType int

const (
	DifferenceModel ModelType = iota + 1
	RatioModel
)

func (t ModelType) String() string {
	switch t {
	case DifferenceModel:
		return "diff"
	case RatioModel:
		return "ratio"
	default:
		return fmt.Sprintf("ModelType(%d)", int(t))
	}
}

// ParseModelType accepts "diff" and "ratio", case-insensitively.
func ParseModelType(s string) (ModelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "diff", "difference":
		return DifferenceModel, nil
	case "ratio":
		return RatioModel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedModel, s)
	}
}

// ModelSample is a sample for model-assisted estimation with an auxiliary
// variable whose population mean is known.
type ModelSample struct {
	Data              []float64 `json:"data" validate:"required,min=1"`
	AuxiliaryData     []float64 `json:"auxiliaryData" validate:"required,min=1"`
	AuxiliaryMean     float64   `json:"auxiliaryMean"`
	PopulationSize    int       `json:"populationSize" validate:"gt=0"`
	SignificanceLevel int       `json:"significanceLevel"`
}

func (s ModelSample) Validate() error {
	var ve ValidationError
	CheckStruct(s, &ve)
	if len(s.Data) != len(s.AuxiliaryData) {
		ve.Add("data", "you need to specify exactly one auxiliary data point for each main data entry")
	}
	return ve.Err()
}

// DesignSample is a sample drawn with known inclusion probabilities.
type DesignSample struct {
	Data                   []float64 `json:"data" validate:"required,min=1"`
	InclusionProbabilities []float64 `json:"inclusionProbabilities" validate:"required,min=1,dive,gt=0,lte=1"`
	PopulationSize         int       `json:"populationSize" validate:"gt=0"`
	SignificanceLevel      int       `json:"significanceLevel"`
}

func (s DesignSample) Validate() error {
	var ve ValidationError
	CheckStruct(s, &ve)
	if len(s.Data) != len(s.InclusionProbabilities) {
		ve.Add("data", "you need to specify exactly one inclusion probability for each data entry")
	}
	if sum(s.InclusionProbabilities) > 1 {
		ve.Add("inclusionProbabilities", "the sum of all inclusion probabilities must not exceed 1")
	}
	return ve.Err()
}

// StratifiedSample is a sample in which each observation is labelled with the
// stratum it was drawn from.
type StratifiedSample struct {
	Data              []float64      `json:"data" validate:"required,min=1"`
	Strata            []string       `json:"strata" validate:"required,min=1"`
	StratumSizes      map[string]int `json:"stratumSizes" validate:"required,min=1"`
	SignificanceLevel int            `json:"significanceLevel"`
}

func (s StratifiedSample) Validate() error {
	var ve ValidationError
	CheckStruct(s, &ve)
	validateStrata(s.Data, s.Strata, s.StratumSizes, &ve)
	return ve.Err()
}

// Group validates s and groups it by stratum. Every key of StratumSizes
// becomes a stratum, including keys without observations; such a stratum
// makes Mean and Variance NaN.
func (s StratifiedSample) Group() (Strata, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return groupStrata(s.Data, s.Strata, s.StratumSizes), nil
}

// ClusterKind selects the cluster estimator.
type ClusterKind int

const (
	EqualClusters ClusterKind = iota + 1
	HeterogeneousClusters
)

func (k ClusterKind) String() string {
	switch k {
	case EqualClusters:
		return "equal"
	case HeterogeneousClusters:
		return "heterogeneous"
	default:
		return fmt.Sprintf("ClusterKind(%d)", int(k))
	}
}

// ClusterKindOf maps the equal-size flag used by callers to a ClusterKind.
func ClusterKindOf(equalSizes bool) ClusterKind {
	if equalSizes {
		return EqualClusters
	}
	return HeterogeneousClusters
}

// ClusterSample holds one aggregate (total) per sampled cluster.
type ClusterSample struct {
	Data              []float64 `json:"data" validate:"required,min=1"`
	ClusterSizes      []int     `json:"clusterSizes,omitempty" validate:"omitempty,dive,gt=0"`
	PopulationSize    int       `json:"populationSize" validate:"gt=0"`
	ClusterCount      int       `json:"clusterCount" validate:"gt=0"`
	TotalClusterCount int       `json:"totalClusterCount" validate:"gt=0"`
	SignificanceLevel int       `json:"significanceLevel"`
}

func (s ClusterSample) Validate() error {
	var ve ValidationError
	CheckStruct(s, &ve)
	if s.ClusterSizes != nil && len(s.Data) != len(s.ClusterSizes) {
		ve.Add("data", "you need to specify exactly one cluster size for each data entry")
	}
	return ve.Err()
}

func (s ClusterSample) validateFor(kind ClusterKind) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if kind == HeterogeneousClusters && len(s.ClusterSizes) == 0 {
		var ve ValidationError
		ve.Add("clusterSizes", "cluster sizes are required when clusters differ in size")
		return ve.Err()
	}
	return nil
}
