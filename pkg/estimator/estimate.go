package estimator

import "fmt"

// EstimateSRS estimates the population mean from a simple random sample.
func EstimateSRS(s SRSSample) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	populationSize := 0
	if s.PopulationSize != nil {
		populationSize = *s.PopulationSize
	}
	mean := SRSMean(s.Data)
	variance := SRSVariance(s.Data, mean, s.WithReplacement, populationSize)
	return newResult(mean, variance, s.SignificanceLevel)
}

// EstimateModel estimates the population mean with a difference or ratio
// model.
func EstimateModel(s ModelSample, model ModelType) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	var mean, variance float64
	switch model {
	case DifferenceModel:
		mean = DiffMean(s.Data, s.AuxiliaryData, s.AuxiliaryMean)
		variance = DiffVariance(s.Data, s.AuxiliaryData, s.PopulationSize)
	case RatioModel:
		mean = RatioMean(s.Data, s.AuxiliaryData, s.AuxiliaryMean)
		variance = RatioVariance(s.Data, s.AuxiliaryData, s.PopulationSize)
	default:
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedModel, model)
	}
	return newResult(mean, variance, s.SignificanceLevel)
}

// EstimateDesign estimates the population mean with the Horvitz-Thompson
// estimator and its Hansen-Hurwitz variance.
func EstimateDesign(s DesignSample) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	mean := HTMean(s.Data, s.InclusionProbabilities, s.PopulationSize)
	variance := HHVariance(s.Data, s.InclusionProbabilities, mean, s.PopulationSize)
	return newResult(mean, variance, s.SignificanceLevel)
}

// EstimateStratified estimates the population mean from a stratified sample.
func EstimateStratified(s StratifiedSample) (Result, error) {
	strata, err := s.Group()
	if err != nil {
		return Result{}, err
	}
	return newResult(strata.Mean(), strata.Variance(), s.SignificanceLevel)
}

// EstimateCluster estimates the population mean from a cluster sample.
func EstimateCluster(s ClusterSample, kind ClusterKind) (Result, error) {
	if kind != EqualClusters && kind != HeterogeneousClusters {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedClusterKind, kind)
	}
	if err := s.validateFor(kind); err != nil {
		return Result{}, err
	}
	var mean, variance float64
	switch kind {
	case EqualClusters:
		mean = ClusterMean(s.Data, s.ClusterCount, s.TotalClusterCount, s.PopulationSize)
		variance = ClusterVariance(s.Data, s.ClusterCount, s.TotalClusterCount, s.PopulationSize)
	case HeterogeneousClusters:
		mean = HeterogeneousClusterMean(s.Data, s.ClusterSizes)
		variance = HeterogeneousClusterVariance(s.Data, s.ClusterSizes, mean, s.ClusterCount, s.TotalClusterCount, s.PopulationSize)
	}
	return newResult(mean, variance, s.SignificanceLevel)
}
