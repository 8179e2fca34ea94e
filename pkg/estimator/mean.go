package estimator

// Mean estimators. None of them guard against degenerate input: an empty
// sample or a zero divisor yields NaN or ±Inf.

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func average(values []float64) float64 {
	return sum(values) / float64(len(values))
}

// SRSMean is the sample average of a simple random sample.
func SRSMean(data []float64) float64 {
	return average(data)
}

// DiffMean estimates the mean with a difference model: the population mean
// of the auxiliary variable plus the average difference in the sample.
func DiffMean(data, auxiliary []float64, auxiliaryMean float64) float64 {
	n := float64(len(data))
	diff := 0.0
	for i := range data {
		diff += data[i] - auxiliary[i]
	}
	return auxiliaryMean + (1.0/n)*diff
}

// RatioMean estimates the mean with a ratio model.
func RatioMean(data, auxiliary []float64, auxiliaryMean float64) float64 {
	ratio := average(data) / average(auxiliary)
	return ratio * auxiliaryMean
}

// HTMean is the Horvitz-Thompson estimator: each observation weighted by the
// inverse of its inclusion probability, scaled by 1/N.
func HTMean(data, inclusionProbabilities []float64, populationSize int) float64 {
	N := float64(populationSize)
	s := 0.0
	for i, y := range data {
		s += 1.0 * y / inclusionProbabilities[i]
	}
	return (1.0 / N) * s
}

// StratifiedMean groups data by label and combines the stratum averages
// weighted by N_h/N. Input is not validated; see StratifiedSample.Group.
func StratifiedMean(data []float64, strata []string, stratumSizes map[string]int) float64 {
	return groupStrata(data, strata, stratumSizes).Mean()
}

// ClusterMean estimates the mean from the totals of m equally sized clusters
// drawn out of M clusters holding N units.
func ClusterMean(data []float64, clusterCount, totalClusterCount, populationSize int) float64 {
	M := float64(totalClusterCount)
	m := float64(clusterCount)
	N := float64(populationSize)
	return (M / N) * sum(data) / m
}

// HeterogeneousClusterMean is the ratio of the sampled cluster totals to the
// sampled cluster sizes.
func HeterogeneousClusterMean(data []float64, clusterSizes []int) float64 {
	units := 0
	for _, s := range clusterSizes {
		units += s
	}
	return sum(data) / float64(units)
}
