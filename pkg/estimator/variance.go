package estimator

// Variance estimators for the means in mean.go. Each one divides by n(n−1),
// so a single observation gives a non-finite result.

func sumOfSquares(values []float64, mean float64) float64 {
	s := 0.0
	for _, y := range values {
		d := y - mean
		s += d * d
	}
	return s
}

func finitePopulationCorrection(n float64, populationSize int) float64 {
	N := float64(populationSize)
	return (N - n) / N
}

// SRSVariance estimates the variance of the SRS mean. Without replacement the
// finite population correction (N−n)/N is applied; when populationSize is not
// positive it is treated as unknown and the uncorrected formula is used even
// if withReplacement is false.
func SRSVariance(data []float64, mean float64, withReplacement bool, populationSize int) float64 {
	n := float64(len(data))
	factor := 1.0
	if !withReplacement && populationSize > 0 {
		factor = finitePopulationCorrection(n, populationSize)
	}
	return factor * (1 / (n * (n - 1))) * sumOfSquares(data, mean)
}

// DiffVariance estimates the variance of DiffMean.
func DiffVariance(data, auxiliary []float64, populationSize int) float64 {
	n := float64(len(data))
	yBar := average(data)
	xBar := average(auxiliary)

	squares := 0.0
	for i := range data {
		d := data[i] - auxiliary[i] - (yBar - xBar)
		squares += d * d
	}
	return finitePopulationCorrection(n, populationSize) * (1.0 / (n * (n - 1))) * squares
}

// RatioVariance estimates the variance of RatioMean.
func RatioVariance(data, auxiliary []float64, populationSize int) float64 {
	n := float64(len(data))
	yBar := average(data)
	xBar := average(auxiliary)

	squares := 0.0
	for i := range data {
		d := data[i] - (yBar/xBar)*auxiliary[i]
		squares += d * d
	}
	return finitePopulationCorrection(n, populationSize) * (1.0 / (n * (n - 1))) * squares
}

// HHVariance is the Hansen-Hurwitz variance estimator paired with HTMean. It
// treats p_i = π_i/n as single-draw selection probabilities, so no joint
// inclusion probabilities are needed.
func HHVariance(data, inclusionProbabilities []float64, mean float64, populationSize int) float64 {
	n := float64(len(data))
	N := float64(populationSize)

	squares := 0.0
	for i, y := range data {
		p := inclusionProbabilities[i] / n
		d := y/(N*p) - mean
		squares += d * d
	}
	return (1.0 / (n * (n - 1))) * squares
}

// StratifiedVariance estimates the variance of StratifiedMean. Input is not
// validated; see StratifiedSample.Group.
func StratifiedVariance(data []float64, strata []string, stratumSizes map[string]int) float64 {
	return groupStrata(data, strata, stratumSizes).Variance()
}

func clusterVariance(squares float64, clusterCount, totalClusterCount, populationSize int) float64 {
	M := float64(totalClusterCount)
	m := float64(clusterCount)
	N := float64(populationSize)
	scale := M / N
	return scale * scale * ((M - m) / M) * (1.0 / (m * (m - 1))) * squares
}

// ClusterVariance estimates the variance of ClusterMean from the spread of
// the cluster totals.
func ClusterVariance(data []float64, clusterCount, totalClusterCount, populationSize int) float64 {
	return clusterVariance(sumOfSquares(data, average(data)), clusterCount, totalClusterCount, populationSize)
}

// HeterogeneousClusterVariance estimates the variance of
// HeterogeneousClusterMean: the deviations are y_i − ȳ·c_i with c_i the size
// of cluster i.
func HeterogeneousClusterVariance(data []float64, clusterSizes []int, mean float64, clusterCount, totalClusterCount, populationSize int) float64 {
	squares := 0.0
	for i, y := range data {
		d := y - mean*float64(clusterSizes[i])
		squares += d * d
	}
	return clusterVariance(squares, clusterCount, totalClusterCount, populationSize)
}
