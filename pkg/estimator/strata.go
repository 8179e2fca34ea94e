package estimator

import "sort"

// Stratum holds the observations drawn from one stratum together with the
// stratum's population size.
type Stratum struct {
	Label  string
	Size   int
	Values []float64
}

// Strata is a stratified sample grouped by label. Strata are ordered by label
// so repeated evaluations accumulate in the same order.
type Strata []Stratum

func validateStrata(data []float64, strata []string, stratumSizes map[string]int, ve *ValidationError) {
	if len(data) != len(strata) {
		ve.Add("data", "you need to specify exactly one stratum for each data entry")
	}
	counts := make(map[string]int, len(stratumSizes))
	for _, label := range strata {
		counts[label]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if _, ok := stratumSizes[label]; !ok {
			ve.Add("strata", "stratum %q has no corresponding key in stratumSizes", label)
		}
		if counts[label] < 2 {
			ve.Add("strata", "stratum %q must occur at least twice in the sample", label)
		}
	}
	for label, size := range stratumSizes {
		if size <= 0 {
			ve.Add("stratumSizes", "size of stratum %q must be positive", label)
		}
	}
}

func groupStrata(data []float64, strata []string, stratumSizes map[string]int) Strata {
	index := make(map[string]int, len(stratumSizes))
	out := make(Strata, 0, len(stratumSizes))
	for label, size := range stratumSizes {
		out = append(out, Stratum{Label: label, Size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	for i := range out {
		index[out[i].Label] = i
	}
	for i, label := range strata {
		if i >= len(data) {
			break
		}
		if j, ok := index[label]; ok {
			out[j].Values = append(out[j].Values, data[i])
		}
	}
	return out
}

// PopulationSize is the sum of all stratum sizes.
func (s Strata) PopulationSize() int {
	N := 0
	for _, st := range s {
		N += st.Size
	}
	return N
}

// Mean is Σ (N_h/N)·ȳ_h.
func (s Strata) Mean() float64 {
	N := float64(s.PopulationSize())
	total := 0.0
	for _, st := range s {
		total += (1.0 * float64(st.Size) / N) * average(st.Values)
	}
	return total
}

// Variance is Σ (N_h/N)²·(N_h−n_h)/N_h·s_h²/n_h, the weighted sum of the
// stratum SRS variances without replacement.
func (s Strata) Variance() float64 {
	N := float64(s.PopulationSize())
	total := 0.0
	for _, st := range s {
		Nh := float64(st.Size)
		nh := float64(len(st.Values))
		mean := average(st.Values)
		squares := 0.0
		for _, y := range st.Values {
			squares += (y - mean) * (y - mean)
		}
		weight := Nh / N
		total += weight * weight * ((Nh - nh) / Nh) * (1.0 / nh) * (squares / (nh - 1))
	}
	return total
}
