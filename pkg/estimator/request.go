package estimator

import "encoding/json"

// Request is an estimation whose sample is still encoded, as received over
// the wire or read from a file.
type Request struct {
	// Design is one of srs, model, design, stratified or cluster.
	Design    string `json:"design"`
	ModelType string `json:"modelType,omitempty"`
	// EqualSizes picks the cluster estimator. When nil, a sample carrying
	// clusterSizes is treated as heterogeneous.
	EqualSizes *bool           `json:"equalSizes,omitempty"`
	Sample     json.RawMessage `json:"sample"`
}

// Run decodes the sample for the requested design and estimates it.
func (r Request) Run() (Result, error) {
	decode := func(v any) error {
		var ve ValidationError
		if len(r.Sample) == 0 {
			ve.Add("sample", "sample is required")
		} else if err := json.Unmarshal(r.Sample, v); err != nil {
			ve.Add("sample", "invalid %s sample: %v", r.Design, err)
		}
		return ve.Err()
	}

	switch r.Design {
	case "srs":
		var s SRSSample
		if err := decode(&s); err != nil {
			return Result{}, err
		}
		return EstimateSRS(s)
	case "model":
		model, err := ParseModelType(r.ModelType)
		if err != nil {
			return Result{}, err
		}
		var s ModelSample
		if err := decode(&s); err != nil {
			return Result{}, err
		}
		return EstimateModel(s, model)
	case "design":
		var s DesignSample
		if err := decode(&s); err != nil {
			return Result{}, err
		}
		return EstimateDesign(s)
	case "stratified":
		var s StratifiedSample
		if err := decode(&s); err != nil {
			return Result{}, err
		}
		return EstimateStratified(s)
	case "cluster":
		var s ClusterSample
		if err := decode(&s); err != nil {
			return Result{}, err
		}
		equal := s.ClusterSizes == nil
		if r.EqualSizes != nil {
			equal = *r.EqualSizes
		}
		return EstimateCluster(s, ClusterKindOf(equal))
	default:
		var ve ValidationError
		ve.Add("design", "unknown design %q (expected srs, model, design, stratified or cluster)", r.Design)
		return Result{}, ve.Err()
	}
}
