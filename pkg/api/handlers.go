package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/sahithikokkula/samplingapi/pkg/estimator"
	"github.com/sahithikokkula/samplingapi/pkg/samplesize"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JSON{"status": "ok"})
}

func countEstimation(design string, res estimator.Result, err error) {
	outcome := "ok"
	switch {
	case err != nil && statusFor(err) == http.StatusBadRequest:
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	case !res.IsFinite():
		outcome = "nonfinite"
	}
	estimations.WithLabelValues(design, outcome).Inc()
}

func (h *Handler) estimate(w http.ResponseWriter, r *http.Request, e estimator.Request) {
	places, err := decimalsParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := decodeBody(r, &e.Sample); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := e.Run()
	countEstimation(e.Design, res, err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, places.apply(res))
}

func (h *Handler) PostSRS(w http.ResponseWriter, r *http.Request) {
	h.estimate(w, r, estimator.Request{Design: "srs"})
}

func (h *Handler) PostModel(w http.ResponseWriter, r *http.Request) {
	modelType := r.URL.Query().Get("modelType")
	if _, err := estimator.ParseModelType(modelType); err != nil {
		countEstimation("model", estimator.Result{}, err)
		h.writeError(w, r, err)
		return
	}
	h.estimate(w, r, estimator.Request{Design: "model", ModelType: modelType})
}

func (h *Handler) PostDesign(w http.ResponseWriter, r *http.Request) {
	h.estimate(w, r, estimator.Request{Design: "design"})
}

func (h *Handler) PostStratified(w http.ResponseWriter, r *http.Request) {
	h.estimate(w, r, estimator.Request{Design: "stratified"})
}

func (h *Handler) PostCluster(w http.ResponseWriter, r *http.Request) {
	e := estimator.Request{Design: "cluster"}
	if r.URL.Query().Has("equalSizes") {
		var ve estimator.ValidationError
		equal := queryBool(r, "equalSizes", true, &ve)
		if err := ve.Err(); err != nil {
			h.writeError(w, r, err)
			return
		}
		e.EqualSizes = &equal
	}
	h.estimate(w, r, e)
}

type batchRequest struct {
	Items []estimator.Request `json:"items"`
}

type batchItem struct {
	Result *estimator.Result   `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
	Status int                 `json:"status"`
}

// PostBatch evaluates independent estimations in parallel. Items fail on their
// own; the response lists them in request order.
func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	places, err := decimalsParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Items) == 0 {
		var ve estimator.ValidationError
		ve.Add("items", "at least one item is required")
		h.writeError(w, r, ve.Err())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	defer cancel()

	out := make([]batchItem, len(req.Items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.BatchConcurrency)
	for i, item := range req.Items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = failedItem(err)
				return nil
			}
			res, err := item.Run()
			countEstimation(item.Design, res, err)
			if err != nil {
				out[i] = failedItem(err)
				return nil
			}
			v := places.apply(res)
			out[i] = batchItem{Result: &v, Status: http.StatusOK}
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, http.StatusOK, JSON{"results": out})
}

func failedItem(err error) batchItem {
	item := batchItem{Status: statusFor(err)}
	body := errorBody(err)
	if fields, ok := body["errors"].(map[string][]string); ok {
		item.Errors = fields
	} else {
		item.Error = err.Error()
	}
	return item
}

func (h *Handler) PostSampleSize(w http.ResponseWriter, r *http.Request) {
	p := samplesize.NewSizeParameters()
	if err := decodeBody(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := samplesize.SRS(p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) PostDistribution(w http.ResponseWriter, r *http.Request) {
	var p samplesize.AllocationParameters
	if err := decodeBody(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	allocation, err := samplesize.Allocate(p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderedCounts{names: p.Names(), counts: allocation})
}

// orderedCounts encodes an allocation with strata in request order.
type orderedCounts struct {
	names  []string
	counts map[string]int
}

func (o orderedCounts) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range o.names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = fmt.Appendf(buf, "%d", o.counts[name])
	}
	return append(buf, '}'), nil
}
