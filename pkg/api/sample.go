package api

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sahithikokkula/samplingapi/internal/logging"
	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/estimator"
	"github.com/sahithikokkula/samplingapi/pkg/format"
	"github.com/sahithikokkula/samplingapi/pkg/sampler"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

// draw is a sampling request bound to its query parameters.
type draw struct {
	design string
	run    func(*dataset.Table) (any, int, error)
}

func (h *Handler) srsDraw(r *http.Request) (draw, error) {
	var ve estimator.ValidationError
	if !r.URL.Query().Has("n") {
		ve.Add("n", "n is required")
	}
	n := queryInt(r, "n", 0, &ve)
	withReplacement := queryBool(r, "withReplacement", true, &ve)
	removeMissing := queryBool(r, "removeMissing", false, &ve)
	if err := ve.Err(); err != nil {
		return draw{}, err
	}
	return draw{design: "srs", run: func(t *dataset.Table) (any, int, error) {
		out, err := h.sampler.SimpleRandom(t, n, withReplacement, removeMissing)
		if err != nil {
			return nil, 0, err
		}
		return out, out.Len(), nil
	}}, nil
}

func (h *Handler) systematicDraw(r *http.Request) (draw, error) {
	var ve estimator.ValidationError
	if !r.URL.Query().Has("interval") {
		ve.Add("interval", "interval is required")
	}
	interval := queryInt(r, "interval", 0, &ve)
	firstIndex := queryInt(r, "firstIndex", 0, &ve)
	if err := ve.Err(); err != nil {
		return draw{}, err
	}
	return draw{design: "systematic", run: func(t *dataset.Table) (any, int, error) {
		out, err := h.sampler.Systematic(t, interval, firstIndex)
		if err != nil {
			return nil, 0, err
		}
		return out, out.Len(), nil
	}}, nil
}

type stratifiedResponse struct {
	Sample         *dataset.Table       `json:"sample"`
	Strata         []sampler.StrataInfo `json:"strata"`
	AllocationType string               `json:"allocationType"`
}

func (h *Handler) stratifiedDraw(r *http.Request) (draw, func() []sampler.StrataInfo, error) {
	var ve estimator.ValidationError
	q := r.URL.Query()
	opts := sampler.StratifiedOptions{
		StrataColumn:   q.Get("strataColumn"),
		VarianceColumn: q.Get("varianceColumn"),
	}
	if opts.StrataColumn == "" {
		ve.Add("strataColumn", "strataColumn is required")
	}
	opts.SampleSize = queryInt(r, "n", 0, &ve)
	if err := ve.Err(); err != nil {
		return draw{}, nil, err
	}
	var strata []sampler.StrataInfo
	d := draw{design: "stratified", run: func(t *dataset.Table) (any, int, error) {
		out, info, err := h.sampler.Stratified(t, opts)
		if err != nil {
			return nil, 0, err
		}
		strata = info
		return stratifiedResponse{Sample: out, Strata: info, AllocationType: allocationType(info)}, out.Len(), nil
	}}
	return d, func() []sampler.StrataInfo { return strata }, nil
}

// allocationType reports neyman once any stratum contributed a variance.
func allocationType(info []sampler.StrataInfo) string {
	for _, s := range info {
		if s.Variance > 0 {
			return "neyman"
		}
	}
	return "proportional"
}

// sampleBody draws from the table sent in the request body.
func (h *Handler) sampleBody(w http.ResponseWriter, r *http.Request, d draw, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var t dataset.Table
	if err := decodeBody(r, &t); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, _, err := d.run(&t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) PostSampleSRS(w http.ResponseWriter, r *http.Request) {
	d, err := h.srsDraw(r)
	h.sampleBody(w, r, d, err)
}

func (h *Handler) PostSampleSystematic(w http.ResponseWriter, r *http.Request) {
	d, err := h.systematicDraw(r)
	h.sampleBody(w, r, d, err)
}

func (h *Handler) PostSampleStratified(w http.ResponseWriter, r *http.Request) {
	d, _, err := h.stratifiedDraw(r)
	h.sampleBody(w, r, d, err)
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	defer cancel()

	datasets, err := storage.ListDatasets(ctx, h.db)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JSON{"datasets": datasets})
}

// sampleDataset draws from a stored dataset and records the draw.
func (h *Handler) sampleDataset(w http.ResponseWriter, r *http.Request, d draw, strata func() []sampler.StrataInfo, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name := mux.Vars(r)["name"]

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	defer cancel()

	t, err := storage.LoadTable(ctx, h.db, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, size, err := d.run(t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := storage.RecordSample(ctx, h.db, name, d.design, size)
	if err == nil && strata != nil {
		err = storage.RecordStrata(ctx, h.db, id, strataRecords(strata()))
	}
	if err != nil {
		// The sample is still valid; only its bookkeeping failed.
		logging.Warn("record sample",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("dataset", name),
			zap.Error(err))
	}
	writeJSON(w, http.StatusOK, out)
}

func strataRecords(info []sampler.StrataInfo) []storage.StratumRecord {
	out := make([]storage.StratumRecord, len(info))
	for i, s := range info {
		out[i] = storage.StratumRecord{Value: s.StrataValue, PopSize: s.PopSize, SampleSize: s.SampleSize, Variance: s.Variance}
	}
	return out
}

func (h *Handler) PostDatasetSRS(w http.ResponseWriter, r *http.Request) {
	d, err := h.srsDraw(r)
	h.sampleDataset(w, r, d, nil, err)
}

func (h *Handler) PostDatasetSystematic(w http.ResponseWriter, r *http.Request) {
	d, err := h.systematicDraw(r)
	h.sampleDataset(w, r, d, nil, err)
}

func (h *Handler) PostDatasetStratified(w http.ResponseWriter, r *http.Request) {
	d, strata, err := h.stratifiedDraw(r)
	h.sampleDataset(w, r, d, strata, err)
}

func (h *Handler) PostFormatJSONArray(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := format.JSONArray(body)
	if err != nil {
		h.writeError(w, r, badInput{err})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type delimitedRequest struct {
	Data                       string `json:"data"`
	Delimiter                  string `json:"delimiter"`
	TreatFirstRowAsColumnNames bool   `json:"treatFirstRowAsColumnNames"`
}

func (h *Handler) PostFormatDelimited(w http.ResponseWriter, r *http.Request) {
	var req delimitedRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	opts := format.DelimitedOptions{Delimiter: ',', Header: req.TreatFirstRowAsColumnNames}
	if req.Delimiter != "" {
		d, size := utf8.DecodeRuneInString(req.Delimiter)
		if size != len(req.Delimiter) || d == utf8.RuneError {
			var ve estimator.ValidationError
			ve.Add("delimiter", "delimiter must be a single character")
			h.writeError(w, r, ve.Err())
			return
		}
		opts.Delimiter = d
	}
	t, err := format.Delimited(req.Data, opts)
	if err != nil {
		h.writeError(w, r, badInput{err})
		return
	}
	writeJSON(w, http.StatusOK, t)
}
