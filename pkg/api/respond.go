package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sahithikokkula/samplingapi/internal/logging"
	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/estimator"
	"github.com/sahithikokkula/samplingapi/pkg/format"
	"github.com/sahithikokkula/samplingapi/pkg/sampler"
	"github.com/sahithikokkula/samplingapi/pkg/samplesize"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

// badInput marks an error caused by the request itself.
type badInput struct{ err error }

func (b badInput) Error() string { return b.err.Error() }
func (b badInput) Unwrap() error { return b.err }

func statusFor(err error) int {
	var bad badInput
	switch {
	case estimator.IsValidationError(err), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, estimator.ErrUnsupportedSignificanceLevel),
		errors.Is(err, estimator.ErrUnsupportedModel),
		errors.Is(err, estimator.ErrUnsupportedClusterKind),
		errors.Is(err, samplesize.ErrPopulationSizeRequired),
		errors.Is(err, dataset.ErrUnequalColumns),
		errors.Is(err, dataset.ErrDuplicateColumn),
		errors.Is(err, format.ErrNoRows),
		errors.Is(err, sampler.ErrEmptyTable),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, storage.ErrInvalidColumn):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrUnknownDataset):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of a failed request or batch item.
func errorBody(err error) JSON {
	var ve *estimator.ValidationError
	if errors.As(err, &ve) {
		return JSON{"errors": ve.Fields}
	}
	return JSON{"error": err.Error()}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody(err))
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badInput{errors.New("request body required")}
		}
		return badInput{fmt.Errorf("invalid json: %w", err)}
	}
	return nil
}

// rounder rounds half away from zero at a fixed number of places. A negative
// place count leaves values untouched.
type rounder int32

const noRounding rounder = -1

func (p rounder) round(f float64) float64 {
	if p < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	v, _ := decimal.NewFromFloat(f).Round(int32(p)).Float64()
	return v
}

func (p rounder) apply(res estimator.Result) estimator.Result {
	res.Mean = p.round(res.Mean)
	res.Variance = p.round(res.Variance)
	res.ConfidenceInterval.LowerBound = p.round(res.ConfidenceInterval.LowerBound)
	res.ConfidenceInterval.UpperBound = p.round(res.ConfidenceInterval.UpperBound)
	return res
}

// decimalsParam reads the optional decimals query parameter (0..15).
func decimalsParam(r *http.Request) (rounder, error) {
	raw := r.URL.Query().Get("decimals")
	if raw == "" {
		return noRounding, nil
	}
	d, err := strconv.Atoi(raw)
	if err != nil || d < 0 || d > 15 {
		var ve estimator.ValidationError
		ve.Add("decimals", "decimals must be an integer between 0 and 15")
		return noRounding, ve.Err()
	}
	return rounder(d), nil
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, name string, def int, ve *estimator.ValidationError) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		ve.Add(name, "%s must be an integer", name)
		return def
	}
	return v
}

func queryBool(r *http.Request, name string, def bool, ve *estimator.ValidationError) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		ve.Add(name, "%s must be true or false", name)
		return def
	}
	return v
}
