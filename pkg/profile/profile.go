// Package profile summarizes the columns of a table in one pass with
// probabilistic sketches. Profiles help pick stratification columns before
// sampling: distinct counts bound the number of strata and the most common
// value shows how unbalanced they are.
package profile

import (
	"bytes"
	"encoding/json"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
)

// Options tunes sketch precision. Zero values select the defaults.
type Options struct {
	// Precision is the HyperLogLog register exponent (4..16, default 12).
	Precision uint8
	// Epsilon is the Count-Min relative error (default 0.001).
	Epsilon float64
	// SignificanceLevel of the distinct-count interval in percent (1, 5 or 10,
	// default 5).
	SignificanceLevel int
}

// Column is the profile of one column.
type Column struct {
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Missing  int    `json:"missing"`
	Distinct uint64 `json:"distinct"`
	// DistinctLow and DistinctHigh bound Distinct at the requested level.
	DistinctLow  uint64          `json:"distinctLow"`
	DistinctHigh uint64          `json:"distinctHigh"`
	Mode         json.RawMessage `json:"mode"`
	ModeCount    uint64          `json:"modeCount"`
	// ModeErrorBound is the largest overcount of ModeCount at 99% confidence.
	ModeErrorBound uint64 `json:"modeErrorBound"`
}

// Table profiles every column of t, in column order.
func Table(t *dataset.Table, opts Options) ([]Column, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if opts.Precision == 0 {
		opts.Precision = 12
	}
	if opts.SignificanceLevel == 0 {
		opts.SignificanceLevel = 5
	}

	names := t.Columns()
	out := make([]Column, 0, len(names))
	for _, name := range names {
		values, _ := t.Column(name)
		col, err := profileColumn(name, values, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, nil
}

func profileColumn(name string, values []json.RawMessage, opts Options) (Column, error) {
	hll := newHyperLogLog(opts.Precision)
	cms := newCountMin(opts.Epsilon, 0.01)
	col := Column{Name: name, Rows: len(values), Mode: json.RawMessage("null")}

	for _, raw := range values {
		key, ok := canonical(raw)
		if !ok {
			col.Missing++
			continue
		}
		hll.add(key)
		if f := cms.add(key); f > col.ModeCount {
			col.ModeCount = f
			col.Mode = json.RawMessage(key)
		}
	}
	if col.Rows == col.Missing {
		return col, nil
	}

	col.Distinct = hll.count()
	low, high, err := hll.interval(opts.SignificanceLevel)
	if err != nil {
		return Column{}, err
	}
	col.DistinctLow, col.DistinctHigh = low, high
	col.ModeErrorBound = cms.errorBound()
	return col, nil
}

// canonical compacts a JSON value so equal values hash alike. Nulls report
// false.
func canonical(raw json.RawMessage) ([]byte, bool) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(bytes.TrimSpace(raw))
	}
	if buf.Len() == 0 || buf.String() == "null" {
		return nil, false
	}
	return buf.Bytes(), true
}
