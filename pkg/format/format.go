// Package format converts common tabular representations into dataset
// tables.
package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
)

var ErrNoRows = errors.New("no rows to format")

// JSONArray turns an array of JSON objects into a table. Columns follow the
// key order of the first object; every other object must carry the same keys.
func JSONArray(data []byte) (*dataset.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.New("format: expected an array of objects")
	}

	tbl := dataset.New()
	row := 0
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("format: row %d: %w", row, err)
		}
		keys, values, err := objectEntries(raw)
		if err != nil {
			return nil, fmt.Errorf("format: row %d: %w", row, err)
		}
		if row == 0 {
			for _, k := range keys {
				if err := tbl.AddColumn(k, nil); err != nil {
					return nil, err
				}
			}
		}
		for _, name := range tbl.Columns() {
			v, ok := values[name]
			if !ok {
				return nil, fmt.Errorf("format: row %d: missing key %q", row, name)
			}
			tbl.Append(name, v)
		}
		row++
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if row == 0 {
		return nil, ErrNoRows
	}
	return tbl, nil
}

func objectEntries(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("expected an object")
	}
	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	return keys, values, nil
}

// DelimitedOptions controls Delimited.
type DelimitedOptions struct {
	Delimiter rune
	// Header takes column names from the first row; otherwise columns are
	// named column1..columnK.
	Header bool
}

// Delimited parses delimiter-separated text. Cells holding a number or a
// boolean become JSON numbers or booleans, empty cells become null and
// everything else a string.
func Delimited(text string, opts DelimitedOptions) (*dataset.Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	r.TrimLeadingSpace = true

	var names []string
	tbl := dataset.New()
	for line := 0; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("format: %w", err)
		}
		if names == nil {
			if opts.Header {
				names = record
			} else {
				names = make([]string, len(record))
				for i := range record {
					names[i] = fmt.Sprintf("column%d", i+1)
				}
			}
			for _, n := range names {
				if err := tbl.AddColumn(n, nil); err != nil {
					return nil, err
				}
			}
			if opts.Header {
				continue
			}
		}
		for i, cell := range record {
			tbl.Append(names[i], cellValue(cell))
		}
	}
	if tbl.Len() == 0 {
		return nil, ErrNoRows
	}
	return tbl, nil
}

func cellValue(cell string) json.RawMessage {
	s := strings.TrimSpace(cell)
	if s == "" {
		return json.RawMessage("null")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		b, err := json.Marshal(f)
		if err == nil {
			return b
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return json.RawMessage("true")
	case "false":
		return json.RawMessage("false")
	}
	out, _ := json.Marshal(cell)
	return out
}
