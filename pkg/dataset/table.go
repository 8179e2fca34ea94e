// Package dataset holds generic tabular data in columnar form. Values are kept
// as raw JSON so any column type passes through sampling untouched.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnequalColumns  = errors.New("all columns must be of same length")
)

var null = json.RawMessage("null")

// Table maps column names to equally long columns of JSON values. Column
// order is the order in which columns were added.
type Table struct {
	names   []string
	columns map[string][]json.RawMessage
}

func New() *Table {
	return &Table{columns: make(map[string][]json.RawMessage)}
}

// AddColumn appends a column.
func (t *Table) AddColumn(name string, values []json.RawMessage) error {
	if t.columns == nil {
		t.columns = make(map[string][]json.RawMessage)
	}
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	t.names = append(t.names, name)
	t.columns[name] = values
	return nil
}

// Append adds v to the end of an existing column.
func (t *Table) Append(name string, v json.RawMessage) {
	t.columns[name] = append(t.columns[name], v)
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

func (t *Table) Column(name string) ([]json.RawMessage, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Len returns the number of rows, taken from the first column.
func (t *Table) Len() int {
	if len(t.names) == 0 {
		return 0
	}
	return len(t.columns[t.names[0]])
}

// Validate checks that every column has the same length.
func (t *Table) Validate() error {
	n := t.Len()
	for _, name := range t.names {
		if len(t.columns[name]) != n {
			return fmt.Errorf("%w: column %q has %d values, expected %d", ErrUnequalColumns, name, len(t.columns[name]), n)
		}
	}
	return nil
}

// HasMissing reports whether row i holds a JSON null in any column.
func (t *Table) HasMissing(i int) bool {
	for _, name := range t.names {
		if bytes.Equal(bytes.TrimSpace(t.columns[name][i]), null) {
			return true
		}
	}
	return false
}

// Select returns a new table with the given rows, in the given order. Rows
// may repeat.
func (t *Table) Select(rows []int) *Table {
	out := New()
	for _, name := range t.names {
		src := t.columns[name]
		dst := make([]json.RawMessage, 0, len(rows))
		for _, r := range rows {
			dst = append(dst, src[r])
		}
		_ = out.AddColumn(name, dst)
	}
	return out
}

// MarshalJSON writes the table as an object of arrays, keeping column order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		vals := t.columns[name]
		if vals == nil {
			vals = []json.RawMessage{}
		}
		col, err := json.Marshal(vals)
		if err != nil {
			return nil, err
		}
		buf.Write(col)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of arrays, keeping column order.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("dataset: expected an object of columns")
	}
	*t = Table{columns: make(map[string][]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		var values []json.RawMessage
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("dataset: column %q: %w", name, err)
		}
		if values == nil {
			return fmt.Errorf("dataset: column %q must be an array", name)
		}
		if err := t.AddColumn(name, values); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
