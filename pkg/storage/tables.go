package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
)

type columnKind string

const (
	kindNumber  columnKind = "number"
	kindBoolean columnKind = "boolean"
	kindText    columnKind = "text"
	// kindJSON holds mixed or nested values as raw JSON text.
	kindJSON columnKind = "json"
)

type column struct {
	Name string     `json:"name"`
	Kind columnKind `json:"kind"`
}

func (k columnKind) sqlType() string {
	switch k {
	case kindNumber:
		return "REAL"
	case kindBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func kindOf(raw json.RawMessage) (columnKind, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", false
	}
	switch s[0] {
	case '"':
		return kindText, true
	case 't', 'f':
		return kindBoolean, true
	case '{', '[':
		return kindJSON, true
	default:
		return kindNumber, true
	}
}

func inferKind(values []json.RawMessage) columnKind {
	var kind columnKind
	for _, v := range values {
		k, ok := kindOf(v)
		if !ok {
			continue
		}
		if kind == "" {
			kind = k
		} else if kind != k {
			return kindJSON
		}
	}
	if kind == "" {
		return kindText
	}
	return kind
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ImportTable stores t under name, replacing any dataset of the same name.
func ImportTable(ctx context.Context, db *sql.DB, name string, t *dataset.Table) error {
	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	if err := t.Validate(); err != nil {
		return err
	}
	tableName := "ds_" + name

	cols := make([]column, 0, len(t.Columns()))
	defs := make([]string, 0, len(t.Columns()))
	// SQLite compares column names without regard to ASCII case.
	seen := make(map[string]string, len(t.Columns()))
	for _, c := range t.Columns() {
		folded := asciiLower(c)
		if folded == "_row" {
			return fmt.Errorf("%w: column name %q is reserved", ErrInvalidColumn, c)
		}
		if prev, ok := seen[folded]; ok {
			return fmt.Errorf("%w: columns %q and %q differ only in case", ErrInvalidColumn, prev, c)
		}
		seen[folded] = c
		values, _ := t.Column(c)
		col := column{Name: c, Kind: inferKind(values)}
		cols = append(cols, col)
		defs = append(defs, quoteIdent(c)+" "+col.Kind.sqlType())
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: dataset %q has no columns", ErrInvalidColumn, name)
	}
	encoded, err := json.Marshal(cols)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(tableName)); err != nil {
		return fmt.Errorf("drop %s: %w", tableName, err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(tableName)+` (
		_row INTEGER PRIMARY KEY,
		`+strings.Join(defs, ",\n\t\t")+`
	)`); err != nil {
		return fmt.Errorf("create %s: %w", tableName, err)
	}

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(tableName)+`(_row,`+strings.Join(names, ",")+`)
		VALUES (?,`+strings.Join(marks, ",")+`)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols)+1)
	for row := 0; row < t.Len(); row++ {
		args[0] = row
		for i, c := range cols {
			values, _ := t.Column(c.Name)
			v, err := toSQL(c.Kind, values[row])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", row, c.Name, err)
			}
			args[i+1] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", row, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO sampling_datasets(name,table_name,columns,row_count,updated_at)
		VALUES(?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET table_name=excluded.table_name, columns=excluded.columns,
			row_count=excluded.row_count, updated_at=CURRENT_TIMESTAMP`,
		name, tableName, string(encoded), t.Len()); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return tx.Commit()
}

func toSQL(kind columnKind, raw json.RawMessage) (any, error) {
	if _, ok := kindOf(raw); !ok {
		return nil, nil
	}
	switch kind {
	case kindNumber:
		var f float64
		err := json.Unmarshal(raw, &f)
		return f, err
	case kindBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case kindText:
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		return string(raw), nil
	}
}

// LoadTable reads a registered dataset back in insertion order.
func LoadTable(ctx context.Context, db *sql.DB, name string) (*dataset.Table, error) {
	tableName, cols, err := lookup(ctx, db, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
	}
	rows, err := db.QueryContext(ctx, `SELECT `+strings.Join(names, ",")+` FROM `+quoteIdent(tableName)+` ORDER BY _row`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := dataset.New()
	for _, c := range cols {
		if err := t.AddColumn(c.Name, []json.RawMessage{}); err != nil {
			return nil, err
		}
	}
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range cols {
			v, err := fromSQL(c.Kind, dest[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Name, err)
			}
			t.Append(c.Name, v)
		}
	}
	return t, rows.Err()
}

func fromSQL(kind columnKind, v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	switch kind {
	case kindNumber:
		switch n := v.(type) {
		case float64:
			return json.Marshal(n)
		case int64:
			return json.Marshal(n)
		}
	case kindBoolean:
		if n, ok := v.(int64); ok {
			return json.Marshal(n != 0)
		}
	case kindText:
		switch s := v.(type) {
		case string:
			return json.Marshal(s)
		case []byte:
			return json.Marshal(string(s))
		}
	default:
		switch s := v.(type) {
		case string:
			return json.RawMessage(s), nil
		case []byte:
			return json.RawMessage(s), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s column", v, kind)
}
