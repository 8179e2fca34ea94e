// Package storage keeps population datasets in SQLite so they can be sampled
// later without sending them over the wire.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrInvalidName    = errors.New("dataset names must start with a letter or underscore and contain only letters, digits and underscores")
	ErrInvalidColumn  = errors.New("invalid column")
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func EnsureMetaTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sampling_datasets (
			name TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			columns TEXT NOT NULL,
			row_count INTEGER DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sampling_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset TEXT NOT NULL,
			design TEXT NOT NULL,
			sample_size INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sampling_strata_info (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sample_id INTEGER NOT NULL,
			strata_value TEXT NOT NULL,
			pop_size INTEGER NOT NULL,
			sample_size INTEGER NOT NULL,
			variance REAL NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// DatasetInfo describes a registered dataset.
type DatasetInfo struct {
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	RowCount  int64     `json:"rowCount"`
	// Samples counts the draws recorded against the dataset.
	Samples   int64     `json:"samples"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListDatasets returns every registered dataset ordered by name.
func ListDatasets(ctx context.Context, db *sql.DB) ([]DatasetInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.name, d.columns, d.row_count,
			(SELECT COUNT(*) FROM sampling_samples s WHERE s.dataset = d.name),
			strftime('%s', d.updated_at)
		FROM sampling_datasets d
		ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DatasetInfo{}
	for rows.Next() {
		var info DatasetInfo
		var columns string
		var updated int64
		if err := rows.Scan(&info.Name, &columns, &info.RowCount, &info.Samples, &updated); err != nil {
			return nil, err
		}
		cols, err := decodeColumns(columns)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", info.Name, err)
		}
		for _, c := range cols {
			info.Columns = append(info.Columns, c.Name)
		}
		info.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// RecordSample logs a sample drawn from a stored dataset and returns its id.
func RecordSample(ctx context.Context, db *sql.DB, dataset, design string, size int) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO sampling_samples(dataset,design,sample_size,created_at)
		VALUES(?,?,?,CURRENT_TIMESTAMP)`, dataset, design, size)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// StratumRecord is one stratum of a recorded stratified sample.
type StratumRecord struct {
	Value      string
	PopSize    int
	SampleSize int
	Variance   float64
}

// RecordStrata stores the per-stratum breakdown of sample sampleID.
func RecordStrata(ctx context.Context, db *sql.DB, sampleID int64, strata []StratumRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sampling_strata_info(sample_id,strata_value,pop_size,sample_size,variance)
		VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range strata {
		if _, err := stmt.ExecContext(ctx, sampleID, s.Value, s.PopSize, s.SampleSize, s.Variance); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func lookup(ctx context.Context, db *sql.DB, name string) (string, []column, error) {
	var tableName, columns string
	err := db.QueryRowContext(ctx, `SELECT table_name, columns FROM sampling_datasets WHERE name = ?`, name).
		Scan(&tableName, &columns)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	if err != nil {
		return "", nil, err
	}
	cols, err := decodeColumns(columns)
	return tableName, cols, err
}

func decodeColumns(s string) ([]column, error) {
	var cols []column
	if err := json.Unmarshal([]byte(s), &cols); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	return cols, nil
}
