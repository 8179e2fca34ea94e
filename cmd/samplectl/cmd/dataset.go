package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/samplingapi/internal/logging"
	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/format"
	"github.com/sahithikokkula/samplingapi/pkg/profile"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

func newDatasetCmd(cfgFile *string) *cobra.Command {
	var dbPath string

	c := &cobra.Command{
		Use:   "dataset",
		Short: "Manage population datasets stored for the server",
	}
	c.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database (default from config)")

	open := func() (*sql.DB, error) {
		path := dbPath
		if path == "" {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return nil, err
			}
			path = cfg.Database.Path
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureMetaTables(context.Background(), db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	var file string
	var rows bool
	importCmd := &cobra.Command{
		Use:   "import <name>",
		Short: "Store a columnar JSON table (or, with --rows, an array of objects)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var t *dataset.Table
			if rows {
				if t, err = format.JSONArray(data); err != nil {
					return err
				}
			} else {
				t = dataset.New()
				if err := json.Unmarshal(data, t); err != nil {
					return fmt.Errorf("decode table: %w", err)
				}
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.ImportTable(cmd.Context(), db, args[0], t); err != nil {
				return err
			}
			logging.Info("dataset imported", zap.String("name", args[0]), zap.Int("rows", t.Len()))
			return printJSON(cmd.OutOrStdout(), map[string]any{"name": args[0], "rows": t.Len()})
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "", "table file, - for stdin")
	importCmd.Flags().BoolVar(&rows, "rows", false, "input is an array of JSON objects")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			list, err := storage.ListDatasets(cmd.Context(), db)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}

	var level int
	profileCmd := &cobra.Command{
		Use:   "profile <name>",
		Short: "Approximate distinct counts and most common values per column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			t, err := storage.LoadTable(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			cols, err := profile.Table(t, profile.Options{SignificanceLevel: level})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cols)
		},
	}
	profileCmd.Flags().IntVar(&level, "alpha", 5, "significance level of the distinct-count interval (1, 5 or 10)")

	c.AddCommand(importCmd, listCmd, profileCmd)
	return c
}
