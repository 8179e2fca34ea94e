// Package cmd provides the samplectl commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sahithikokkula/samplingapi/internal/config"
	"github.com/sahithikokkula/samplingapi/internal/logging"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	var verbose bool

	root := &cobra.Command{
		Use:   "samplectl",
		Short: "Survey sampling calculations from the command line",
		Long: `samplectl determines sample sizes, allocates a sample over strata and
estimates population means from sample files.

Examples:
  samplectl size --e 0.028 --alpha 5 --with-replacement --p 0.7
  samplectl allocate --n 40 --sizes 200,50 --names s,p
  samplectl estimate srs -f sample.json
  samplectl dataset import households -f households.json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			return logging.Initialize(cfg.Logging)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $SAMPLING_CONFIG)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSizeCmd(), newAllocateCmd(), newEstimateCmd(), newDatasetCmd(&cfgFile))
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.ApplyEnv(os.LookupEnv)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("an input file is required (-f, use - for stdin)")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
