package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sahithikokkula/samplingapi/pkg/estimator"
)

func newEstimateCmd() *cobra.Command {
	var file, model string
	var equalSizes bool

	c := &cobra.Command{
		Use:   "estimate <srs|model|design|stratified|cluster>",
		Short: "Estimate a population mean from a sample file",
		Long: `Reads a sample in the JSON shape of the matching HTTP endpoint and prints
the mean, its variance and the confidence interval.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"srs", "model", "design", "stratified", "cluster"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var equal *bool
			if cmd.Flags().Changed("equal-sizes") {
				equal = &equalSizes
			}
			req := estimator.Request{Design: args[0], ModelType: model, EqualSizes: equal, Sample: data}
			res, err := req.Run()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "sample file, - for stdin")
	c.Flags().StringVar(&model, "model", "diff", "model for the model design (diff or ratio)")
	c.Flags().BoolVar(&equalSizes, "equal-sizes", false, "clusters are of equal size (default: true unless the sample has clusterSizes)")
	return c
}
