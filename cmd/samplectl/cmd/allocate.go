package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sahithikokkula/samplingapi/pkg/samplesize"
)

func newAllocateCmd() *cobra.Command {
	var p samplesize.AllocationParameters

	c := &cobra.Command{
		Use:   "allocate",
		Short: "Distribute a sample over strata",
		Long: `Allocates --n observations proportionally to the stratum sizes, or with
Neyman allocation when variances (and optionally costs) are given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			allocation, err := samplesize.Allocate(p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), allocation)
		},
	}
	c.Flags().IntVar(&p.SampleSize, "n", 0, "total sample size")
	c.Flags().IntSliceVar(&p.StratumTotalSizes, "sizes", nil, "population size of each stratum")
	c.Flags().StringSliceVar(&p.StratumNames, "names", nil, "stratum names (default stratum1..K)")
	c.Flags().Float64SliceVar(&p.StratumVariances, "variances", nil, "variance of each stratum")
	c.Flags().Float64SliceVar(&p.StratumCosts, "costs", nil, "cost per observation of each stratum")
	return c
}
