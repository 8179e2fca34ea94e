package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sahithikokkula/samplingapi/pkg/samplesize"
)

func newSizeCmd() *cobra.Command {
	p := samplesize.NewSizeParameters()
	var populationSize int

	c := &cobra.Command{
		Use:   "size",
		Short: "Minimum size of a simple random sample",
		Long: `Prints the smallest n such that, with probability 1-alpha, an estimated
proportion lies within e of the true one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("population-size") {
				p.PopulationSize = &populationSize
			}
			n, err := samplesize.SRS(p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), n)
		},
	}
	c.Flags().Float64Var(&p.E, "e", 0, "maximum half-width of the confidence interval")
	c.Flags().IntVar(&p.Alpha, "alpha", 5, "significance level in percent (1, 5 or 10)")
	c.Flags().BoolVar(&p.WithReplacement, "with-replacement", false, "sample with replacement")
	c.Flags().IntVar(&populationSize, "population-size", 0, "population size (required without replacement)")
	c.Flags().Float64Var(&p.WorstCasePercentage, "p", samplesize.DefaultWorstCasePercentage, "expected proportion")
	return c
}
