package main

import (
	"math/rand"

	"github.com/iwvelando/grimcheck/pkg/output"
	"github.com/iwvelando/grimcheck/pkg/simrank"
	"github.com/spf13/cobra"
)

func simrankCmd(a *app) *cobra.Command {
	var (
		n1, n2  int
		u       float64
		length  int
		maxIter int
		workers int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "simrank",
		Short: "Sample rank partitions that reproduce a Mann-Whitney U statistic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("length") {
				length = a.conf.Simrank.Length
			}
			if !flags.Changed("max-iter") {
				maxIter = a.conf.Simrank.MaxIter
			}
			if !flags.Changed("workers") {
				workers = a.conf.Simrank.Workers
			}

			opts := []simrank.Option{simrank.WithWorkers(workers), simrank.WithLogger(a.logger)}
			if seed != 0 {
				opts = append(opts, simrank.WithSource(func(worker int) rand.Source {
					return rand.NewSource(seed + int64(worker))
				}))
			}

			partitions, err := simrank.NewSampler(opts...).Run(cmd.Context(), n1, n2, u, length, maxIter)
			if len(partitions) > 0 || err == nil {
				if writeErr := output.WritePartitions(cmd.OutOrStdout(), a.conf.Output.Format,
					simrank.TargetRankSum(n1, u), partitions); writeErr != nil {
					return writeErr
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&n1, "n1", 0, "size of group 1")
	cmd.Flags().IntVar(&n2, "n2", 0, "size of group 2")
	cmd.Flags().Float64Var(&u, "u", 0, "reported U statistic of group 1")
	cmd.Flags().IntVar(&length, "length", 0, "number of distinct partitions to collect")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "trial budget across all workers")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent workers, 0 for one per CPU")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 for a time-based seed")
	_ = cmd.MarkFlagRequired("n1")
	_ = cmd.MarkFlagRequired("n2")
	_ = cmd.MarkFlagRequired("u")
	return cmd
}
