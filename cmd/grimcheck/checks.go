package main

import (
	"fmt"
	"strconv"

	"github.com/iwvelando/grimcheck/internal/audit"
	"github.com/iwvelando/grimcheck/internal/config"
	"github.com/iwvelando/grimcheck/pkg/debit"
	"github.com/iwvelando/grimcheck/pkg/grim"
	"github.com/iwvelando/grimcheck/pkg/grimmer"
	"github.com/iwvelando/grimcheck/pkg/output"
	"github.com/spf13/cobra"
)

// checkFlags holds the per-invocation overrides of the configured check
// defaults. Only flags given on the command line replace configured values.
type checkFlags struct {
	rounding  []string
	threshold float64
	symmetric bool
	tolerance float64
	items     uint
	percent   bool
	formula   string
	show      bool
}

func (f *checkFlags) registerRounding(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.rounding, "rounding", nil, "rounding modes, e.g. up_or_down or up,down")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "digit at which rounding goes up, for the *_from modes")
	cmd.Flags().BoolVar(&f.symmetric, "symmetric", false, "round negative values the same way as positive ones")
}

func (f *checkFlags) registerItems(cmd *cobra.Command) {
	cmd.Flags().UintVar(&f.items, "items", 0, "number of items per observation")
	cmd.Flags().BoolVar(&f.percent, "percent", false, "the mean is a percentage")
}

func (f *checkFlags) apply(cmd *cobra.Command, checks *config.ChecksConfig) {
	flags := cmd.Flags()
	if flags.Changed("rounding") {
		checks.Rounding = f.rounding
	}
	if flags.Changed("threshold") {
		checks.Threshold = f.threshold
	}
	if flags.Changed("symmetric") {
		checks.Symmetric = f.symmetric
	}
	if flags.Changed("tolerance") {
		checks.Tolerance = f.tolerance
	}
	if flags.Changed("items") {
		checks.Items = f.items
	}
	if flags.Changed("percent") {
		checks.Percent = f.percent
	}
	if flags.Changed("formula") {
		checks.Formula = f.formula
	}
}

func parseCount(name, value string) (uint, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", name, value)
	}
	return uint(n), nil
}

func grimCmd(a *app) *cobra.Command {
	f := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "grim <mean> <n>",
		Short: "Test whether a mean is possible for integer data of sample size n",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount("n", args[1])
			if err != nil {
				return err
			}
			f.apply(cmd, &a.conf.Checks)
			opts, err := a.conf.GrimOptions()
			if err != nil {
				return err
			}
			opts.ShowRec = f.show

			result, err := grim.Scalar(args[0], n, opts)
			if err != nil {
				return err
			}

			row := audit.ReportRow{X: args[0], N: n, Items: opts.Items, Consistent: result.Consistent}
			if result.Diagnostics != nil {
				row.Diagnostics = result.Diagnostics
			}
			return a.writeRows(cmd, audit.CheckGRIM, row)
		},
	}

	f.registerRounding(cmd)
	f.registerItems(cmd)
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", 0, "tolerance when comparing reconstructed and reported means")
	cmd.Flags().BoolVar(&f.show, "show-rec", false, "show the reconstructed values")
	return cmd
}

func grimmerCmd(a *app) *cobra.Command {
	f := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "grimmer <mean> <sd> <n>",
		Short: "Test whether a mean and standard deviation are possible together",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount("n", args[2])
			if err != nil {
				return err
			}
			f.apply(cmd, &a.conf.Checks)
			opts, err := a.conf.GrimmerOptions()
			if err != nil {
				return err
			}
			opts.ShowReason = f.show

			result, err := grimmer.Scalar(args[0], args[1], n, opts)
			if err != nil {
				return err
			}
			return a.writeRows(cmd, audit.CheckGRIMMER, audit.ReportRow{
				X:          args[0],
				SD:         args[1],
				N:          n,
				Consistent: result.Consistent,
				Reason:     string(result.Reason),
			})
		},
	}

	f.registerRounding(cmd)
	cmd.Flags().UintVar(&f.items, "items", 0, "number of items per observation (only 1 is supported)")
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", 0, "tolerance when comparing reconstructed and reported values")
	cmd.Flags().BoolVar(&f.show, "show-reason", true, "explain which test failed")
	return cmd
}

func debitCmd(a *app) *cobra.Command {
	f := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "debit <proportion> <sd> <n>",
		Short: "Test whether a binary mean and standard deviation are possible together",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount("n", args[2])
			if err != nil {
				return err
			}
			f.apply(cmd, &a.conf.Checks)
			opts, err := a.conf.DebitOptions()
			if err != nil {
				return err
			}
			opts.ShowRec = f.show

			result, err := debit.Scalar(args[0], args[1], n, opts)
			if err != nil {
				return err
			}

			row := audit.ReportRow{X: args[0], SD: args[1], N: n, Consistent: result.Consistent}
			if result.Diagnostics != nil {
				row.Diagnostics = result.Diagnostics
			}
			return a.writeRows(cmd, audit.CheckDEBIT, row)
		},
	}

	f.registerRounding(cmd)
	cmd.Flags().StringVar(&f.formula, "formula", "", "SD formula: mean_n, 0_n, 1_n or groups")
	cmd.Flags().BoolVar(&f.show, "show-rec", false, "show the bounds and reconstructed SDs")
	return cmd
}

func statsCmd(a *app) *cobra.Command {
	f := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "stats <mean> <n>",
		Short: "Show how likely a mean at its precision is to be GRIM-inconsistent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount("n", args[1])
			if err != nil {
				return err
			}
			f.apply(cmd, &a.conf.Checks)
			items, percent := a.conf.Checks.Items, a.conf.Checks.Percent

			stats := output.Stats{X: args[0], N: n, Items: items}
			if stats.Probability, err = grim.Probability(args[0], n, items, percent); err != nil {
				return err
			}
			if stats.Ratio, err = grim.Ratio(args[0], n, items, percent); err != nil {
				return err
			}
			if stats.Total, err = grim.Total(args[0], n, items, percent); err != nil {
				return err
			}
			return output.WriteStats(cmd.OutOrStdout(), a.conf.Output.Format, stats)
		},
	}

	f.registerItems(cmd)
	return cmd
}
