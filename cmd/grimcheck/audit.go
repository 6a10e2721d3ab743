package main

import (
	"fmt"

	"github.com/iwvelando/grimcheck/internal/audit"
	"github.com/iwvelando/grimcheck/internal/tabular"
	"github.com/iwvelando/grimcheck/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func auditCmd(a *app) *cobra.Command {
	f := &checkFlags{}
	var checkName, xCol, sdCol, nCol, itemsCol string

	cmd := &cobra.Command{
		Use:   "audit <file>",
		Short: "Run a consistency check over every row of a CSV or XLSX table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := audit.ParseCheck(checkName)
			if err != nil {
				return err
			}

			cols, err := auditColumns(check, xCol, sdCol, nCol, itemsCol)
			if err != nil {
				return err
			}

			table, err := tabular.Load(args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("table loaded",
				zap.String("op", "main.audit"),
				zap.String("file", args[0]),
				zap.Int("rows", len(table.Rows)),
			)

			f.apply(cmd, &a.conf.Checks)
			runner := audit.NewRunner(a.logger)

			var report *audit.Report
			switch check {
			case audit.CheckGRIM:
				opts, err := a.conf.GrimOptions()
				if err != nil {
					return err
				}
				report, err = runner.RunGRIM(table, cols, opts)
				if err != nil {
					return err
				}
			case audit.CheckGRIMMER:
				opts, err := a.conf.GrimmerOptions()
				if err != nil {
					return err
				}
				opts.ShowReason = true
				report, err = runner.RunGRIMMER(table, cols, opts)
				if err != nil {
					return err
				}
			case audit.CheckDEBIT:
				opts, err := a.conf.DebitOptions()
				if err != nil {
					return err
				}
				report, err = runner.RunDEBIT(table, cols, opts)
				if err != nil {
					return err
				}
			}

			return output.Write(cmd.OutOrStdout(), a.conf.Output.Format, report)
		},
	}

	cmd.Flags().StringVar(&checkName, "check", string(audit.CheckGRIM), "check to run: grim, grimmer or debit")
	cmd.Flags().StringVar(&xCol, "x", "x", "mean column, by header name or zero-based index")
	cmd.Flags().StringVar(&sdCol, "sd", "sd", "standard deviation column (grimmer and debit)")
	cmd.Flags().StringVar(&nCol, "n", "n", "sample size column")
	cmd.Flags().StringVar(&itemsCol, "items", "", "optional items column (grim)")
	f.registerRounding(cmd)
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", 0, "tolerance when comparing reconstructed and reported values")
	cmd.Flags().BoolVar(&f.percent, "percent", false, "the means are percentages (grim)")
	cmd.Flags().StringVar(&f.formula, "formula", "", "SD formula for debit: mean_n, 0_n, 1_n or groups")
	return cmd
}

func auditColumns(check audit.Check, x, sd, n, items string) (audit.Columns, error) {
	var cols audit.Columns
	var err error
	if cols.X, err = tabular.ParseColumnSpec(x); err != nil {
		return cols, fmt.Errorf("--x: %w", err)
	}
	if cols.N, err = tabular.ParseColumnSpec(n); err != nil {
		return cols, fmt.Errorf("--n: %w", err)
	}
	if check != audit.CheckGRIM {
		if cols.SD, err = tabular.ParseColumnSpec(sd); err != nil {
			return cols, fmt.Errorf("--sd: %w", err)
		}
	}
	if items != "" {
		if cols.Items, err = tabular.ParseColumnSpec(items); err != nil {
			return cols, fmt.Errorf("--items: %w", err)
		}
	}
	return cols, nil
}
