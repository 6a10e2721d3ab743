// Package audit runs a consistency check over every row of a table and
// collects the verdicts into a report.
package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/iwvelando/grimcheck/internal/tabular"
	"github.com/iwvelando/grimcheck/pkg/debit"
	"github.com/iwvelando/grimcheck/pkg/grim"
	"github.com/iwvelando/grimcheck/pkg/grimmer"
	"github.com/iwvelando/grimcheck/pkg/validation"
	"go.uber.org/zap"
)

// Check names a consistency test.
type Check string

const (
	CheckGRIM    Check = "grim"
	CheckGRIMMER Check = "grimmer"
	CheckDEBIT   Check = "debit"
)

// ParseCheck converts a check name into a Check.
func ParseCheck(s string) (Check, error) {
	switch c := Check(strings.ToLower(strings.TrimSpace(s))); c {
	case CheckGRIM, CheckGRIMMER, CheckDEBIT:
		return c, nil
	}
	return "", fmt.Errorf("unknown check %q, expected grim, grimmer or debit", s)
}

// Columns selects the table columns a check reads. SD is required by GRIMMER
// and DEBIT; Items is optional and only used by GRIM.
type Columns struct {
	X     tabular.ColumnSpec
	SD    tabular.ColumnSpec
	N     tabular.ColumnSpec
	Items tabular.ColumnSpec
}

// ReportRow is the verdict for one data row. Row is the zero-based data row
// index. Error is set when the row could not be checked.
type ReportRow struct {
	Row        int    `json:"row"`
	X          string `json:"x"`
	SD         string `json:"sd,omitempty"`
	N          uint   `json:"n"`
	Items      uint   `json:"items,omitempty"`
	Consistent bool   `json:"consistent"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`

	// Diagnostics is set by single-value checks that were asked to show their
	// reconstruction.
	Diagnostics interface{} `json:"diagnostics,omitempty"`
}

// Report holds all information related to one audit.
type Report struct {
	ID           string      `json:"id"`
	Check        Check       `json:"check"`
	Rows         []ReportRow `json:"rows"`
	Failed       []int       `json:"failed"`
	Warnings     []string    `json:"warnings,omitempty"`
	Consistent   int         `json:"consistent"`
	Inconsistent int         `json:"inconsistent"`
}

// Runner runs audits and logs their progress.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a Runner. A nil logger discards all output.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// verdict is what an engine says about one row.
type verdict struct {
	consistent bool
	reason     string
	err        error
}

// input holds the coerced columns of the rows that will be checked.
type input struct {
	xs    []string
	sds   []string
	ns    []uint
	items []uint
}

type evaluator func(in input) ([]verdict, error)

// RunGRIM checks every row's mean with GRIM.
func (r *Runner) RunGRIM(table *tabular.Table, cols Columns, opts grim.Options) (*Report, error) {
	return r.run("audit.RunGRIM", CheckGRIM, table, cols, func(in input) ([]verdict, error) {
		res, err := grim.Map(in.xs, in.ns, in.items, opts)
		if err != nil {
			return nil, err
		}
		out := make([]verdict, len(res.Rows))
		for i, row := range res.Rows {
			out[i] = verdict{consistent: row.Consistent, err: row.Err}
		}
		return out, nil
	})
}

// RunGRIMMER checks every row's mean and SD with GRIMMER.
func (r *Runner) RunGRIMMER(table *tabular.Table, cols Columns, opts grimmer.Options) (*Report, error) {
	return r.run("audit.RunGRIMMER", CheckGRIMMER, table, cols, func(in input) ([]verdict, error) {
		res, err := grimmer.Map(in.xs, in.sds, in.ns, opts)
		if err != nil {
			return nil, err
		}
		out := make([]verdict, len(res.Rows))
		for i, row := range res.Rows {
			out[i] = verdict{consistent: row.Consistent, reason: string(row.Reason), err: row.Err}
		}
		return out, nil
	})
}

// RunDEBIT checks every row's binary mean and SD with DEBIT.
func (r *Runner) RunDEBIT(table *tabular.Table, cols Columns, opts debit.Options) (*Report, error) {
	return r.run("audit.RunDEBIT", CheckDEBIT, table, cols, func(in input) ([]verdict, error) {
		res, err := debit.Map(in.xs, in.sds, in.ns, opts)
		if err != nil {
			return nil, err
		}
		out := make([]verdict, len(res.Rows))
		for i, row := range res.Rows {
			out[i] = verdict{consistent: row.Consistent, err: row.Err}
		}
		return out, nil
	})
}

func (r *Runner) run(op string, check Check, table *tabular.Table, cols Columns, eval evaluator) (*Report, error) {
	report := &Report{ID: uuid.NewString(), Check: check, Failed: []int{}}

	xs, err := table.Strings(cols.X)
	if err != nil {
		return nil, fmt.Errorf("mean column: %w", err)
	}
	if table.LooksNumeric(cols.X) {
		report.Warnings = append(report.Warnings, validation.NumericColumnWarning(cols.X.String()))
	}

	needSD := check != CheckGRIM
	var sds []string
	if needSD {
		sds, err = table.Strings(cols.SD)
		if err != nil {
			return nil, fmt.Errorf("sd column: %w", err)
		}
		if table.LooksNumeric(cols.SD) {
			report.Warnings = append(report.Warnings, validation.NumericColumnWarning(cols.SD.String()))
		}
	}

	ns, badN, err := table.Counts(cols.N)
	if err != nil {
		return nil, fmt.Errorf("sample size column: %w", err)
	}

	coercion := make(map[int]string, len(badN))
	for _, i := range badN {
		coercion[i] = fmt.Sprintf("sample size %q is not a whole number", table.Rows[i][mustColumn(table, cols.N)])
	}

	var items []uint
	if !cols.Items.IsZero() {
		if check != CheckGRIM {
			report.Warnings = append(report.Warnings, fmt.Sprintf("items column %s is ignored by %s", cols.Items, check))
		} else {
			var badItems []int
			items, badItems, err = table.Counts(cols.Items)
			if err != nil {
				return nil, fmt.Errorf("items column: %w", err)
			}
			for _, i := range badItems {
				if _, ok := coercion[i]; !ok {
					coercion[i] = fmt.Sprintf("items %q is not a whole number", table.Rows[i][mustColumn(table, cols.Items)])
				}
			}
		}
	}

	// Only rows that survived coercion reach the engine.
	var kept []int
	var in input
	for i := range xs {
		if _, bad := coercion[i]; bad {
			continue
		}
		kept = append(kept, i)
		in.xs = append(in.xs, xs[i])
		in.ns = append(in.ns, ns[i])
		if needSD {
			in.sds = append(in.sds, sds[i])
		}
		if items != nil {
			in.items = append(in.items, items[i])
		}
	}

	verdicts, err := eval(in)
	if err != nil {
		return nil, err
	}

	report.Rows = make([]ReportRow, len(xs))
	for i := range xs {
		report.Rows[i] = ReportRow{Row: i, X: xs[i], N: ns[i]}
		if needSD {
			report.Rows[i].SD = sds[i]
		}
		if items != nil {
			report.Rows[i].Items = items[i]
		}
	}
	for i, msg := range coercion {
		report.Rows[i].Error = msg
		report.Failed = append(report.Failed, i)
	}
	for k, v := range verdicts {
		row := &report.Rows[kept[k]]
		if v.err != nil {
			row.Error = v.err.Error()
			report.Failed = append(report.Failed, kept[k])
			continue
		}
		row.Consistent = v.consistent
		row.Reason = v.reason
		if v.consistent {
			report.Consistent++
		} else {
			report.Inconsistent++
		}
	}
	sort.Ints(report.Failed)

	for _, i := range report.Failed {
		r.logger.Warn("row could not be checked",
			zap.String("op", op),
			zap.String("report", report.ID),
			zap.Int("row", i),
			zap.String("error", report.Rows[i].Error),
		)
	}
	r.logger.Info("audit finished",
		zap.String("op", op),
		zap.String("report", report.ID),
		zap.Int("rows", len(report.Rows)),
		zap.Int("consistent", report.Consistent),
		zap.Int("inconsistent", report.Inconsistent),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// mustColumn resolves a spec that has already been resolved once.
func mustColumn(table *tabular.Table, spec tabular.ColumnSpec) int {
	col, _ := table.Column(spec)
	return col
}
