package debit

import (
	"fmt"

	"github.com/iwvelando/grimcheck/pkg/grim"
)

// Row is the outcome of one row of a vectorized check.
type Row struct {
	Result
	Err error `json:"-"`
}

// MapResult holds one Row per input row, in input order.
type MapResult struct {
	Rows []Row
}

// Failed returns the indices of rows that could not be checked.
func (m MapResult) Failed() []int {
	var failed []int
	for i, row := range m.Rows {
		if row.Err != nil {
			failed = append(failed, i)
		}
	}
	return failed
}

// Consistent returns the verdict of every row. Failed rows report false.
func (m MapResult) Consistent() []bool {
	out := make([]bool, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row.Err == nil && row.Consistent
	}
	return out
}

// Map runs DEBIT over parallel columns of binary means, SDs and sample sizes.
func Map(xs, sds []string, ns []uint, opts Options) (MapResult, error) {
	if len(xs) != len(sds) || len(xs) != len(ns) {
		return MapResult{}, fmt.Errorf("debit: %d means, %d sds, %d sample sizes: %w",
			len(xs), len(sds), len(ns), grim.ErrLengthMismatch)
	}

	rows := make([]Row, len(xs))
	for i := range xs {
		res, err := Scalar(xs[i], sds[i], ns[i], opts)
		rows[i] = Row{Result: res, Err: err}
	}
	return MapResult{Rows: rows}, nil
}
