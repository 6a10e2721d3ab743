package grim

import "fmt"

// Row is the outcome of one row of a vectorized check. Err is set when the
// row could not be checked, in which case Consistent is meaningless.
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

// BroadcastItems expands an items column to length rows. An empty column means
// one item per row, a single value applies to every row.
func BroadcastItems(items []uint, length int, fallback uint) ([]uint, error) {
	out := make([]uint, length)
	switch len(items) {
	case 0:
		for i := range out {
			out[i] = fallback
		}
	case 1:
		for i := range out {
			out[i] = items[0]
		}
	case length:
		copy(out, items)
	default:
		return nil, fmt.Errorf("items has %d values for %d rows: %w", len(items), length, ErrLengthMismatch)
	}
	return out, nil
}

// Map runs GRIM over parallel columns of means, sample sizes and item counts.
// Options.Items is used when items is empty. A row that fails is recorded
// with its error and never stops the batch.
func Map(xs []string, ns []uint, items []uint, opts Options) (MapResult, error) {
	if len(xs) != len(ns) {
		return MapResult{}, fmt.Errorf("grim: %d means and %d sample sizes: %w", len(xs), len(ns), ErrLengthMismatch)
	}
	perRow, err := BroadcastItems(items, len(xs), opts.Items)
	if err != nil {
		return MapResult{}, fmt.Errorf("grim: %w", err)
	}

	rows := make([]Row, len(xs))
	for i := range xs {
		rowOpts := opts
		rowOpts.Items = perRow[i]
		res, err := Scalar(xs[i], ns[i], rowOpts)
		rows[i] = Row{Result: res, Err: err}
	}
	return MapResult{Rows: rows}, nil
}
