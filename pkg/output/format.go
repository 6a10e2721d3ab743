// Package output provides utilities for formatting and displaying audit reports.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/grimcheck/internal/audit"
	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/iwvelando/grimcheck/pkg/simrank"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func verdictLabel(row audit.ReportRow) string {
	switch {
	case row.Error != "":
		return "error"
	case row.Consistent:
		return "consistent"
	default:
		return "inconsistent"
	}
}

// Pretty writes a human-readable rather than machine-readable table.
func Pretty(w io.Writer, report *audit.Report) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "--- %s report %s ---\n", report.Check, report.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Row   | Mean       | SD         | N          | Result       | Notes\n")
	fmt.Fprintf(w, "___   | __________ | __________ | __________ | ____________ | _____\n")
	for _, row := range report.Rows {
		notes := row.Reason
		if row.Error != "" {
			notes = row.Error
		}
		_, _ = p.Fprintf(w, "%-5d | %-10s | %-10s | %-10d | %-12s | %s\n",
			row.Row, row.X, row.SD, row.N, verdictLabel(row), notes)
		if row.Diagnostics != nil {
			fmt.Fprintf(w, "      %+v\n", row.Diagnostics)
		}
	}

	_, _ = p.Fprintf(w, "\n%d consistent, %d inconsistent, %d could not be checked\n",
		report.Consistent, report.Inconsistent, len(report.Failed))
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

// CSV writes one comma-separated record per row.
func CSV(w io.Writer, report *audit.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"row", "x", "sd", "n", "items", "consistent", "reason", "error"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		record := []string{
			strconv.Itoa(row.Row),
			row.X,
			row.SD,
			strconv.FormatUint(uint64(row.N), 10),
			strconv.FormatUint(uint64(row.Items), 10),
			strconv.FormatBool(row.Consistent),
			row.Reason,
			row.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSON writes the whole report as indented JSON.
func JSON(w io.Writer, report *audit.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// Write renders report in the named format.
func Write(w io.Writer, format string, report *audit.Report) error {
	switch format {
	case constants.OutputFormatPretty:
		return Pretty(w, report)
	case constants.OutputFormatCSV:
		return CSV(w, report)
	case constants.OutputFormatJSON:
		return JSON(w, report)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// Stats holds the GRIM statistics of one mean.
type Stats struct {
	X           string  `json:"x"`
	N           uint    `json:"n"`
	Items       uint    `json:"items"`
	Probability float64 `json:"probability"`
	Ratio       float64 `json:"ratio"`
	Total       float64 `json:"total"`
}

// WriteStats renders GRIM statistics in the named format.
func WriteStats(w io.Writer, format string, stats Stats) error {
	switch format {
	case constants.OutputFormatPretty:
		p := message.NewPrinter(language.English)
		_, err := p.Fprintf(w, "mean %s, n = %d, items = %d\nprobability: %.4f\nratio:       %.4f\ntotal:       %.0f\n",
			stats.X, stats.N, stats.Items, stats.Probability, stats.Ratio, stats.Total)
		return err
	case constants.OutputFormatCSV:
		writer := csv.NewWriter(w)
		_ = writer.Write([]string{"x", "n", "items", "probability", "ratio", "total"})
		_ = writer.Write([]string{
			stats.X,
			strconv.FormatUint(uint64(stats.N), 10),
			strconv.FormatUint(uint64(stats.Items), 10),
			strconv.FormatFloat(stats.Probability, 'g', -1, 64),
			strconv.FormatFloat(stats.Ratio, 'g', -1, 64),
			strconv.FormatFloat(stats.Total, 'g', -1, 64),
		})
		writer.Flush()
		return writer.Error()
	case constants.OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// WritePartitions renders sampled rank partitions in the named format.
func WritePartitions(w io.Writer, format string, targetRankSum int, partitions []simrank.Partition) error {
	switch format {
	case constants.OutputFormatPretty:
		fmt.Fprintf(w, "target rank sum: %d\n", targetRankSum)
		if len(partitions) == 0 {
			fmt.Fprintf(w, "no partition found within the trial budget\n")
			return nil
		}
		for i, partition := range partitions {
			fmt.Fprintf(w, "%d. group 1: %v | group 2: %v | U = %g | rank sum = %g\n",
				i+1, partition.Group1, partition.Group2, partition.U, partition.RankSum())
		}
		return nil
	case constants.OutputFormatCSV:
		writer := csv.NewWriter(w)
		_ = writer.Write([]string{"partition", "group", "rank"})
		for i, partition := range partitions {
			for group, ranks := range [][]int{partition.Group1, partition.Group2} {
				for _, rank := range ranks {
					_ = writer.Write([]string{strconv.Itoa(i + 1), strconv.Itoa(group + 1), strconv.Itoa(rank)})
				}
			}
		}
		writer.Flush()
		return writer.Error()
	case constants.OutputFormatJSON:
		if partitions == nil {
			partitions = []simrank.Partition{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			TargetRankSum int                 `json:"targetRankSum"`
			Partitions    []simrank.Partition `json:"partitions"`
		}{targetRankSum, partitions})
	}
	return fmt.Errorf("unsupported output format %q", format)
}
