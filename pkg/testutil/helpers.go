// Package testutil provides common utility functions for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/grimcheck/internal/audit"
)

// FindRow finds the verdict for a reported mean in the report.
// Returns a pointer to the first matching row if found, nil otherwise.
func FindRow(report *audit.Report, x string) *audit.ReportRow {
	if report == nil {
		return nil
	}
	for i := range report.Rows {
		if report.Rows[i].X == x {
			return &report.Rows[i]
		}
	}
	return nil
}

// WriteTable writes contents to a file called name in a fresh temporary
// directory and returns its path.
func WriteTable(t testing.TB, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
