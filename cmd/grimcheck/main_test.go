package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/grimcheck/internal/audit"
	"github.com/iwvelando/grimcheck/internal/config"
	"github.com/iwvelando/grimcheck/pkg/output"
	"github.com/iwvelando/grimcheck/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against a missing config file so the
// built-in defaults apply.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, filepath.Join(t.TempDir(), "missing.yaml"), args...)
}

func runWithConfig(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func decodeReport(t *testing.T, out string) audit.Report {
	t.Helper()
	var report audit.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func TestGrimCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		consistent bool
	}{
		{"Inconsistent", []string{"grim", "5.19", "40"}, false},
		{"Consistent", []string{"grim", "5.18", "40"}, true},
		{"Items", []string{"grim", "2.5", "3", "--items", "2"}, true},
		{"Percent", []string{"grim", "33.33", "3", "--percent"}, true},
		{"Rounding override", []string{"grim", "5.18", "40", "--rounding", "up,down"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append(tt.args, "--output-format", "json")...)
			require.NoError(t, err)

			report := decodeReport(t, out)
			require.Len(t, report.Rows, 1)
			assert.Equal(t, tt.consistent, report.Rows[0].Consistent)
			assert.Nil(t, report.Rows[0].Diagnostics)
		})
	}
}

func TestGrimCommandShowRec(t *testing.T) {
	out, err := run(t, "grim", "5.18", "40", "--show-rec", "--output-format", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	diagnostics, ok := report.Rows[0].Diagnostics.(map[string]interface{})
	require.True(t, ok, "expected diagnostics object, got %T", report.Rows[0].Diagnostics)
	assert.Equal(t, float64(2), diagnostics["digits"])
}

func TestGrimCommandPretty(t *testing.T) {
	out, err := run(t, "grim", "5.19", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "--- grim report")
	assert.Contains(t, out, "inconsistent")
}

func TestGrimmerCommand(t *testing.T) {
	out, err := run(t, "grimmer", "2.80", "1.72", "5", "--output-format", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.False(t, report.Rows[0].Consistent)
	assert.Equal(t, "failed test 3", report.Rows[0].Reason)
	assert.Equal(t, "1.72", report.Rows[0].SD)

	out, err = run(t, "grimmer", "3.00", "1.58", "5", "--show-reason=false", "--output-format", "json")
	require.NoError(t, err)
	report = decodeReport(t, out)
	assert.True(t, report.Rows[0].Consistent)
	assert.Empty(t, report.Rows[0].Reason)
}

func TestDebitCommand(t *testing.T) {
	out, err := run(t, "debit", "0.30", "0.47", "20", "--output-format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "true", records[1][5])

	_, err = run(t, "debit", "0.30", "0.47", "20", "--formula", "bogus")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, "stats", "8.2", "6", "--percent", "--output-format", "json")
	require.NoError(t, err)

	var stats output.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.InDelta(t, 0.994, stats.Probability, 1e-12)
	assert.Equal(t, 994.0, stats.Total)
}

func TestSimrankCommand(t *testing.T) {
	out, err := run(t, "simrank", "--n1", "2", "--n2", "2", "--u", "0", "--seed", "7", "--max-iter", "5000", "--output-format", "json")
	require.NoError(t, err)

	var resp struct {
		TargetRankSum int `json:"targetRankSum"`
		Partitions    []struct {
			Group1 []int `json:"group1"`
		} `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.TargetRankSum)
	require.Len(t, resp.Partitions, 1)
	assert.Equal(t, []int{1, 2}, resp.Partitions[0].Group1)

	_, err = run(t, "simrank", "--n1", "2", "--n2", "2", "--u", "9")
	assert.Error(t, err)

	_, err = run(t, "simrank", "--n1", "2")
	assert.Error(t, err)
}

func TestAuditCommand(t *testing.T) {
	path := testutil.WriteTable(t, "means.csv", "mean,size\n5.19,40\n5.18,40\nn/a,40\n")

	out, err := run(t, "audit", path, "--x", "mean", "--n", "1", "--output-format", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, audit.CheckGRIM, report.Check)
	assert.Equal(t, 1, report.Consistent)
	assert.Equal(t, 1, report.Inconsistent)
	assert.Equal(t, []int{2}, report.Failed)
	require.NotNil(t, testutil.FindRow(&report, "n/a"))
	assert.Contains(t, testutil.FindRow(&report, "n/a").Error, "not numeric")
}

func TestAuditCommandErrors(t *testing.T) {
	path := testutil.WriteTable(t, "means.csv", "x,n\n5.18,40\n")

	tests := []struct {
		name string
		args []string
	}{
		{"Unknown check", []string{"audit", path, "--check", "grimm"}},
		{"Missing sd column", []string{"audit", path, "--check", "grimmer"}},
		{"Missing file", []string{"audit", filepath.Join(t.TempDir(), "none.csv")}},
		{"Unsupported format", []string{"audit", filepath.Join(t.TempDir(), "means.txt")}},
		{"Bad column spec", []string{"audit", path, "--x", " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Not numeric", []string{"grim", "abc", "40"}},
		{"Bad sample size", []string{"grim", "5.18", "forty"}},
		{"Missing arguments", []string{"grim", "5.18"}},
		{"Bad output format", []string{"grim", "5.18", "40", "--output-format", "xml"}},
		{"Bad log level", []string{"grim", "5.18", "40", "--log-level", "loud"}},
		{"Unknown rounding mode", []string{"grim", "5.18", "40", "--rounding", "sideways"}},
		{"GRIMMER items", []string{"grimmer", "3.00", "1.58", "5", "--items", "2"}},
		{"Bad upload limit", []string{"serve", "--server-config", "", "--max-upload-size", "1TB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConfigFileDefaults(t *testing.T) {
	path := testutil.WriteTable(t, "grimcheck.yaml", "output:\n  format: json\nchecks:\n  items: 2\n")

	out, err := runWithConfig(t, path, "grim", "2.5", "3")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.True(t, report.Rows[0].Consistent)
	assert.Equal(t, uint(2), report.Rows[0].Items)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestInitializeLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "grimcheck.log")

	tests := []struct {
		name     string
		logging  config.LoggingConfig
		override string
		wantErr  bool
	}{
		{"Defaults", config.LoggingConfig{}, "", false},
		{"Console debug", config.LoggingConfig{Level: "debug", Format: "console"}, "", false},
		{"Override wins", config.LoggingConfig{Level: "loud"}, "warn", false},
		{"Output file", config.LoggingConfig{OutputFile: logFile}, "", false},
		{"Bad level", config.LoggingConfig{Level: "loud"}, "", true},
		{"Bad format", config.LoggingConfig{Format: "text"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.logging, tt.override)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	_, err := os.Stat(logFile)
	assert.NoError(t, err)
}
