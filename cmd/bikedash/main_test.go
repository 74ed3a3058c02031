package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/rentals"
	"bikedash/internal/shared/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	// keep the configured base dir and log file inside the test
	t.Setenv("BIKEDASH_PATHS_BASE_DIR", t.TempDir())
	t.Setenv("BIKEDASH_LOGGING_LEVEL", "error")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func fixture(t *testing.T) string {
	return testutil.WriteRentalCSV(t,
		testutil.RentalRow{Date: "2011-01-01", Season: "1", Hour: "0", Count: "16", Casual: "3", Registered: "13"},
		testutil.RentalRow{Date: "2011-01-01", Season: "1", Hour: "1", Count: "40", Casual: "8", Registered: "32"},
		testutil.RentalRow{Date: "2011-06-01", Season: "2", Hour: "8", Count: "90", Casual: "20", Registered: "70"},
	)
}

func TestValidate(t *testing.T) {
	stdout, _, err := execute(t, "validate", "--data", fixture(t))
	require.NoError(t, err)

	var report rentals.LoadReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, rentals.ProfileX, report.Profile)
	assert.Zero(t, report.UnknownSeasonRows)
}

func TestValidate_SchemaMismatch(t *testing.T) {
	path := testutil.WriteCSV(t, "all_data.csv", testutil.WithoutColumn(testutil.RentalHeaderX, "hr"), nil)

	_, stderr, err := execute(t, "validate", "--data", path, "--profile", rentals.ProfileX)
	require.Error(t, err)
	assert.ErrorIs(t, err, rentals.ErrSchemaMismatch)
	assert.Contains(t, stderr, "hr")
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", "--data", filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, rentals.ErrDatasetNotFound)
}

func TestExport(t *testing.T) {
	out := t.TempDir()
	stdout, _, err := execute(t, "export", "--data", fixture(t), "--out", out, "--format", "CSV", "--season", rentals.SeasonSpring)
	require.NoError(t, err)

	files := strings.Fields(stdout)
	require.NotEmpty(t, files)
	for _, f := range files {
		assert.Equal(t, out, filepath.Dir(f))
		assert.Equal(t, ".csv", filepath.Ext(f))
	}

	seasons, err := os.ReadFile(filepath.Join(out, "seasons.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(seasons), rentals.SeasonSpring)
	assert.NotContains(t, string(seasons), rentals.SeasonSummer)
}

func TestExport_Workbook(t *testing.T) {
	out := t.TempDir()
	stdout, _, err := execute(t, "export", "-d", fixture(t), "-o", out, "-f", "xlsx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "dashboard.xlsx"), strings.TrimSpace(stdout))
}

func TestExport_BadFlags(t *testing.T) {
	_, _, err := execute(t, "export", "--data", fixture(t), "--format", "pdf")
	assert.Error(t, err)

	_, _, err = execute(t, "export", "--data", fixture(t), "--start", "01/02/2011")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
}

func TestRender(t *testing.T) {
	out := t.TempDir()
	stdout, _, err := execute(t, "render", "--data", fixture(t), "--out", out, "--width", "320", "--height", "240")
	require.NoError(t, err)

	files := strings.Fields(stdout)
	require.NotEmpty(t, files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), f)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "bikedash dev"))
}
