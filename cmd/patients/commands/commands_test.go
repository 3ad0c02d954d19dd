package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so runs don't leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI against a data file and returns what it printed.
func run(t *testing.T, data string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	prev, prevErr := output.Out, output.ErrOut
	output.Out, output.ErrOut = &buf, &buf
	t.Cleanup(func() { output.Out, output.ErrOut = prev, prevErr })

	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--data", data}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func dataPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "patients.csv")
}

func load(t *testing.T, path string) patient.Table {
	t.Helper()
	tbl, err := tabular.Import(path)
	require.NoError(t, err)
	return tbl
}

func TestList_StartupTable(t *testing.T) {
	data := dataPath(t)

	out, err := run(t, data, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Kapil")
	assert.Contains(t, out, "Lung infection")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Total patients: 4")
	assert.Contains(t, out, "High-risk patients: 1")
	assert.Contains(t, out, "Average BMI: 21.0")

	// Listing does not create the data file.
	_, statErr := os.Stat(data)
	assert.True(t, os.IsNotExist(statErr))
}

func TestList_JSON(t *testing.T) {
	out, err := run(t, dataPath(t), "list", "--json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "Arnab", rows[1]["name"])
	assert.Equal(t, "Yes", rows[1]["high_risk"])
}

func TestAdd(t *testing.T) {
	data := dataPath(t)

	out, err := run(t, data, "add", "--name", " Zara ", "--age", "40", "--height", "160", "--weight", "120")
	require.NoError(t, err)
	assert.Contains(t, out, "Patient Zara added with ID 5")

	tbl := load(t, data)
	require.Equal(t, 5, tbl.Len())
	r, _ := tbl.Row(5)
	assert.Equal(t, "Zara", r.Name)
	assert.Equal(t, 46.9, r.BMI.Float)
	assert.True(t, r.HighRisk)
}

func TestAdd_Invalid(t *testing.T) {
	data := dataPath(t)

	_, err := run(t, data, "add", "--age", "40")
	assert.ErrorIs(t, err, patient.ErrNameRequired)

	_, err = run(t, data, "add", "--name", "Zara", "--age", "forty")
	assert.ErrorContains(t, err, "--age must be a number")

	_, err = run(t, data, "add", "--name", "Zara", "--height", "900")
	var rangeErr *patient.RangeError
	assert.ErrorAs(t, err, &rangeErr)

	_, err = run(t, data, "add", "--name", "Zara", "--age", "40.5")
	assert.ErrorIs(t, err, patient.ErrAgeNotWhole)

	_, statErr := os.Stat(data)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEdit(t *testing.T) {
	data := dataPath(t)

	_, err := run(t, data, "edit", "3", "--weight", "120")
	require.NoError(t, err)

	r, ok := load(t, data).Row(3)
	require.True(t, ok)
	assert.Equal(t, "Lily", r.Name)
	assert.Equal(t, "Lung infection", r.Condition)
	assert.Equal(t, 42.5, r.BMI.Float)
	assert.True(t, r.HighRisk)

	_, err = run(t, data, "edit", "9", "--weight", "70")
	assert.ErrorContains(t, err, "patient 9 not found")

	_, err = run(t, data, "edit", "zero")
	assert.ErrorContains(t, err, "invalid patient ID")
}

func TestRemove(t *testing.T) {
	data := dataPath(t)

	out, err := run(t, data, "remove", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "3 patient(s) remain")

	tbl := load(t, data)
	require.Equal(t, 3, tbl.Len())
	first, _ := tbl.Row(1)
	assert.Equal(t, "Arnab", first.Name)
	assert.Equal(t, 1, first.ID)

	_, err = run(t, data, "remove", "4")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	data := dataPath(t)

	out, err := run(t, data, "search", "--json", "--mode", "partial", "LI")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Lily", rows[0]["name"])

	out, err = run(t, data, "search", "--json", "kapil")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 2)

	out, err = run(t, data, "search", "--mode", "id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching patient found.")

	_, err = run(t, data, "search", "--mode", "regex", "K.*")
	assert.ErrorContains(t, err, "unknown search mode")
}

func TestReset(t *testing.T) {
	data := dataPath(t)
	_, err := run(t, data, "remove", "1")
	require.NoError(t, err)

	out, err := run(t, data, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "--yes")
	assert.Equal(t, 3, load(t, data).Len())

	_, err = run(t, data, "reset", "--yes")
	require.NoError(t, err)
	assert.True(t, load(t, data).Equal(patient.Initial()))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	csvPath := filepath.Join(dir, "out.csv")
	xlsxPath := filepath.Join(dir, "out.xlsx")

	_, err := run(t, data, "export", "--csv", csvPath, "--xlsx", xlsxPath)
	require.NoError(t, err)
	assert.True(t, load(t, csvPath).Equal(patient.Initial()))
	assert.True(t, load(t, xlsxPath).Equal(patient.Initial()))
}

func TestExport_WorkbookFailureIsSkipped(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")

	out, err := run(t, dataPath(t), "export", "--csv", csvPath, "--xlsx", filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "Excel export skipped")
	assert.FileExists(t, csvPath)
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ward.xlsx")
	require.NoError(t, tabular.Export(src, patient.Seed()))

	data := filepath.Join(dir, "data.csv")
	out, err := run(t, data, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 patient(s)")
	assert.True(t, load(t, data).Equal(patient.Seed()))

	_, err = run(t, data, "import", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestSummary_JSON(t *testing.T) {
	out, err := run(t, dataPath(t), "summary", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_patients":4,"high_risk_patients":1,"average_bmi":21}`, out)
}

func TestDB_RequiresDatabase(t *testing.T) {
	t.Setenv("PATIENTS_DATABASE_URL", "")
	_, err := run(t, dataPath(t), "db", "history")
	assert.ErrorContains(t, err, "PATIENTS_DATABASE_URL")
}

func TestErrorsAreLeftToExecute(t *testing.T) {
	out, err := run(t, dataPath(t), "edit", "9", "--weight", "70")
	require.ErrorContains(t, err, "patient 9 not found")
	assert.NotContains(t, out, "Error:")
	assert.NotContains(t, out, "patient 9 not found")
}
