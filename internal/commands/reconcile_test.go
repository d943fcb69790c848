package commands_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/auditlog"
)

type reconcileOutput struct {
	RunID   string `json:"run_id"`
	Summary struct {
		Matched    int            `json:"matched"`
		ByStrategy map[string]int `json:"by_strategy"`
		TotalFees  string         `json:"total_fees"`
	} `json:"summary"`
	Result struct {
		Matches []struct {
			LedgerID string `json:"ledger_id"`
			BankID   string `json:"bank_id"`
			Strategy string `json:"strategy"`
		} `json:"matches"`
		UnmatchedBank   []string `json:"unmatched_bank"`
		UnmatchedLedger []string `json:"unmatched_ledger"`
	} `json:"result"`
}

func testdata(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return p
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func decodeRun(t *testing.T, out string) reconcileOutput {
	t.Helper()
	var got reconcileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	return got
}

func assertBooks(t *testing.T, got reconcileOutput) {
	t.Helper()
	assert.Equal(t, 3, got.Summary.Matched)
	assert.Equal(t, map[string]int{"exact": 2, "fee": 1, "fuzzy": 0}, got.Summary.ByStrategy)
	assert.Equal(t, "14.8", got.Summary.TotalFees)
	assert.Equal(t, []string{"B3"}, got.Result.UnmatchedBank)
	assert.Equal(t, []string{"L3"}, got.Result.UnmatchedLedger)

	require.Len(t, got.Result.Matches, 3)
	assert.Equal(t, "L1", got.Result.Matches[0].LedgerID)
	assert.Equal(t, "B1", got.Result.Matches[0].BankID)
	assert.Equal(t, "L4", got.Result.Matches[2].LedgerID)
	assert.Equal(t, "fee", got.Result.Matches[2].Strategy)
}

func TestReconcile_JSON(t *testing.T) {
	dir := t.TempDir()
	out, _, err := runRecon(t, dir, "reconcile",
		"--bank", testdata(t, "bank.csv"),
		"--ledger", testdata(t, "ledger.csv"),
		"-o", "json")
	require.NoError(t, err)

	got := decodeRun(t, out)
	assert.NotEmpty(t, got.RunID)
	assertBooks(t, got)

	// Outside a project nothing is persisted unless asked.
	_, err = os.Stat(filepath.Join(dir, "recon.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestReconcile_Sharded(t *testing.T) {
	out, _, err := runRecon(t, t.TempDir(), "reconcile",
		"--bank", testdata(t, "bank.csv"),
		"--ledger", testdata(t, "ledger.csv"),
		"--shards", "4",
		"-o", "json")
	require.NoError(t, err)
	assertBooks(t, decodeRun(t, out))
}

func TestReconcile_Table(t *testing.T) {
	out, _, err := runRecon(t, t.TempDir(), "reconcile",
		"--bank", testdata(t, "bank.csv"),
		"--ledger", testdata(t, "ledger.csv"))
	require.NoError(t, err)

	assert.Contains(t, strings.ToUpper(out), "STRATEGY")
	assert.Contains(t, out, "B4")
	assert.Contains(t, out, "Matched 3 (exact 2, fee 1, fuzzy 0), fees 14.80")
	assert.Contains(t, out, "Unmatched bank (1): B3")
	assert.Contains(t, out, "Unmatched ledger (1): L3")
}

func TestReconcile_StoreAndAudit(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	audit := filepath.Join(dir, "audit.csv")

	out, _, err := runRecon(t, dir, "reconcile",
		"--bank", testdata(t, "bank.csv"),
		"--ledger", testdata(t, "ledger.csv"),
		"--store", db,
		"--audit", audit,
		"-o", "json")
	require.NoError(t, err)
	run := decodeRun(t, out)

	entries, err := auditlog.Read(audit)
	require.NoError(t, err)
	assert.Len(t, auditlog.ForRun(entries, run.RunID), 5, "3 matches plus 2 unmatched records")

	out, _, err = runRecon(t, dir, "runs", "show", run.RunID, "--store", db, "-o", "json")
	require.NoError(t, err)
	var shown struct {
		ID     string `json:"id"`
		State  string `json:"state"`
		Result struct {
			UnmatchedLedger []string `json:"unmatched_ledger"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, run.RunID, shown.ID)
	assert.Equal(t, "completed", shown.State)
	assert.Equal(t, []string{"L3"}, shown.Result.UnmatchedLedger)

	out, _, err = runRecon(t, dir, "runs", "list", "--store", db)
	require.NoError(t, err)
	assert.Contains(t, out, run.RunID)
}

func TestReconcile_ProjectImportDir(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRecon(t, dir, "init")
	require.NoError(t, err)
	copyFile(t, testdata(t, "bank.csv"), filepath.Join(dir, "import", "bank-2025-01.csv"))
	copyFile(t, testdata(t, "ledger.csv"), filepath.Join(dir, "import", "ledger-2025-01.csv"))

	out, _, err := runRecon(t, dir, "reconcile", "--archive", "-o", "json")
	require.NoError(t, err)
	run := decodeRun(t, out)
	assertBooks(t, run)

	// Project defaults persist the run and audit trail.
	_, err = os.Stat(filepath.Join(dir, "recon.db"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "logs", "recon-audit.csv"))
	require.NoError(t, err)

	for _, name := range []string{"bank-2025-01.csv", "ledger-2025-01.csv"} {
		_, err = os.Stat(filepath.Join(dir, "import", "processed", name))
		require.NoError(t, err, "%s should be archived", name)
	}

	out, _, err = runRecon(t, dir, "runs", "list", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, run.RunID)
}

func TestReconcile_MissingImport(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRecon(t, dir, "init")
	require.NoError(t, err)

	_, stderr, err := runRecon(t, dir, "reconcile")
	require.Error(t, err)
	assert.Contains(t, stderr, "no bank file in import/")
}

func TestReconcile_RequiresFilesOutsideProject(t *testing.T) {
	_, stderr, err := runRecon(t, t.TempDir(), "reconcile", "--bank", testdata(t, "bank.csv"))
	require.Error(t, err)
	assert.Contains(t, stderr, "required outside a recon project")
}

func TestReconcile_InvalidRecord(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bank.csv")
	require.NoError(t, os.WriteFile(bad, []byte("id,date,description,amount\nB1,not-a-date,X,1.00\n"), 0o644))

	_, stderr, err := runRecon(t, dir, "reconcile", "--bank", bad, "--ledger", testdata(t, "ledger.csv"))
	require.Error(t, err)
	assert.Contains(t, stderr, "B1")
}

func TestReconcile_InvalidConfigEnv(t *testing.T) {
	t.Setenv("RECON_FEE_MIN_RATIO", "1.5")
	_, stderr, err := runRecon(t, t.TempDir(), "reconcile",
		"--bank", testdata(t, "bank.csv"),
		"--ledger", testdata(t, "ledger.csv"))
	require.Error(t, err)
	assert.Contains(t, stderr, "fee_min_ratio")
}

func TestReconcile_UnknownOutput(t *testing.T) {
	_, _, err := runRecon(t, t.TempDir(), "reconcile",
		"--bank", testdata(t, "bank.csv"),
		"--ledger", testdata(t, "ledger.csv"),
		"-o", "xml")
	require.Error(t, err)
}

func TestRuns_NoStore(t *testing.T) {
	_, stderr, err := runRecon(t, t.TempDir(), "runs", "list")
	require.Error(t, err)
	assert.Contains(t, stderr, "no run store configured")
}
