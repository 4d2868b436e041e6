package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KaramelBytes/dairyreport/internal/report"
	"github.com/KaramelBytes/dairyreport/internal/testutil"
)

// runCmd executes the root command with args and returns what it printed.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset bound variables and loaded state between invocations
	repSheet, repRelationship, repOutput = "", "", ""
	repWatch = false
	cfgFile = ""
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "march.xlsx")
	b := testutil.Workbook(t,
		testutil.DataSheet(testutil.SampleDays()...),
		testutil.Sheet{Name: "Notes", Rows: [][]any{{"Shift"}, {"A"}}},
	)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return path
}

func TestCLI_Sheets(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeWorkbook(t, home)

	out, err := runCmd(t, "sheets", path)
	if err != nil {
		t.Fatalf("sheets: %v", err)
	}
	if out != "Data (data)\nNotes\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLI_ReportToStdout(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeWorkbook(t, home)

	out, err := runCmd(t, "report", path, "--sheet", "Data", "--relationship", "SNF vs Yield")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{"File: march.xlsx", "[KPIS]", "[ABNORMAL YIELD DAYS]", "SNF vs Yield", "fit: y ="} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCLI_ReportToFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeWorkbook(t, home)
	dest := filepath.Join(home, "report.md")

	out, err := runCmd(t, "report", path, "-o", dest)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.HasPrefix(out, "✓ Wrote report") {
		t.Fatalf("unexpected output: %q", out)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "[NORMAL BANDS]") {
		t.Fatalf("report file missing bands:\n%s", b)
	}
}

func TestCLI_ReportErrors(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeWorkbook(t, home)

	if _, err := runCmd(t, "report", path, "--sheet", "Nope"); err == nil || !strings.Contains(err.Error(), "Available sheets: Data, Notes") {
		t.Fatalf("expected sheet-not-found error, got %v", err)
	}
	if _, err := runCmd(t, "report", filepath.Join(home, "missing.xlsx")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if _, err := runCmd(t, "config", "set", "anomaly_band_width_in_stddevs", "2"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".dairyreport", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out, err := runCmd(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "anomaly_band_width_in_stddevs: 2\n") {
		t.Fatalf("band width not persisted:\n%s", out)
	}

	if _, err := runCmd(t, "config", "set", "target_year", "soon"); err == nil {
		t.Fatalf("expected error for non-numeric year")
	}
	if _, err := runCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestWatchReportRunsOnceBeforeWatching(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeWorkbook(t, home)
	cfg = nil
	repOutput = ""
	opt := report.OptionsFromConfig(currentConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errOut bytes.Buffer
	if err := watchReport(ctx, &out, &errOut, path, report.Request{Sheet: "Notes"}, opt); err != nil {
		t.Fatalf("watchReport: %v", err)
	}
	if !strings.Contains(out.String(), "Selected: Notes") {
		t.Fatalf("initial run missing:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "Watching") {
		t.Fatalf("watch notice missing: %q", errOut.String())
	}
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatchReportRerunsOnWrite(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeWorkbook(t, home)
	cfg = nil
	repOutput = ""
	opt := report.OptionsFromConfig(currentConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out, errOut syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchReport(ctx, &out, &errOut, path, report.Request{Sheet: "Notes"}, opt)
	}()

	if !waitFor(t, 5*time.Second, func() bool { return strings.Contains(errOut.String(), "Watching") }) {
		t.Fatalf("watcher never started: %q", errOut.String())
	}
	if n := strings.Count(out.String(), "[WORKBOOK]"); n != 1 {
		t.Fatalf("initial runs = %d:\n%s", n, out.String())
	}

	b := testutil.Workbook(t,
		testutil.DataSheet(testutil.SampleDays()...),
		testutil.Sheet{Name: "Notes", Rows: [][]any{{"Shift", "Supervisor"}, {"B", "M. Khan"}, {"C", "S. Rao"}}},
	)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("rewrite workbook: %v", err)
	}

	rerun := func() bool {
		s := out.String()
		return strings.Count(s, "[WORKBOOK]") >= 2 && strings.Contains(s, "M. Khan")
	}
	if !waitFor(t, 5*time.Second, rerun) {
		t.Fatalf("no re-run after write:\n%s\nstderr: %s", out.String(), errOut.String())
	}
	second := out.String()
	second = second[strings.LastIndex(second, "[WORKBOOK]"):]
	if !strings.Contains(second, "Selected: Notes (2 rows, 2 columns)") {
		t.Fatalf("re-run did not read the new workbook:\n%s", second)
	}
	if strings.Contains(errOut.String(), "✗") {
		t.Fatalf("re-run failed: %s", errOut.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watchReport: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watchReport did not stop after cancel")
	}
}
