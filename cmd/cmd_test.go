package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	world, err := filepath.Abs(filepath.Join("..", "simulator", "testdata", "world.yaml"))
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	data := fmt.Sprintf(`world:
  path: %q
logging:
  level: error
  cycle_log:
    backend: jsonl
    path: %q
scheduler:
  crash_dir: %q
`, world, filepath.Join(dir, "cycles.jsonl"), filepath.Join(dir, "crashes"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	return executeWith(t, testConfig(t), args...)
}

func executeWith(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"-c", cfg}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestClassifyCommand(t *testing.T) {
	if got := strings.TrimSpace(execute(t, "classify", "co1")); got != "special_car" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestListIdleCommand(t *testing.T) {
	out := execute(t, "list-idle")
	for _, id := range []string{"f1", "f6", "cb1", "co1"} {
		if !strings.Contains(out, id) {
			t.Fatalf("missing %s in:\n%s", id, out)
		}
	}
}

func TestRegenerateCommand(t *testing.T) {
	out := execute(t, "regenerate", "--seed", "4")
	if !strings.HasPrefix(out, "cycle seed 4:") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "no_track") {
		t.Fatalf("expected the far consist to stay idle:\n%s", out)
	}
}

func TestHistoryCommandCSV(t *testing.T) {
	cfg := testConfig(t)
	executeWith(t, cfg, "regenerate", "--seed", "11")
	out := executeWith(t, cfg, "history", "--format", "csv", "--station", "C")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row:\n%s", out)
	}
	if !strings.Contains(lines[1], ",11,manual,") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestScenarioCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"scenario", filepath.Join("..", "qa", "scenarios", "yard_cycle.yaml")})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("scenario: %v\n%s", err, out.String())
	}
	if !strings.HasPrefix(out.String(), "ok   yard_cycle") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
