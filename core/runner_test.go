package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	r := NewShellRunner()

	result := r.Run("echo hello")
	if result.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d (stderr %q)", result.ExitCode, result.Stderr)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("expected stdout hello, got %q", result.Stdout)
	}

	result = r.Run("echo oops >&2; exit 3")
	if result.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Errorf("expected stderr oops, got %q", result.Stderr)
	}
	if result.ElapsedSeconds < 0 {
		t.Error("elapsed time must be non-negative")
	}
}

func TestRunnerEnv(t *testing.T) {
	r := NewShellRunner()
	r.SetEnv("IRIS_TEST_VALUE", "42")

	result := r.Run("echo $IRIS_TEST_VALUE")
	if strings.TrimSpace(result.Stdout) != "42" {
		t.Errorf("expected env to apply, got %q", result.Stdout)
	}

	entries := r.Env()
	if len(entries) != 1 || entries[0] != "IRIS_TEST_VALUE=42" {
		t.Errorf("unexpected env entries: %v", entries)
	}

	r.ClearEnv()
	if len(r.Env()) != 0 {
		t.Error("ClearEnv must drop entries")
	}
}

func TestRunnerWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker"), []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewShellRunner()
	r.SetWorkingDir(dir)

	result := r.Run("ls")
	if !strings.Contains(result.Stdout, "marker") {
		t.Errorf("expected marker in listing, got %q", result.Stdout)
	}
}

func TestRunParallelPreservesOrder(t *testing.T) {
	r := NewShellRunner()

	var commands []string
	for i := 0; i < 8; i++ {
		commands = append(commands, fmt.Sprintf("echo %d", i))
	}

	results := r.RunParallel(commands, 3)
	if len(results) != len(commands) {
		t.Fatalf("expected %d results, got %d", len(commands), len(results))
	}
	for i, result := range results {
		if strings.TrimSpace(result.Stdout) != fmt.Sprintf("%d", i) {
			t.Errorf("result %d out of order: %q", i, result.Stdout)
		}
		if result.ExitCode != 0 {
			t.Errorf("result %d failed: %d", i, result.ExitCode)
		}
	}
}

func TestRunParallelZeroFanOut(t *testing.T) {
	r := NewShellRunner()
	results := r.RunParallel([]string{"true", "true"}, 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if result.ExitCode != 0 {
			t.Errorf("unexpected failure: %+v", result)
		}
	}
}

func TestRunParallelEmpty(t *testing.T) {
	r := NewShellRunner()
	if results := r.RunParallel(nil, 4); results != nil {
		t.Errorf("expected nil results for no commands, got %v", results)
	}
}

func TestCancelFailsPendingCommands(t *testing.T) {
	r := NewShellRunner()
	r.Cancel()

	result := r.Run("echo never")
	if result.ExitCode == 0 {
		t.Error("commands after Cancel must not succeed")
	}
	if !r.Cancelled() {
		t.Error("Cancelled must report true after Cancel")
	}
}
