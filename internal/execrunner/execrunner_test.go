package execrunner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/execrunner"
)

func TestRun_CapturesStdoutAndExitCode(t *testing.T) {
	result, err := execrunner.Run(context.Background(), execrunner.Spec{
		Command: "sh",
		Args:    []string{"-c", "echo hello; exit 0"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code: got %d, want 0", result.ExitCode)
	}
	if result.Stdout != "hello\n" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "hello\n")
	}
}

func TestRun_NonzeroExitIsNotAnError(t *testing.T) {
	result, err := execrunner.Run(context.Background(), execrunner.Spec{
		Command: "sh",
		Args:    []string{"-c", "echo oops 1>&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code: got %d, want 3", result.ExitCode)
	}
	if result.Stderr != "oops\n" {
		t.Errorf("stderr: got %q, want %q", result.Stderr, "oops\n")
	}
}

func TestRun_UnknownExecutable(t *testing.T) {
	_, err := execrunner.Run(context.Background(), execrunner.Spec{
		Command: "definitely-not-a-real-binary-xyz",
	})
	if err == nil {
		t.Fatal("expected error for unknown executable")
	}
}

func TestRun_Timeout(t *testing.T) {
	_, err := execrunner.Run(context.Background(), execrunner.Spec{
		Command: "sleep",
		Args:    []string{"2"},
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRun_EnvExtendsParent(t *testing.T) {
	result, err := execrunner.Run(context.Background(), execrunner.Spec{
		Command: "sh",
		Args:    []string{"-c", "echo $FOO"},
		Env:     map[string]string{"FOO": "bar"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stdout != "bar\n" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "bar\n")
	}
}

func TestNewestOrDiff_PrefersFreshFile(t *testing.T) {
	dir := t.TempDir()
	before := map[string]struct{}{}
	mustTouch(t, filepath.Join(dir, "out.wav"))
	after, err := execrunner.Snapshot(dir, "*.wav")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	got, ok := execrunner.NewestOrDiff(before, after)
	if !ok {
		t.Fatal("expected a match")
	}
	if got != filepath.Join(dir, "out.wav") {
		t.Errorf("got %q, want out.wav", got)
	}
}

func TestNewestOrDiff_FallsBackToMostRecentlyModified(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "a.wav"))
	before, err := execrunner.Snapshot(dir, "*.wav")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	mustTouch(t, filepath.Join(dir, "a.wav")) // overwrite, no new filename

	after, err := execrunner.Snapshot(dir, "*.wav")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	got, ok := execrunner.NewestOrDiff(before, after)
	if !ok {
		t.Fatal("expected a fallback match")
	}
	if got != filepath.Join(dir, "a.wav") {
		t.Errorf("got %q, want a.wav", got)
	}
}

func mustTouch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
