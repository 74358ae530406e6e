package executor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/hookrun/internal/envmgr"
	"github.com/fulmenhq/hookrun/internal/gitctx"
	"github.com/fulmenhq/hookrun/internal/registry"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func systemEnv() *envmgr.Environment {
	return &envmgr.Environment{Language: "system"}
}

func fileSet(paths ...string) *gitctx.FileSet {
	files := make([]gitctx.File, len(paths))
	for i, p := range paths {
		files[i] = gitctx.File{Path: p, Class: gitctx.ClassOf(p)}
	}
	return gitctx.NewFileSet(files)
}

func TestEmptySubsetIsSkippedWithoutSpawning(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "spawned")
	hook := &registry.Hook{
		ID:            "touchy",
		Entry:         "touch",
		Args:          []string{marker},
		PassFilenames: true,
	}
	r := NewRunner(dir, 0)

	out := r.Run(context.Background(), Invocation{Hook: hook, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusSkipped || out.Cause != CauseNoFiles {
		t.Fatalf("outcome = %s/%s, want skipped/no-matching-files", out.Status, out.Cause)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatal("hook was spawned despite empty subset")
	}
}

func TestPassedAndFailedClassification(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	r := NewRunner(dir, 0)

	// Without always_run, an empty subset skips even when filenames
	// are not passed
	pass := &registry.Hook{ID: "ok", Entry: "sh", Args: []string{"-c", "exit 0"}, PassFilenames: false}
	out := r.Run(context.Background(), Invocation{Hook: pass, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusSkipped || out.Cause != CauseNoFiles {
		t.Fatalf("outcome = %s/%s, want skipped/no-matching-files", out.Status, out.Cause)
	}

	always := &registry.Hook{ID: "ok", Entry: "sh", Args: []string{"-c", "echo fine; exit 0"}, PassFilenames: false, AlwaysRun: true}
	out = r.Run(context.Background(), Invocation{Hook: always, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusPassed || out.ExitCode != 0 {
		t.Fatalf("outcome = %s exit=%d, want passed/0", out.Status, out.ExitCode)
	}
	if out.Stdout != "fine\n" {
		t.Errorf("stdout = %q", out.Stdout)
	}

	fail := &registry.Hook{ID: "bad", Entry: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}, PassFilenames: false, AlwaysRun: true}
	out = r.Run(context.Background(), Invocation{Hook: fail, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusFailed || out.ExitCode != 3 {
		t.Fatalf("outcome = %s exit=%d, want failed/3", out.Status, out.ExitCode)
	}
	if out.Stderr != "boom\n" {
		t.Errorf("stderr = %q", out.Stderr)
	}
}

func TestPassFilenamesAppendsMatchedFiles(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	hook := &registry.Hook{ID: "echoer", Entry: "sh", Args: []string{"-c", `echo "$@"`, "argv0"}, PassFilenames: true}
	r := NewRunner(dir, 0)

	out := r.Run(context.Background(), Invocation{Hook: hook, Files: fileSet("a.txt", "b.txt"), Env: systemEnv()})
	if out.Status != StatusPassed {
		t.Fatalf("outcome = %s (%s)", out.Status, out.Stderr)
	}
	if out.Stdout != "a.txt b.txt\n" {
		t.Errorf("stdout = %q, want the matched files as arguments", out.Stdout)
	}
}

func TestModificationOutranksExitCode(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "fixme.txt")
	if err := os.WriteFile(target, []byte("dirty \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, exit := range []string{"0", "1"} {
		if err := os.WriteFile(target, []byte("dirty \n"), 0o644); err != nil {
			t.Fatal(err)
		}
		fixer := &registry.Hook{
			ID:            "fixer",
			Entry:         "sh",
			Args:          []string{"-c", "printf clean > fixme.txt; exit " + exit},
			PassFilenames: true,
			Fixer:         true,
		}
		r := NewRunner(dir, 0)
		out := r.Run(context.Background(), Invocation{Hook: fixer, Files: fileSet("fixme.txt"), Env: systemEnv()})
		if out.Status != StatusModified {
			t.Fatalf("exit %s: outcome = %s, want modified", exit, out.Status)
		}
		if len(out.Touched) != 1 || out.Touched[0] != "fixme.txt" {
			t.Errorf("touched = %v", out.Touched)
		}
	}
}

func TestTimeoutKillsAndClassifiesErrored(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	hook := &registry.Hook{ID: "sleepy", Entry: "sh", Args: []string{"-c", "sleep 5"}, PassFilenames: false, AlwaysRun: true}
	r := NewRunner(dir, 100*time.Millisecond)

	start := time.Now()
	out := r.Run(context.Background(), Invocation{Hook: hook, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusErrored || out.Cause != CauseTimeout {
		t.Fatalf("outcome = %s/%s, want errored/timeout", out.Status, out.Cause)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout was not enforced: took %v", elapsed)
	}
}

func TestCancelledRunIsSkipped(t *testing.T) {
	dir := t.TempDir()
	hook := &registry.Hook{ID: "never", Entry: "true", PassFilenames: false, AlwaysRun: true}
	r := NewRunner(dir, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := r.Run(ctx, Invocation{Hook: hook, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusSkipped || out.Cause != CauseCancelled {
		t.Fatalf("outcome = %s/%s, want skipped/cancelled", out.Status, out.Cause)
	}
}

func TestMissingEntryIsErrored(t *testing.T) {
	dir := t.TempDir()
	hook := &registry.Hook{ID: "ghost", Entry: "hookrun-no-such-binary", PassFilenames: false, AlwaysRun: true}
	r := NewRunner(dir, 0)

	out := r.Run(context.Background(), Invocation{Hook: hook, Files: fileSet(), Env: systemEnv()})
	if out.Status != StatusErrored || out.Cause != CauseSpawn {
		t.Fatalf("outcome = %s/%s, want errored/spawn-failure", out.Status, out.Cause)
	}
}
