package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestMatcherLayersHookrunignoreOverGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "dist/\n")
	writeFile(t, filepath.Join(dir, ".hookrunignore"), "generated/**\n# comment\n\n*.pb.go\n")

	m, err := NewMatcher(dir)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	cases := []struct {
		path    string
		ignored bool
	}{
		{"dist/app.js", true},
		{"generated/api.go", true},
		{"service.pb.go", true},
		{"node_modules/left-pad/index.js", true},
		{".git/config", true},
		{"main.go", false},
	}
	for _, tc := range cases {
		if got := m.IsIgnored(tc.path); got != tc.ignored {
			t.Errorf("IsIgnored(%q) = %v, want %v", tc.path, got, tc.ignored)
		}
	}
}

func TestIsIgnoredDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hookrunignore"), "vendor/\n")

	m, err := NewMatcher(dir)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	if !m.IsIgnoredDir("vendor") {
		t.Error("expected vendor to be ignored as a directory")
	}
	if m.IsIgnoredDir("internal") {
		t.Error("did not expect internal to be ignored")
	}
}

func TestReadIgnoreFileRejectsUnknownNames(t *testing.T) {
	if _, err := readIgnoreFile("/etc/passwd"); err == nil {
		t.Fatal("expected error for disallowed path")
	}
}
