/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/hookrun/internal/gitctx"
	"github.com/fulmenhq/hookrun/pkg/exitcode"
)

// newTestRoot builds an isolated command tree so tests never share
// state with the production rootCmd.
func newTestRoot() (*cobra.Command, *bytes.Buffer) {
	root := newRootCommand()
	registerSubcommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, &out
}

func TestVersionCommand(t *testing.T) {
	root, out := newTestRoot()
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "hookrun ")
}

func TestVersionCommandJSON(t *testing.T) {
	root, out := newTestRoot()
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["goVersion"])
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, ".hookrun.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
repos:
  - repo: local
    hooks:
      - id: trim-ws
        entry: trim-ws
        files: "**/*.txt"
        fixer: true
      - id: unit-tests
        entry: make
        args: ["test"]
        always_run: true
        pass_filenames: false
`), 0o644))

	root, out := newTestRoot()
	root.SetArgs([]string{"validate", "--manifest", manifest})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Manifest OK: 2 hook(s)")
	assert.Contains(t, out.String(), "trim-ws")
	assert.Contains(t, out.String(), "fixer")
	assert.Contains(t, out.String(), "always_run")
}

func TestValidateCommandRejectsBadManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, ".hookrun.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
repos:
  - repo: local
    hooks:
      - name: missing the required id
        entry: true
`), 0o644))

	root, _ := newTestRoot()
	root.SetArgs([]string{"validate", "--manifest", manifest})
	err := root.Execute()
	require.Error(t, err)

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, exitcode.ConfigError, ee.code)
}

func TestValidateCommandMissingManifest(t *testing.T) {
	root, _ := newTestRoot()
	root.SetArgs([]string{"validate", "--manifest", filepath.Join(t.TempDir(), "absent.yaml")})
	err := root.Execute()

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, exitcode.ConfigError, ee.code)
}

func TestRunCommandRejectsUnknownStage(t *testing.T) {
	root, _ := newTestRoot()
	root.SetArgs([]string{"run", "--stage", "pre-lunch"})
	err := root.Execute()

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, exitcode.ConfigError, ee.code)
}

func TestRunCommandRejectsUnknownOutput(t *testing.T) {
	root, _ := newTestRoot()
	root.SetArgs([]string{"run", "--output", "xml"})
	err := root.Execute()

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, exitcode.ConfigError, ee.code)
}

func TestScopeFromFlags(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want gitctx.Scope
	}{
		{"default is staged", nil, gitctx.Scope{Kind: gitctx.ScopeStaged}},
		{"all files", []string{"--all-files"}, gitctx.Scope{Kind: gitctx.ScopeAllTracked}},
		{"ref", []string{"--ref", "main"}, gitctx.Scope{Kind: gitctx.ScopeChangedSince, Ref: "main"}},
		{"explicit files win", []string{"--all-files", "--files", "a.go,b.go"},
			gitctx.Scope{Kind: gitctx.ScopeExplicit, Files: []string{"a.go", "b.go"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := newRunCommand()
			require.NoError(t, cmd.ParseFlags(tc.args))
			assert.Equal(t, tc.want, scopeFromFlags(cmd))
		})
	}
}

func TestExitErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := configFailure(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", err.Error())
}
