package registry

import (
	"errors"
	"testing"

	"github.com/fulmenhq/hookrun/internal/gitctx"
)

const sampleManifest = `
fail_fast: false
repos:
  - repo: local
    hooks:
      - id: trailing-whitespace
        name: Trim trailing whitespace
        entry: trim-ws
        language: system
        files: "**/*.txt"
        fixer: true
      - id: smoke
        entry: make
        args: ["smoke"]
        always_run: true
        pass_filenames: false
  - repo: https://example.com/hooks.git
    rev: v1.2.0
    hooks:
      - id: pyflakes
        entry: pyflakes
        language: python
        types: [python]
        stages: [pre-commit, pre-push]
`

func mustParse(t *testing.T, doc string) *Registry {
	t.Helper()
	reg, err := Parse(".hookrun.yaml", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return reg
}

func TestParseDefaults(t *testing.T) {
	reg := mustParse(t, sampleManifest)
	if len(reg.Hooks) != 3 {
		t.Fatalf("expected 3 hooks, got %d", len(reg.Hooks))
	}

	ws := reg.HookByID("trailing-whitespace")
	if ws == nil {
		t.Fatal("missing trailing-whitespace hook")
	}
	if !ws.PassFilenames {
		t.Error("pass_filenames should default to true")
	}
	if ws.Language != "system" {
		t.Errorf("language = %q, want system", ws.Language)
	}
	if len(ws.Stages) != 1 || ws.Stages[0] != StagePreCommit {
		t.Errorf("stages = %v, want [pre-commit]", ws.Stages)
	}

	smoke := reg.HookByID("smoke")
	if smoke.PassFilenames {
		t.Error("explicit pass_filenames: false was not honored")
	}

	py := reg.HookByID("pyflakes")
	if py.Source != "https://example.com/hooks.git" || py.Rev != "v1.2.0" {
		t.Errorf("repo provenance not threaded: %+v", py)
	}
	if !py.RunsIn(StagePrePush) {
		t.Error("pyflakes should run in pre-push")
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing repos", `fail_fast: true`},
		{"hook without entry", "repos:\n  - repo: local\n    hooks:\n      - id: x\n"},
		{"unknown language", "repos:\n  - repo: local\n    hooks:\n      - id: x\n        entry: x\n        language: ruby\n"},
		{"unknown field", "repos:\n  - repo: local\n    hooks:\n      - id: x\n        entry: x\n        bogus: true\n"},
		{"not yaml", `{{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(".hookrun.yaml", []byte(tc.doc))
			var cfgErr *ErrConfigInvalid
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestParseRejectsUnknownStage(t *testing.T) {
	doc := "repos:\n  - repo: local\n    hooks:\n      - id: x\n        entry: x\n        stages: [pre-lunch]\n"
	_, err := Parse(".hookrun.yaml", []byte(doc))
	var cfgErr *ErrConfigInvalid
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
	if cfgErr.Field != "repos[0].hooks[0].stages" {
		t.Errorf("field = %q, want stage field reference", cfgErr.Field)
	}
}

func TestParseRejectsMalformedPattern(t *testing.T) {
	doc := "repos:\n  - repo: local\n    hooks:\n      - id: x\n        entry: x\n        files: \"[oops\"\n"
	_, err := Parse(".hookrun.yaml", []byte(doc))
	var cfgErr *ErrConfigInvalid
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestParseRejectsDuplicateIDsInStage(t *testing.T) {
	doc := `
repos:
  - repo: local
    hooks:
      - id: dup
        entry: a
  - repo: other
    hooks:
      - id: dup
        entry: b
`
	_, err := Parse(".hookrun.yaml", []byte(doc))
	var dupErr *ErrDuplicateHookID
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected ErrDuplicateHookID, got %v", err)
	}
	if dupErr.ID != "dup" || dupErr.Stage != StagePreCommit {
		t.Errorf("unexpected duplicate report: %+v", dupErr)
	}
}

func TestSameIDInDifferentStagesIsAllowed(t *testing.T) {
	doc := `
repos:
  - repo: local
    hooks:
      - id: dup
        entry: a
        stages: [pre-commit]
      - id: dup
        entry: b
        stages: [pre-push]
`
	if _, err := Parse(".hookrun.yaml", []byte(doc)); err != nil {
		t.Fatalf("expected stage-scoped ids to be legal, got %v", err)
	}
}

func TestHooksForMatchingScenario(t *testing.T) {
	// Hook A matches *.txt with pass_filenames, hook B always runs.
	doc := `
repos:
  - repo: local
    hooks:
      - id: a
        entry: check-txt
        files: "**/*.txt"
      - id: b
        entry: full-scan
        always_run: true
        pass_filenames: false
`
	reg := mustParse(t, doc)
	fs := gitctx.NewFileSet([]gitctx.File{
		{Path: "readme.txt", Class: gitctx.ClassText},
		{Path: "main.bin", Class: gitctx.ClassBinary},
	})

	matches := reg.HooksFor(StagePreCommit, fs)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Hook.ID != "a" || matches[1].Hook.ID != "b" {
		t.Fatalf("declaration order not preserved: %s, %s", matches[0].Hook.ID, matches[1].Hook.ID)
	}
	aPaths := matches[0].Files.Paths()
	if len(aPaths) != 1 || aPaths[0] != "readme.txt" {
		t.Errorf("hook a subset = %v, want [readme.txt]", aPaths)
	}
	if matches[1].Files.Len() != 0 {
		t.Errorf("always_run hook should carry an empty subset, got %v", matches[1].Files.Paths())
	}
}

func TestFileMatchesTypesAndExclude(t *testing.T) {
	hook := &Hook{Types: []string{"python"}, Exclude: "vendor/**"}
	if !FileMatches(hook, gitctx.File{Path: "app.py", Class: gitctx.ClassPython}) {
		t.Error("expected python file to match")
	}
	if FileMatches(hook, gitctx.File{Path: "main.go", Class: gitctx.ClassGo}) {
		t.Error("go file must not match python types filter")
	}
	if FileMatches(hook, gitctx.File{Path: "vendor/app.py", Class: gitctx.ClassPython}) {
		t.Error("excluded path must not match")
	}
}

func TestTypesOverlap(t *testing.T) {
	py := &Hook{Types: []string{"python"}}
	gofmt := &Hook{Types: []string{"go"}}
	anything := &Hook{}
	if TypesOverlap(py, gofmt) {
		t.Error("python and go types should not overlap")
	}
	if !TypesOverlap(py, anything) {
		t.Error("an unfiltered hook overlaps everything")
	}
	if !TypesOverlap(py, &Hook{Types: []string{"text", "python"}}) {
		t.Error("shared tag should overlap")
	}
}
