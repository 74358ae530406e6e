/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package registry

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DefaultManifestName is the hooks manifest looked up at the repo root.
const DefaultManifestName = ".hookrun.yaml"

// manifestSchema validates the manifest document before decoding, so
// schema violations surface with a field path instead of a zero-valued
// struct downstream.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["repos"],
  "additionalProperties": false,
  "properties": {
    "fail_fast": {"type": "boolean"},
    "repos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["repo", "hooks"],
        "additionalProperties": false,
        "properties": {
          "repo": {"type": "string", "minLength": 1},
          "rev": {"type": "string"},
          "hooks": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["id", "entry"],
              "additionalProperties": false,
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "name": {"type": "string"},
                "entry": {"type": "string", "minLength": 1},
                "args": {"type": "array", "items": {"type": "string"}},
                "language": {"enum": ["system", "script", "python", "node", "go"]},
                "language_version": {"type": "string"},
                "additional_dependencies": {"type": "array", "items": {"type": "string"}},
                "files": {"type": "string"},
                "exclude": {"type": "string"},
                "types": {"type": "array", "items": {"type": "string"}},
                "pass_filenames": {"type": "boolean"},
                "always_run": {"type": "boolean"},
                "fixer": {"type": "boolean"},
                "verbose": {"type": "boolean"},
                "stages": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

// rawManifest mirrors the YAML document. Optional booleans decode as
// pointers so unset fields can take non-zero defaults (pass_filenames
// defaults to true).
type rawManifest struct {
	FailFast bool      `yaml:"fail_fast"`
	Repos    []rawRepo `yaml:"repos"`
}

type rawRepo struct {
	Repo  string    `yaml:"repo"`
	Rev   string    `yaml:"rev"`
	Hooks []rawHook `yaml:"hooks"`
}

type rawHook struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Entry          string   `yaml:"entry"`
	Args           []string `yaml:"args"`
	Language       string   `yaml:"language"`
	LangVersion    string   `yaml:"language_version"`
	AdditionalDeps []string `yaml:"additional_dependencies"`
	Files          string   `yaml:"files"`
	Exclude        string   `yaml:"exclude"`
	Types          []string `yaml:"types"`
	PassFilenames  *bool    `yaml:"pass_filenames"`
	AlwaysRun      bool     `yaml:"always_run"`
	Fixer          bool     `yaml:"fixer"`
	Verbose        bool     `yaml:"verbose"`
	Stages         []string `yaml:"stages"`
}

// Load reads, schema-validates, and normalizes the hooks manifest at
// path. All failure modes are *ErrConfigInvalid or *ErrDuplicateHookID.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- manifest path comes from the CLI
	if err != nil {
		return nil, &ErrConfigInvalid{Path: path, Reason: fmt.Sprintf("cannot read manifest: %v", err)}
	}
	return Parse(path, data)
}

// Parse validates and normalizes manifest bytes. Split from Load so
// tests and callers with in-memory documents skip the filesystem.
func Parse(path string, data []byte) (*Registry, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ErrConfigInvalid{Path: path, Reason: fmt.Sprintf("not valid YAML: %v", err)}
	}
	if err := validateSchema(path, doc); err != nil {
		return nil, err
	}

	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ErrConfigInvalid{Path: path, Reason: fmt.Sprintf("decode failed: %v", err)}
	}

	reg := &Registry{FailFast: raw.FailFast}
	for ri, repo := range raw.Repos {
		for hi, rh := range repo.Hooks {
			field := fmt.Sprintf("repos[%d].hooks[%d]", ri, hi)
			hook, err := normalizeHook(path, field, repo, rh)
			if err != nil {
				return nil, err
			}
			reg.Hooks = append(reg.Hooks, hook)
		}
	}

	if err := checkDuplicates(reg.Hooks); err != nil {
		return nil, err
	}
	return reg, nil
}

func validateSchema(path string, doc interface{}) error {
	schemaLoader := gojsonschema.NewStringLoader(manifestSchema)
	docLoader := gojsonschema.NewGoLoader(doc)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return &ErrConfigInvalid{Path: path, Reason: fmt.Sprintf("schema validation failed: %v", err)}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return &ErrConfigInvalid{Path: path, Field: first.Field(), Reason: first.Description()}
	}
	return nil
}

func normalizeHook(path, field string, repo rawRepo, rh rawHook) (Hook, error) {
	hook := Hook{
		ID:              rh.ID,
		Name:            rh.Name,
		Entry:           rh.Entry,
		Args:            rh.Args,
		Language:        rh.Language,
		LanguageVersion: rh.LangVersion,
		AdditionalDeps:  rh.AdditionalDeps,
		Files:           rh.Files,
		Exclude:         rh.Exclude,
		Types:           rh.Types,
		PassFilenames:   true,
		AlwaysRun:       rh.AlwaysRun,
		Fixer:           rh.Fixer,
		Verbose:         rh.Verbose,
		Source:          repo.Repo,
		Rev:             repo.Rev,
	}
	if hook.Language == "" {
		hook.Language = "system"
	}
	if rh.PassFilenames != nil {
		hook.PassFilenames = *rh.PassFilenames
	}

	if len(rh.Stages) == 0 {
		hook.Stages = []Stage{StagePreCommit}
	} else {
		for _, s := range rh.Stages {
			stage, err := ParseStage(s)
			if err != nil {
				return Hook{}, &ErrConfigInvalid{Path: path, Field: field + ".stages", Reason: err.Error()}
			}
			hook.Stages = append(hook.Stages, stage)
		}
	}

	for name, pat := range map[string]string{"files": hook.Files, "exclude": hook.Exclude} {
		if pat == "" {
			continue
		}
		if !doublestar.ValidatePattern(pat) {
			return Hook{}, &ErrConfigInvalid{Path: path, Field: field + "." + name, Reason: fmt.Sprintf("malformed pattern %q", pat)}
		}
	}
	return hook, nil
}

func checkDuplicates(hooks []Hook) error {
	seen := make(map[Stage]map[string]bool)
	for i := range hooks {
		for _, stage := range hooks[i].Stages {
			if seen[stage] == nil {
				seen[stage] = make(map[string]bool)
			}
			if seen[stage][hooks[i].ID] {
				return &ErrDuplicateHookID{ID: hooks[i].ID, Stage: stage}
			}
			seen[stage][hooks[i].ID] = true
		}
	}
	return nil
}
