package gitctx

import (
	"path/filepath"
	"sort"
	"strings"
)

// FileClass is the detected content class of a file, derived from its
// extension (and executable bit for scripts without one).
type FileClass string

const (
	ClassGo         FileClass = "go"
	ClassPython     FileClass = "python"
	ClassJavaScript FileClass = "javascript"
	ClassTypeScript FileClass = "typescript"
	ClassRust       FileClass = "rust"
	ClassShell      FileClass = "shell"
	ClassYAML       FileClass = "yaml"
	ClassJSON       FileClass = "json"
	ClassTOML       FileClass = "toml"
	ClassMarkdown   FileClass = "markdown"
	ClassText       FileClass = "text"
	ClassBinary     FileClass = "binary"
)

var extensionClasses = map[string]FileClass{
	".go":       ClassGo,
	".py":       ClassPython,
	".pyi":      ClassPython,
	".js":       ClassJavaScript,
	".jsx":      ClassJavaScript,
	".mjs":      ClassJavaScript,
	".ts":       ClassTypeScript,
	".tsx":      ClassTypeScript,
	".rs":       ClassRust,
	".sh":       ClassShell,
	".bash":     ClassShell,
	".yml":      ClassYAML,
	".yaml":     ClassYAML,
	".json":     ClassJSON,
	".toml":     ClassTOML,
	".md":       ClassMarkdown,
	".markdown": ClassMarkdown,
	".txt":      ClassText,
}

var binaryExtensions = map[string]bool{
	".bin": true, ".exe": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".wasm": true,
}

// ClassOf detects the content class for a path by extension.
func ClassOf(path string) FileClass {
	ext := strings.ToLower(filepath.Ext(path))
	if class, ok := extensionClasses[ext]; ok {
		return class
	}
	if binaryExtensions[ext] {
		return ClassBinary
	}
	return ClassText
}

// File is one candidate path with its detected metadata.
type File struct {
	Path       string    `json:"path"` // slash-separated, relative to the repo root
	Class      FileClass `json:"class"`
	Executable bool      `json:"executable,omitempty"`
	Size       int64     `json:"size"`
}

// Tags returns every type tag the file satisfies. The specific class is
// always present; "text"/"binary" coarse tags and "executable" stack on
// top so a hook can filter on either granularity.
func (f File) Tags() []string {
	tags := []string{string(f.Class)}
	if f.Class != ClassBinary && f.Class != ClassText {
		tags = append(tags, string(ClassText))
	}
	if f.Executable {
		tags = append(tags, "executable")
	}
	return tags
}

// HasTag reports whether the file satisfies the given type tag.
func (f File) HasTag(tag string) bool {
	for _, t := range f.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// FileSet is the ordered set of candidate files for a run. It is produced
// once per run and never mutated; restricted views are new values.
type FileSet struct {
	Files []File `json:"files"`
}

// NewFileSet builds a set from files, sorted lexicographically by path
// for reproducible matching and reporting.
func NewFileSet(files []File) *FileSet {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	return &FileSet{Files: sorted}
}

// Len returns the number of files in the set.
func (fs *FileSet) Len() int {
	return len(fs.Files)
}

// Paths returns the ordered slice of paths.
func (fs *FileSet) Paths() []string {
	paths := make([]string, len(fs.Files))
	for i, f := range fs.Files {
		paths[i] = f.Path
	}
	return paths
}

// Restrict returns the subset of the set whose paths appear in keep,
// preserving order.
func (fs *FileSet) Restrict(keep []string) *FileSet {
	allowed := make(map[string]bool, len(keep))
	for _, p := range keep {
		allowed[filepath.ToSlash(p)] = true
	}
	var files []File
	for _, f := range fs.Files {
		if allowed[f.Path] {
			files = append(files, f)
		}
	}
	return &FileSet{Files: files}
}
