// Package buildinfo carries the version identity stamped into the
// binary at build time.
package buildinfo

import "runtime/debug"

// Set via -ldflags at release build time; the defaults identify a
// from-source build.
var (
	BinaryVersion = "dev"
	Commit        = ""
	BuildDate     = ""
)

// ModuleVersion returns the module version embedded by the Go toolchain
// (when available). Useful for go-install'd binaries that were never
// built with ldflags.
func ModuleVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return ""
}

// Resolve returns the best available version string.
func Resolve() string {
	if BinaryVersion != "dev" && BinaryVersion != "" {
		return BinaryVersion
	}
	if mv := ModuleVersion(); mv != "" && mv != "(devel)" {
		return mv
	}
	return BinaryVersion
}
