// Package exitcode provides standardized exit codes for hookrun
package exitcode

// Exit codes for the hookrun CLI. Automated callers (git hooks, CI)
// branch on these, so the mapping is part of the public contract:
// 0 means every hook passed or was skipped, 1 means at least one hook
// failed or errored, 2 means the run never got off the ground.
const (
	Success      = 0
	HookFailure  = 1
	GeneralError = 1
	ConfigError  = 2
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case HookFailure:
		return "Hook failure"
	case ConfigError:
		return "Configuration or setup error"
	default:
		return "Unknown error"
	}
}
