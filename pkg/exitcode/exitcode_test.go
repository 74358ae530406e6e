package exitcode

import "testing"

func TestString(t *testing.T) {
	if String(Success) != "Success" {
		t.Errorf("unexpected description for Success: %s", String(Success))
	}
	if String(HookFailure) != "Hook failure" {
		t.Errorf("unexpected description for HookFailure: %s", String(HookFailure))
	}
	if String(ConfigError) != "Configuration or setup error" {
		t.Errorf("unexpected description for ConfigError: %s", String(ConfigError))
	}
	if String(42) != "Unknown error" {
		t.Errorf("unexpected description for unknown code: %s", String(42))
	}
}
