package redact_test

import (
	"strings"
	"testing"

	"github.com/nubelab/kumo/common/redact"
)

func TestString_ReplacesSensitiveValues(t *testing.T) {
	line := "rendered userdata with token abcd1234 for web1"
	got := redact.String(line, "abcd1234")
	if strings.Contains(got, "abcd1234") {
		t.Errorf("sensitive value leaked: %q", got)
	}
	if !strings.Contains(got, "[REDACTED]") {
		t.Errorf("placeholder missing: %q", got)
	}
}

func TestString_SkipsShortValues(t *testing.T) {
	line := "on a branch"
	if got := redact.String(line, "on"); got != line {
		t.Errorf("short value should not be redacted: got %q", got)
	}
}
