package environment_test

import (
	"testing"

	"github.com/nubelab/kumo/common/environment"
)

func TestStringOr(t *testing.T) {
	t.Setenv("KUMO_TEST_STR", "value")
	if got := environment.StringOr("KUMO_TEST_STR", "fallback"); got != "value" {
		t.Errorf("got %q, want %q", got, "value")
	}
	if got := environment.StringOr("KUMO_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("got %q, want %q", got, "fallback")
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("KUMO_TEST_REQ", "set")
	if got, err := environment.RequiredString("KUMO_TEST_REQ"); err != nil || got != "set" {
		t.Errorf("got (%q, %v), want (%q, nil)", got, err, "set")
	}
	if _, err := environment.RequiredString("KUMO_TEST_REQ_MISSING"); err == nil {
		t.Error("expected error for missing required variable")
	}
}

func TestStringSliceOr(t *testing.T) {
	t.Setenv("KUMO_TEST_SLICE", "a, b ,,c")
	got := environment.StringSliceOr("KUMO_TEST_SLICE", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
