package userdata_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nubelab/kumo/internal/kumo/userdata"
)

func TestLoad_InlineTemplate(t *testing.T) {
	tmpl, err := userdata.Load("#cloud-boot\nname={{.Name}} branch={{.Branch}}")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out, err := tmpl.Render(userdata.Context{Name: "web1", Branch: "branch-x"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "name=web1 branch=branch-x") {
		t.Errorf("got %q", out)
	}
}

func TestLoad_FileTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdata.tmpl")
	if err := os.WriteFile(path, []byte("boot {{.Name}} alt={{.AltBranch}}"), 0o600); err != nil {
		t.Fatalf("write template file: %v", err)
	}

	tmpl, err := userdata.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := tmpl.Render(userdata.Context{Name: "web1", AltBranch: "main"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "boot web1 alt=main" {
		t.Errorf("got %q", out)
	}
}

func TestRender_MetadataRoundTrip(t *testing.T) {
	meta := map[string]string{
		"owner":    "amy",
		"owner_id": "@amy:example.com",
		"init":     "pending",
		"branch":   "branch-x",
		"env":      "staging",
	}
	encoded, err := userdata.EncodeMetadata(meta)
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}

	tmpl, err := userdata.Load("META={{.Meta}}")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := tmpl.Render(userdata.Context{Name: "web1", Meta: encoded})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	embedded := strings.TrimPrefix(out, "META=")
	var got map[string]string
	if err := json.Unmarshal([]byte(embedded), &got); err != nil {
		t.Fatalf("re-parse embedded metadata: %v", err)
	}
	if !reflect.DeepEqual(got, meta) {
		t.Errorf("round trip: got %v, want %v", got, meta)
	}
}

func TestRender_MissingVariableFails(t *testing.T) {
	tmpl, err := userdata.Load("{{.Data.missing}}")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := tmpl.Render(userdata.Context{Data: map[string]string{}}); err == nil {
		t.Error("expected error for missing variable")
	}
}

func TestValidateMetadata(t *testing.T) {
	valid := map[string]string{
		"owner":    "amy",
		"owner_id": "@amy:example.com",
		"init":     "pending",
		"branch":   "",
	}
	encoded, err := userdata.EncodeMetadata(valid)
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}
	if err := userdata.ValidateMetadata(encoded); err != nil {
		t.Errorf("valid metadata rejected: %v", err)
	}

	cases := []struct {
		name    string
		encoded string
	}{
		{"not json", "{"},
		{"missing owner", `{"owner_id":"u1","init":"pending"}`},
		{"bad init state", `{"owner":"amy","owner_id":"u1","init":"later"}`},
		{"non-string value", `{"owner":"amy","owner_id":"u1","init":"pending","count":3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := userdata.ValidateMetadata(tc.encoded); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
