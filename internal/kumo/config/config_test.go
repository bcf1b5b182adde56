package config_test

import (
	"strings"
	"testing"

	"github.com/nubelab/kumo/internal/kumo/config"
)

const validYAML = `
domain: example.com
create_server_defaults:
  image_name: ubuntu/noble
  flavor_name: m1.big
  network: kumo
  security_groups: [default]
  userdata: "#cloud-boot {{.Name}}"
  key_name: ops
  default_branch: main
default_search_options: "status=running"
default_search_metadata: "owner_id={{.sender}}"
max_servers: 20
`

func TestParse_Valid(t *testing.T) {
	cfg, err := config.Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Domain != "example.com" {
		t.Errorf("Domain: got %q", cfg.Domain)
	}
	if cfg.CreateServerDefaults.ImageName != "ubuntu/noble" {
		t.Errorf("ImageName: got %q", cfg.CreateServerDefaults.ImageName)
	}
	if cfg.CreateServerDefaults.DefaultBranch != "main" {
		t.Errorf("DefaultBranch: got %q", cfg.CreateServerDefaults.DefaultBranch)
	}
	if cfg.DefaultSearchMetadata != "owner_id={{.sender}}" {
		t.Errorf("DefaultSearchMetadata: got %q", cfg.DefaultSearchMetadata)
	}
	if cfg.MaxServers != 20 {
		t.Errorf("MaxServers: got %d", cfg.MaxServers)
	}
	if len(cfg.CreateServerDefaults.SecurityGroups) != 1 {
		t.Errorf("SecurityGroups: got %v", cfg.CreateServerDefaults.SecurityGroups)
	}
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	doc := validYAML + "\nextra_knob: true\n"
	if _, err := config.Parse([]byte(doc)); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		edit func(string) string
	}{
		{"missing domain", func(s string) string {
			return strings.Replace(s, "domain: example.com", "domain: \"\"", 1)
		}},
		{"missing image", func(s string) string {
			return strings.Replace(s, "image_name: ubuntu/noble", "image_name: \"\"", 1)
		}},
		{"negative max_servers", func(s string) string {
			return strings.Replace(s, "max_servers: 20", "max_servers: -1", 1)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.Parse([]byte(tc.edit(validYAML))); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
