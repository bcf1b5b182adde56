// Package userdata renders the provisioning payload handed to a new server
// at boot. The template comes from configuration, either inline or as a path
// to a file, and is parsed once at startup.
package userdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"
)

// Context carries the per-request variables interpolated into the userdata
// template. It is built fresh for every create command and never persisted;
// the rendered payload is the only durable record.
type Context struct {
	// Name is the server name.
	Name string
	// Branch is the operator-supplied branch, empty when none was given.
	Branch string
	// AltBranch is the secondary branch override, already defaulted from
	// configuration when the operator gave none.
	AltBranch string
	// Meta is the JSON-encoded metadata mapping.
	Meta string
	// KeyName is the configured SSH key pair name.
	KeyName string
	// SecurityGroups are the configured security group names.
	SecurityGroups []string
	// Data is the raw chat message context (sender, room, event ID).
	Data map[string]string
}

// Template is a parsed userdata template.
type Template struct {
	tmpl *template.Template
}

// Load resolves the configured userdata source: when source names an existing
// file its contents are used, otherwise source itself is the template text.
// The template fails loudly on a missing variable instead of inserting
// "<no value>".
func Load(source string) (*Template, error) {
	text := source
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		raw, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("userdata template %q: %w", source, err)
		}
		text = string(raw)
	}

	tmpl, err := template.New("userdata").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("userdata template: parse: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// Render produces the final payload for one provisioning context.
func (t *Template) Render(ctx Context) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("userdata template: render: %w", err)
	}
	return buf.String(), nil
}

// EncodeMetadata serializes the metadata mapping as the JSON document
// embedded in the rendered payload. Keys come out in sorted order, so the
// encoding is deterministic.
func EncodeMetadata(meta map[string]string) (string, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}
