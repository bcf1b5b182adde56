// Package grammar provides the command grammar table and matcher for Kumo.
//
// Each operator-facing command (create, delete, list) is one Grammar: a set
// of trigger keywords plus a regular expression with named capture slots.
// Grammars are data, matched through a single generic matcher, so they can be
// tested independently of handler logic.
package grammar

import (
	"regexp"
	"strings"
)

// Kind identifies which command grammar matched.
type Kind string

const (
	KindCreate Kind = "create"
	KindDelete Kind = "delete"
	KindList   Kind = "list"
)

// Slot names shared between grammars and handlers.
const (
	SlotRecreate   = "recreate"
	SlotName       = "name"
	SlotBranch     = "branch"
	SlotMetadata   = "metadata"
	SlotImage      = "image"
	SlotAltBranch  = "altbranch"
	SlotSearchOpts = "searchopts"
	SlotNames      = "names"
)

// Command is one parsed operator command. A slot that did not match is absent
// from the field map; Get distinguishes absence from an empty capture.
type Command struct {
	Kind    Kind
	RawText string

	fields map[string]string
}

// Get returns the captured value for slot and whether the slot matched.
func (c *Command) Get(slot string) (string, bool) {
	v, ok := c.fields[slot]
	return v, ok
}

// GetOr returns the captured value for slot, or defaultValue when absent.
func (c *Command) GetOr(slot, defaultValue string) string {
	if v, ok := c.fields[slot]; ok {
		return v
	}
	return defaultValue
}

// Has reports whether slot matched.
func (c *Command) Has(slot string) bool {
	_, ok := c.fields[slot]
	return ok
}

// Grammar is one trigger pattern: a command kind, the keywords that can start
// it, and the full pattern with named capture slots.
type Grammar struct {
	Kind     Kind
	Triggers []string
	Pattern  *regexp.Regexp
}

// grammars is the registered grammar table in priority order. The first
// grammar whose trigger keyword starts the text and whose full pattern
// matches wins; ties on shared keywords are broken by this ordering.
var grammars = []Grammar{
	{
		Kind:     KindCreate,
		Triggers: []string{"create", "recreate", "launch", "start"},
		Pattern: regexp.MustCompile(
			`^(?:(?P<recreate>recreate)|create|launch|start)` +
				`\s+(?P<name>[-\w]+)` +
				`(?:\s+on\s+(?P<branch>[-\w]+(?::[-\w]+)?))?` +
				`(?:\s+meta(?:data)?\s+(?P<metadata>[-\w=,.@:]+))?` +
				`(?:\s+from\s+(?P<image>[-:./\w]+))?` +
				`(?:\s+alt\s+(?P<altbranch>[-\w]+(?::[-\w]+)?))?` +
				`\s*$`),
	},
	{
		// The names slot deliberately accepts '=' so that mixed input such
		// as "delete web1 meta owner=amy" still matches and the handler can
		// reply with a usage error instead of the message being dropped.
		Kind:     KindDelete,
		Triggers: []string{"delete", "drop", "terminate"},
		Pattern: regexp.MustCompile(
			`^(?:delete|drop|terminate)` +
				`(?:\s+search_opts\s+(?P<searchopts>[-\w=,.:]+))?` +
				`(?:\s+meta(?:data)?\s+(?P<metadata>!?[-\w=,.@:]+))?` +
				`(?:\s+(?P<names>[-\w][-\w=,\s]*?))?` +
				`\s*$`),
	},
	{
		Kind:     KindList,
		Triggers: []string{"list"},
		Pattern: regexp.MustCompile(
			`^list` +
				`(?:\s+search_opts\s+(?P<searchopts>[-\w=,.:]+))?` +
				`(?:\s+meta(?:data)?\s+(?P<metadata>!?[-\w=,.@:]+))?` +
				`\s*$`),
	},
}

// Match tries each registered grammar in priority order and returns the
// parsed command for the first full match, or nil when the text matches no
// grammar. A nil return is not an error: the host simply ignores the message.
func Match(text string) *Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	first := text
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		first = text[:i]
	}

	for _, g := range grammars {
		if !hasTrigger(g.Triggers, first) {
			continue
		}
		m := g.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		cmd := &Command{Kind: g.Kind, RawText: text, fields: make(map[string]string)}
		for i, slot := range g.Pattern.SubexpNames() {
			if slot == "" || m[i] == "" {
				continue
			}
			cmd.fields[slot] = m[i]
		}
		return cmd
	}
	return nil
}

func hasTrigger(triggers []string, word string) bool {
	for _, t := range triggers {
		if t == word {
			return true
		}
	}
	return false
}

// numericNamePattern matches names that are digits only. Such names are not
// valid hostnames and are rejected by the create handler before any remote
// call is made.
var numericNamePattern = regexp.MustCompile(`^[0-9]+$`)

// IsNumericName reports whether name consists entirely of digits.
func IsNumericName(name string) bool {
	return numericNamePattern.MatchString(name)
}

// SplitNames splits a raw names capture ("web1 web2,web3") into individual
// server names, dropping empty tokens.
func SplitNames(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			names = append(names, f)
		}
	}
	return names
}
