// Package search parses raw operator-supplied key=value lists into structured
// predicate sets used to query the server inventory.
package search

import (
	"fmt"
	"sort"
	"strings"
)

// PredicateSet is the structured filter built from raw search options and
// metadata strings. Keys within each mapping are unique; a repeated key in
// the raw input is a syntax error, not last-write-wins.
type PredicateSet struct {
	// SearchOptions filters server attributes (status, sort key, ...).
	SearchOptions map[string]string
	// Metadata filters instance tags.
	Metadata map[string]string
	// Negate inverts the whole metadata predicate when the raw metadata
	// string was prefixed with '!'. Negation is all-or-nothing, never per-key.
	Negate bool
}

// SyntaxError reports a malformed predicate token or a repeated key.
type SyntaxError struct {
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid search predicate %q: %s", e.Token, e.Reason)
}

// Parse builds a PredicateSet from the raw search-options and metadata
// strings captured by a command grammar. Either argument may be empty.
//
// Tokens are comma-separated key=value pairs. Empty tokens are skipped so
// trailing commas are harmless. Values are kept verbatim: no type coercion
// happens here, and any range or sort semantics belong to the inventory.
func Parse(rawSearchOpts, rawMetadata string) (*PredicateSet, error) {
	set := &PredicateSet{}

	if strings.HasPrefix(rawMetadata, "!") {
		set.Negate = true
		rawMetadata = strings.TrimPrefix(rawMetadata, "!")
	}

	opts, err := parsePairs(rawSearchOpts)
	if err != nil {
		return nil, err
	}
	meta, err := parsePairs(rawMetadata)
	if err != nil {
		return nil, err
	}

	set.SearchOptions = opts
	set.Metadata = meta
	return set, nil
}

// parsePairs splits a comma-separated key=value list into a map, rejecting
// tokens that do not contain exactly one '=' and keys that repeat.
func parsePairs(raw string) (map[string]string, error) {
	pairs := make(map[string]string)
	if raw == "" {
		return pairs, nil
	}

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, value, found := strings.Cut(token, "=")
		if !found {
			return nil, &SyntaxError{Token: token, Reason: "expected key=value"}
		}
		if key == "" {
			return nil, &SyntaxError{Token: token, Reason: "empty key"}
		}
		if strings.Contains(value, "=") {
			return nil, &SyntaxError{Token: token, Reason: "more than one '='"}
		}
		if _, exists := pairs[key]; exists {
			return nil, &SyntaxError{Token: token, Reason: fmt.Sprintf("key %q repeated", key)}
		}
		pairs[key] = value
	}
	return pairs, nil
}

// String renders the predicate set as the operator typed it, with keys in
// sorted order. Used when echoing the effective filter back to the chat room.
func (p *PredicateSet) String() string {
	parts := make([]string, 0, len(p.SearchOptions)+len(p.Metadata))
	parts = append(parts, sortedPairs(p.SearchOptions)...)
	meta := sortedPairs(p.Metadata)
	if p.Negate && len(meta) > 0 {
		meta[0] = "!" + meta[0]
	}
	parts = append(parts, meta...)
	return strings.Join(parts, ", ")
}

// Empty reports whether the set carries no filters at all.
func (p *PredicateSet) Empty() bool {
	return len(p.SearchOptions) == 0 && len(p.Metadata) == 0
}

func sortedPairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+m[k])
	}
	return pairs
}
