package inventory

import (
	"sort"
	"strings"
)

// Search option keys interpreted by the inventory itself rather than passed
// through as attribute filters.
const (
	// OptionStatus filters on the instance lifecycle state.
	OptionStatus = "status"
	// OptionSort orders the result set: "name" or "created", with an
	// optional ":desc" suffix.
	OptionSort = "sort"
)

// MatchQuery reports whether ref satisfies q. Name is exact-match, status is
// compared case-insensitively, and metadata pairs must all be present with
// equal values (or all absent/unequal when q.Negate is set).
func MatchQuery(ref *Reference, q Query) bool {
	if q.Name != "" && ref.Name != q.Name {
		return false
	}
	if want, ok := q.SearchOptions[OptionStatus]; ok {
		if !strings.EqualFold(ref.Status, want) {
			return false
		}
	}
	return matchMetadata(ref, q.Metadata, q.Negate)
}

// matchMetadata reports whether ref's tags satisfy the metadata predicate.
// The predicate matches when every pair is present and equal; negation
// inverts the whole predicate, not individual keys.
func matchMetadata(ref *Reference, meta map[string]string, negate bool) bool {
	if len(meta) == 0 {
		return true
	}
	all := true
	for k, v := range meta {
		if ref.Metadata[k] != v {
			all = false
			break
		}
	}
	if negate {
		return !all
	}
	return all
}

// Filter returns the references in refs that satisfy q, in input order.
func Filter(refs []*Reference, q Query) []*Reference {
	var out []*Reference
	for _, ref := range refs {
		if MatchQuery(ref, q) {
			out = append(out, ref)
		}
	}
	return out
}

// SortReferences orders refs in place according to the query's sort option.
// Supported keys are "name" (default) and "created", each optionally
// suffixed with ":desc". Unknown keys fall back to name order so the operator
// always sees a deterministic listing.
func SortReferences(refs []*Reference, sortOption string) {
	key, _, _ := strings.Cut(sortOption, ":")
	desc := strings.HasSuffix(sortOption, ":desc")

	var less func(a, b *Reference) bool
	switch key {
	case "created":
		less = func(a, b *Reference) bool { return a.Created.Before(b.Created) }
	default:
		less = func(a, b *Reference) bool { return a.Name < b.Name }
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if desc {
			return less(refs[j], refs[i])
		}
		return less(refs[i], refs[j])
	})
}
