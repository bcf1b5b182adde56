package inventory_test

import (
	"testing"
	"time"

	"github.com/nubelab/kumo/internal/kumo/inventory"
)

func ref(name, status string, meta map[string]string) *inventory.Reference {
	return &inventory.Reference{ID: "id-" + name, Name: name, Status: status, Metadata: meta}
}

func TestMatchQuery_Name(t *testing.T) {
	r := ref("web1", "running", nil)

	if !inventory.MatchQuery(r, inventory.Query{Name: "web1"}) {
		t.Error("exact name should match")
	}
	if inventory.MatchQuery(r, inventory.Query{Name: "web"}) {
		t.Error("prefix must not match")
	}
	if inventory.MatchQuery(r, inventory.Query{Name: "web10"}) {
		t.Error("longer name must not match")
	}
}

func TestMatchQuery_Status(t *testing.T) {
	r := ref("web1", "running", nil)

	q := inventory.Query{SearchOptions: map[string]string{"status": "Running"}}
	if !inventory.MatchQuery(r, q) {
		t.Error("status comparison should be case-insensitive")
	}

	q = inventory.Query{SearchOptions: map[string]string{"status": "exited"}}
	if inventory.MatchQuery(r, q) {
		t.Error("mismatched status must not match")
	}
}

func TestMatchQuery_Metadata(t *testing.T) {
	r := ref("web1", "running", map[string]string{"owner": "amy", "env": "ci"})

	cases := []struct {
		name   string
		meta   map[string]string
		negate bool
		want   bool
	}{
		{"all pairs match", map[string]string{"owner": "amy", "env": "ci"}, false, true},
		{"subset matches", map[string]string{"owner": "amy"}, false, true},
		{"one pair differs", map[string]string{"owner": "amy", "env": "prod"}, false, false},
		{"absent key", map[string]string{"team": "search"}, false, false},
		{"negated match", map[string]string{"owner": "amy"}, true, false},
		{"negated non-match", map[string]string{"owner": "bob"}, true, true},
		{"empty predicate", nil, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := inventory.Query{Metadata: tc.meta, Negate: tc.negate}
			if got := inventory.MatchQuery(r, q); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	refs := []*inventory.Reference{
		ref("web1", "running", map[string]string{"owner": "amy"}),
		ref("web2", "exited", map[string]string{"owner": "amy"}),
		ref("db1", "running", map[string]string{"owner": "bob"}),
	}

	q := inventory.Query{
		SearchOptions: map[string]string{"status": "running"},
		Metadata:      map[string]string{"owner": "amy"},
	}
	got := inventory.Filter(refs, q)
	if len(got) != 1 || got[0].Name != "web1" {
		t.Errorf("got %v, want [web1]", names(got))
	}

	got = inventory.Filter(refs, inventory.Query{})
	if len(got) != 3 {
		t.Errorf("empty query: got %d refs, want 3", len(got))
	}
}

func TestSortReferences(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &inventory.Reference{Name: "alpha", Created: base.Add(2 * time.Hour)}
	b := &inventory.Reference{Name: "beta", Created: base}
	c := &inventory.Reference{Name: "gamma", Created: base.Add(time.Hour)}

	cases := []struct {
		sortOption string
		want       []string
	}{
		{"", []string{"alpha", "beta", "gamma"}},
		{"name", []string{"alpha", "beta", "gamma"}},
		{"name:desc", []string{"gamma", "beta", "alpha"}},
		{"created", []string{"beta", "gamma", "alpha"}},
		{"created:desc", []string{"alpha", "gamma", "beta"}},
		{"bogus", []string{"alpha", "beta", "gamma"}},
	}

	for _, tc := range cases {
		t.Run("sort="+tc.sortOption, func(t *testing.T) {
			refs := []*inventory.Reference{c, a, b}
			inventory.SortReferences(refs, tc.sortOption)
			got := names(refs)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func names(refs []*inventory.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}
