package diff

import (
	"testing"
)

type entry struct {
	ID    string
	Value string
}

func entryID(e entry) string     { return e.ID }
func entryEqual(a, b entry) bool { return a.Value == b.Value }

func entries(ids ...string) []entry {
	out := make([]entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, entry{ID: id})
	}
	return out
}

func TestOfNoChanges(t *testing.T) {
	stats := Of(entries("a", "b"), entries("a", "b"), entryID, entryEqual)
	if !stats.NoChanges {
		t.Errorf("stats = %+v", stats)
	}
}

func TestOfAddedAndRemoved(t *testing.T) {
	stats := Of(entries("a", "b"), entries("a", "c"), entryID, entryEqual)
	if len(stats.Added) != 1 || stats.Added[0].ID != "c" {
		t.Errorf("added = %+v", stats.Added)
	}
	if len(stats.Removed) != 1 || stats.Removed[0].ID != "b" {
		t.Errorf("removed = %+v", stats.Removed)
	}
	if stats.NoChanges {
		t.Error("NoChanges despite add and remove")
	}
}

func TestOfReorderedByPosition(t *testing.T) {
	stats := Of(entries("a", "b", "c"), entries("b", "a", "c"), entryID, entryEqual)
	if len(stats.Reordered) != 2 {
		t.Errorf("reordered = %+v", stats.Reordered)
	}
	if len(stats.Added)+len(stats.Removed)+len(stats.Modified) != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestOfModifiedAndReorderedTogether(t *testing.T) {
	previous := []entry{{ID: "a", Value: "old"}, {ID: "b"}}
	current := []entry{{ID: "b"}, {ID: "a", Value: "new"}}
	stats := Of(previous, current, entryID, entryEqual)
	if len(stats.Modified) != 1 || stats.Modified[0].ID != "a" {
		t.Errorf("modified = %+v", stats.Modified)
	}
	if len(stats.Reordered) != 2 {
		t.Errorf("reordered = %+v", stats.Reordered)
	}
}

func TestOfAlwaysIgnoresContent(t *testing.T) {
	previous := []entry{{ID: "a", Value: "old"}}
	current := []entry{{ID: "a", Value: "new"}}
	stats := Of(previous, current, entryID, Always[entry])
	if !stats.NoChanges {
		t.Errorf("stats = %+v", stats)
	}
}

func TestOfEmptyCollections(t *testing.T) {
	stats := Of(nil, entries("a"), entryID, entryEqual)
	if len(stats.Added) != 1 || stats.NoChanges {
		t.Errorf("stats = %+v", stats)
	}
	stats = Of[entry](nil, nil, entryID, entryEqual)
	if !stats.NoChanges {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEquivalentJSONTreatsEmptyAsAbsent(t *testing.T) {
	type item struct {
		Name string            `json:"name"`
		Tags []string          `json:"tags"`
		Meta map[string]string `json:"meta"`
	}
	a := item{Name: "x"}
	b := item{Name: "x", Tags: []string{}, Meta: map[string]string{}}
	if !EquivalentJSON(a, b) {
		t.Error("empty containers should compare equal to absent ones")
	}
	if EquivalentJSON(a, item{Name: "y"}) {
		t.Error("different values compared equal")
	}
}

func TestEquivalentJSONComparesAcrossTypes(t *testing.T) {
	if !EquivalentJSON(map[string]any{"n": 1}, struct {
		N int `json:"n"`
	}{N: 1}) {
		t.Error("equivalent documents compared unequal")
	}
}
