// Package diff computes structural differences between two ordered
// collections of identity-bearing items. It is decoupled from any rendering
// concern: callers supply the identity and equality functions appropriate for
// their field type.
package diff

import (
	"encoding/json"
	"reflect"
)

// Statistics classifies the items of the second collection relative to the
// first. An item can be both reordered and modified. NoChanges is true iff
// all four lists are empty.
type Statistics[T any] struct {
	Added     []T  `json:"added"`
	Removed   []T  `json:"removed"`
	Modified  []T  `json:"modified"`
	Reordered []T  `json:"reordered"`
	NoChanges bool `json:"noChanges"`
}

// Of diffs two collections. Identity is keyed by id; reordering is detected
// purely from array position, so an item that moved is flagged exactly once
// regardless of how its neighbors moved.
func Of[T any](previous, current []T, id func(T) string, equal func(T, T) bool) Statistics[T] {
	stats := Statistics[T]{
		Added:     []T{},
		Removed:   []T{},
		Modified:  []T{},
		Reordered: []T{},
	}

	previousIndex := make(map[string]int, len(previous))
	for i, item := range previous {
		previousIndex[id(item)] = i
	}
	currentIndex := make(map[string]int, len(current))
	for i, item := range current {
		currentIndex[id(item)] = i
	}

	for _, item := range current {
		if _, existed := previousIndex[id(item)]; !existed {
			stats.Added = append(stats.Added, item)
		}
	}
	for _, item := range previous {
		if _, exists := currentIndex[id(item)]; !exists {
			stats.Removed = append(stats.Removed, item)
		}
	}
	for i, item := range current {
		prevPos, existed := previousIndex[id(item)]
		if !existed {
			continue
		}
		if prevPos != i {
			stats.Reordered = append(stats.Reordered, item)
		}
		if !equal(previous[prevPos], item) {
			stats.Modified = append(stats.Modified, item)
		}
	}

	stats.NoChanges = len(stats.Added) == 0 &&
		len(stats.Removed) == 0 &&
		len(stats.Modified) == 0 &&
		len(stats.Reordered) == 0
	return stats
}

// Always reports every pair equal. Used for field types that only track
// membership and order, e.g. attachments.
func Always[T any](T, T) bool { return true }

// EquivalentJSON compares two values through their JSON documents, treating
// nil maps, nil slices and absent keys as equivalent to null. Used for media
// comparisons where storage round-trips drop empty containers.
func EquivalentJSON(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return v
	}
	return prune(decoded)
}

// prune removes nulls and empty containers so that "absent" and "empty"
// compare equal.
func prune(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, item := range value {
			pruned := prune(item)
			if pruned == nil {
				continue
			}
			out[key] = pruned
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(value))
		for _, item := range value {
			out = append(out, prune(item))
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return value
	}
}
