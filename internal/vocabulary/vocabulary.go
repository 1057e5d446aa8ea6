// Package vocabulary models server-managed controlled lists and the lookups
// the field adapters need: item resolution by qcode and the two coexisting
// cardinality strategies.
package vocabulary

import "encoding/json"

// Selection types as stored on the vocabulary record.
const (
	SingleSelection = "single selection"
	MultiSelection  = "multi selection"
	DoNotShow       = "do not show"
)

// Item is a selectable vocabulary entry.
type Item struct {
	QCode  string `json:"qcode"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Parent string `json:"parent,omitempty"`
}

// DateShortcut configures a quick-pick entry of a date field.
type DateShortcut struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Term  string `json:"term"`
}

// Vocabulary is a named controlled list. FieldType is set for custom-field
// vocabularies ("text", "date", "media", ...); selection vocabularies carry a
// SelectionType instead.
type Vocabulary struct {
	ID            string          `json:"_id"`
	DisplayName   string          `json:"display_name"`
	FieldType     string          `json:"field_type,omitempty"`
	SelectionType string          `json:"selection_type,omitempty"`
	Items         []Item          `json:"items,omitempty"`
	DateShortcuts []DateShortcut  `json:"date_shortcuts,omitempty"`
	FieldOptions  FieldOptions    `json:"field_options,omitempty"`
	Service       map[string]int  `json:"service,omitempty"`
	CustomType    string          `json:"custom_field_type,omitempty"`
	CustomConfig  json.RawMessage `json:"custom_field_config,omitempty"`
}

// FieldOptions carries per-vocabulary field behavior toggles.
type FieldOptions struct {
	Single           bool              `json:"single,omitempty"`
	MultipleItems    *MultipleItems    `json:"multiple_items,omitempty"`
	AllowedTypes     map[string]bool   `json:"allowed_types,omitempty"`
	AllowedWorkflows *AllowedWorkflows `json:"allowed_workflows,omitempty"`
}

// MultipleItems enables multi-item media fields with an upper bound.
type MultipleItems struct {
	Enabled  bool `json:"enabled"`
	MaxItems int  `json:"max_items"`
}

// AllowedWorkflows restricts which workflow states a media field accepts.
type AllowedWorkflows struct {
	InProgress bool `json:"in_progress"`
	Published  bool `json:"published"`
}

// ItemByQCode returns the item with the given qcode.
func (v Vocabulary) ItemByQCode(qcode string) (Item, bool) {
	for _, item := range v.Items {
		if item.QCode == qcode {
			return item, true
		}
	}
	return Item{}, false
}

// Set is a read-only collection of vocabularies keyed by id. It is part of
// the resolution context threaded into every adapter call.
type Set struct {
	byID  map[string]Vocabulary
	order []string
}

// NewSet builds a Set preserving the given order.
func NewSet(vocabularies []Vocabulary) *Set {
	s := &Set{byID: make(map[string]Vocabulary, len(vocabularies))}
	for _, v := range vocabularies {
		if _, seen := s.byID[v.ID]; seen {
			continue
		}
		s.byID[v.ID] = v
		s.order = append(s.order, v.ID)
	}
	return s
}

// Get returns the vocabulary with the given id.
func (s *Set) Get(id string) (Vocabulary, bool) {
	if s == nil {
		return Vocabulary{}, false
	}
	v, ok := s.byID[id]
	return v, ok
}

// All returns vocabularies in their original order.
func (s *Set) All() []Vocabulary {
	if s == nil {
		return nil
	}
	out := make([]Vocabulary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// CustomFieldVocabularies returns vocabularies declaring a field_type, in
// order.
func (s *Set) CustomFieldVocabularies() []Vocabulary {
	var out []Vocabulary
	for _, v := range s.All() {
		if v.FieldType != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsSelectionVocabulary reports whether the vocabulary is rendered as a
// dropdown (single or multi selection).
func (s *Set) IsSelectionVocabulary(id string) bool {
	v, ok := s.Get(id)
	if !ok {
		return false
	}
	return v.SelectionType == SingleSelection || v.SelectionType == MultiSelection
}

// MultiValuedLegacy is the backward-compatible cardinality lookup driven by
// the numeric service flag. It does not always agree with MultiValued; both
// are kept until product intent is clarified, and callers choose explicitly.
func (s *Set) MultiValuedLegacy(id string) bool {
	v, ok := s.Get(id)
	if !ok {
		return false
	}
	return v.Service["all"] == 1
}

// MultiValued is the selection_type driven cardinality lookup: anything that
// is not explicitly single selection is treated as multi-valued.
func (s *Set) MultiValued(id string) bool {
	v, ok := s.Get(id)
	if !ok {
		return false
	}
	return v.SelectionType != SingleSelection
}
