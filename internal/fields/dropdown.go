package fields

import (
	"fmt"

	"newsdesk/api/internal/article"
)

// Cardinality names the strategy used to decide whether a vocabulary-backed
// field is multi-valued. Two divergent lookups coexist on purpose: the legacy
// numeric service flag and the selection_type attribute do not always agree,
// and callers pick per field until product intent is clarified.
type Cardinality int

const (
	// CardinalityLegacy uses the numeric service flag (service.all == 1).
	CardinalityLegacy Cardinality = iota
	// CardinalitySelectionType treats everything but an explicit single
	// selection as multi-valued.
	CardinalitySelectionType
)

func (c Cardinality) multiple(rc Context, vocabularyID string) bool {
	if c == CardinalityLegacy {
		return rc.Vocabularies.MultiValuedLegacy(vocabularyID)
	}
	return rc.Vocabularies.MultiValued(vocabularyID)
}

// columnDropdown is a vocabulary dropdown whose storage value is a dedicated
// subject-shaped column of the article (genre, place via locators). Single
// selection reads surface a scalar; multi selection always a slice.
type columnDropdown struct {
	id           string
	name         string
	vocabularyID string
	cardinality  Cardinality
	get          func(article.Article) []article.Subject
	set          func(*article.Article, []article.Subject)
}

func (a columnDropdown) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        a.id,
		Name:      a.name,
		FieldType: TypeDropdown,
		Config: VocabularyDropdownConfig{
			Source:       "vocabulary",
			VocabularyID: a.vocabularyID,
			Multiple:     a.cardinality.multiple(rc, a.vocabularyID),
		},
	}
}

func (a columnDropdown) ReadValue(rc Context, art article.Article) any {
	values := make([]string, 0, len(a.get(art)))
	for _, entry := range a.get(art) {
		values = append(values, entry.QCode)
	}
	if a.cardinality.multiple(rc, a.vocabularyID) {
		return values
	}
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

func (a columnDropdown) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	qcodes, ok := toStringSlice(value)
	if !ok {
		return article.Article{}, fmt.Errorf("field %s: expected qcode or qcode list, got %T", a.id, value)
	}
	voc, _ := rc.Vocabularies.Get(a.vocabularyID)
	entries := make([]article.Subject, 0, len(qcodes))
	for _, qcode := range qcodes {
		name := ""
		if item, found := voc.ItemByQCode(qcode); found {
			name = item.Name
		}
		entries = append(entries, article.Subject{QCode: qcode, Name: name})
	}
	out := art.Clone()
	a.set(&out, entries)
	return out, nil
}

// schemeDropdown is a vocabulary dropdown whose storage value shares the
// article's generic subject collection, discriminated by the scheme tag. The
// default subject vocabulary uses an empty scheme. Writes filter out this
// field's entries and concat the new ones, never touching entries owned by
// other schemes.
type schemeDropdown struct {
	id           string
	name         string
	vocabularyID string
	scheme       string // "" for the default subject vocabulary
	multiple     bool
}

func (a schemeDropdown) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        a.id,
		Name:      a.name,
		FieldType: TypeDropdown,
		Config: VocabularyDropdownConfig{
			Source:       "vocabulary",
			VocabularyID: a.vocabularyID,
			Multiple:     a.multiple,
		},
	}
}

func (a schemeDropdown) ReadValue(rc Context, art article.Article) any {
	values := []string{}
	for _, entry := range art.Subject {
		if entry.Scheme == a.scheme {
			values = append(values, entry.QCode)
		}
	}
	if a.multiple {
		return values
	}
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

func (a schemeDropdown) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	qcodes, ok := toStringSlice(value)
	if !ok {
		return article.Article{}, fmt.Errorf("field %s: expected qcode or qcode list, got %T", a.id, value)
	}
	selected := make(map[string]bool, len(qcodes))
	for _, qcode := range qcodes {
		selected[qcode] = true
	}
	voc, _ := rc.Vocabularies.Get(a.vocabularyID)

	out := art.Clone()
	kept := make([]article.Subject, 0, len(out.Subject))
	for _, entry := range out.Subject {
		if entry.Scheme != a.scheme {
			kept = append(kept, entry)
		}
	}
	for _, item := range voc.Items {
		if !selected[item.QCode] {
			continue
		}
		kept = append(kept, article.Subject{
			QCode:  item.QCode,
			Name:   item.Name,
			Scheme: a.scheme,
			Parent: item.Parent,
		})
	}
	out.Subject = kept
	return out, nil
}

// placeRemoteAdapter serves the place field when the autocomplete feature is
// on: options come from a remote geonames-style API and are stored verbatim.
type placeRemoteAdapter struct{}

func (placeRemoteAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        "place",
		Name:      "Place",
		FieldType: TypeDropdown,
		Config: RemoteDropdownConfig{
			Source:   "remote-source",
			Endpoint: "/api/places_autocomplete",
			Multiple: true,
		},
	}
}

func (placeRemoteAdapter) ReadValue(rc Context, art article.Article) any {
	return append([]article.Subject(nil), art.Place...)
}

func (placeRemoteAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var places []article.Subject
	if err := reshape(value, &places); err != nil {
		return article.Article{}, fmt.Errorf("field place: %w", err)
	}
	out := art.Clone()
	out.Place = places
	return out, nil
}

// placeAdapter picks the variant at registry-build time from the feature
// flag: remote autocomplete, or the "locators" vocabulary.
func placeAdapter(rc Context) Adapter {
	if rc.Features.PlacesAutocomplete {
		return placeRemoteAdapter{}
	}
	return columnDropdown{
		id:           "place",
		name:         "Place",
		vocabularyID: "locators",
		cardinality:  CardinalitySelectionType,
		get:          func(art article.Article) []article.Subject { return art.Place },
		set:          func(art *article.Article, v []article.Subject) { art.Place = v },
	}
}
