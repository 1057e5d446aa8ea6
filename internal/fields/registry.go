package fields

import (
	"encoding/json"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/vocabulary"
)

// languageAdapter only describes the field; the language value itself is
// managed by the surrounding application.
type languageAdapter struct{}

func (languageAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        "language",
		Name:      "Language",
		FieldType: TypeDropdown,
		Config: VocabularyDropdownConfig{
			Source:       "vocabulary",
			VocabularyID: "languages",
			Multiple:     false,
		},
	}
}

// NewRegistry builds the adapter registry for one content profile
// resolution: the fixed built-in adapters, one generated adapter per custom
// field vocabulary, and one generated dropdown per remaining selection-type
// vocabulary.
func NewRegistry(rc Context) *Registry {
	r := newRegistry()

	singleLine := func(id, name string, get func(article.Article) string, set func(*article.Article, string)) {
		r.add(id, richTextAdapter{id: id, name: name, singleLine: true, get: get, set: set})
	}

	r.add("slugline", richTextAdapter{
		id: "slugline", name: "Slugline", singleLine: true, useDisallowed: true,
		get: func(a article.Article) string { return a.Slugline },
		set: func(a *article.Article, v string) { a.Slugline = v },
	})
	singleLine("headline", "Headline",
		func(a article.Article) string { return a.Headline },
		func(a *article.Article, v string) { a.Headline = v })
	singleLine("byline", "Byline",
		func(a article.Article) string { return a.Byline },
		func(a *article.Article, v string) { a.Byline = v })
	singleLine("ednote", "Ed. note",
		func(a article.Article) string { return a.Ednote },
		func(a *article.Article, v string) { a.Ednote = v })
	singleLine("anpa_take_key", "Take key",
		func(a article.Article) string { return a.AnpaTakeKey },
		func(a *article.Article, v string) { a.AnpaTakeKey = v })
	singleLine("sms_message", "SMS message",
		func(a article.Article) string { return a.SMSMessage },
		func(a *article.Article, v string) { a.SMSMessage = v })
	singleLine("usageterms", "Usage terms",
		func(a article.Article) string { return a.UsageTerms },
		func(a *article.Article, v string) { a.UsageTerms = v })
	singleLine("description_text", "Description",
		func(a article.Article) string { return a.Description },
		func(a *article.Article, v string) { a.Description = v })
	singleLine("dateline", "Dateline",
		func(a article.Article) string { return a.Dateline },
		func(a *article.Article, v string) { a.Dateline = v })

	r.add("body_html", richTextAdapter{
		id: "body_html", name: "Body HTML", useFormatOptions: true,
		get: func(a article.Article) string { return a.BodyHTML },
		set: func(a *article.Article, v string) { a.BodyHTML = v },
	})
	r.add("abstract", richTextAdapter{
		id: "abstract", name: "Abstract", useFormatOptions: true,
		get: func(a article.Article) string { return a.Abstract },
		set: func(a *article.Article, v string) { a.Abstract = v },
	})

	r.add("priority", manualDropdown{
		id: "priority", name: "Priority", vocabularyID: "priority",
		defaultColors: defaultPriorityColors, roundCorners: false,
		get: func(a article.Article) string { return a.Priority.String() },
		set: func(a *article.Article, v string) { a.Priority = numberOrEmpty(v) },
	})
	r.add("urgency", manualDropdown{
		id: "urgency", name: "Urgency", vocabularyID: "urgency",
		defaultColors: defaultUrgencyColors, roundCorners: true,
		get: func(a article.Article) string { return a.Urgency.String() },
		set: func(a *article.Article, v string) { a.Urgency = numberOrEmpty(v) },
	})

	r.add("language", languageAdapter{})
	r.add("genre", columnDropdown{
		id: "genre", name: "Genre", vocabularyID: "genre",
		cardinality: CardinalityLegacy,
		get:         func(a article.Article) []article.Subject { return a.Genre },
		set:         func(a *article.Article, v []article.Subject) { a.Genre = v },
	})
	r.add("place", placeAdapter(rc))
	r.add("anpa_category", columnDropdown{
		id: "anpa_category", name: "Category", vocabularyID: "categories",
		cardinality: CardinalitySelectionType,
		get:         func(a article.Article) []article.Subject { return a.AnpaCategory },
		set:         func(a *article.Article, v []article.Subject) { a.AnpaCategory = v },
	})
	r.add("subject", schemeDropdown{
		id: "subject", name: "Subject", vocabularyID: "subject",
		scheme: "", multiple: true,
	})
	r.add("authors", authorsAdapter{})
	r.add("keywords", tagsAdapter{id: "keywords", name: "Keywords"})
	r.add("attachments", attachmentsAdapter{})
	r.add("feature_media", featureMediaAdapter{})
	r.add("groups", packageItemsAdapter{})

	for _, voc := range rc.Vocabularies.CustomFieldVocabularies() {
		switch voc.FieldType {
		case "text":
			get, set := extraField(voc.ID)
			r.add(voc.ID, richTextAdapter{
				id: voc.ID, name: voc.DisplayName,
				singleLine:       voc.FieldOptions.Single,
				useFormatOptions: true,
				get:              get, set: set,
			})
		case "date":
			r.add(voc.ID, dateAdapter{voc: voc})
		case "urls":
			r.add(voc.ID, urlsAdapter{voc: voc})
		case "embed":
			r.add(voc.ID, embedAdapter{voc: voc})
		case "media":
			r.add(voc.ID, customMediaAdapter{voc: voc})
		case "related_content":
			r.add(voc.ID, linkedItemsAdapter{voc: voc})
		}
	}

	for _, voc := range rc.Vocabularies.All() {
		if r.Has(voc.ID) || !rc.Vocabularies.IsSelectionVocabulary(voc.ID) {
			continue
		}
		r.add(voc.ID, schemeDropdown{
			id:           voc.ID,
			name:         voc.DisplayName,
			vocabularyID: voc.ID,
			scheme:       voc.ID,
			multiple:     voc.SelectionType == vocabulary.MultiSelection,
		})
	}

	return r
}

func numberOrEmpty(v string) json.Number {
	return json.Number(v)
}

// NewBridgeRegistry builds the compact adapter set the legacy article
// bridge works with: only the adapters that move values between dedicated
// article columns and the extra bag, without touching fields_meta.
func NewBridgeRegistry(rc Context) *Registry {
	r := newRegistry()
	r.add("genre", columnDropdown{
		id: "genre", name: "Genre", vocabularyID: "genre",
		cardinality: CardinalityLegacy,
		get:         func(a article.Article) []article.Subject { return a.Genre },
		set:         func(a *article.Article, v []article.Subject) { a.Genre = v },
	})
	r.add("place", placeAdapter(rc))
	r.add("authors", authorsAdapter{})
	return r
}
