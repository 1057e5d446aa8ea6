package fields

import (
	"encoding/json"
	"fmt"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/editorstate"
)

// richTextAdapter serves the editor3 fields. Built-in fields keep their HTML
// rendition in a dedicated article field; generated custom-text fields keep it
// in the extra bag. The authoritative editor document always lives in
// fields_meta.
type richTextAdapter struct {
	id               string
	name             string
	singleLine       bool
	useFormatOptions bool
	useDisallowed    bool
	get              func(article.Article) string
	set              func(*article.Article, string)
}

func (a richTextAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	format := []string{}
	if a.useFormatOptions && editor.FormatOptions != nil {
		format = editor.FormatOptions
	}
	disallowed := []string{}
	if a.useDisallowed && rc.Features.DisallowedCharacters != nil {
		disallowed = rc.Features.DisallowedCharacters
	}
	return Descriptor{
		ID:        a.id,
		Name:      a.name,
		FieldType: TypeRichText,
		Config: RichTextConfig{
			Format:               format,
			MinLength:            schema.MinLength,
			MaxLength:            schema.MaxLength,
			CleanPastedHTML:      editor.CleanPastedHTML,
			SingleLine:           a.singleLine,
			DisallowedCharacters: disallowed,
		},
	}
}

func (a richTextAdapter) ReadValue(rc Context, art article.Article) any {
	if meta, ok := art.FieldsMeta[a.id]; ok && len(meta.EditorState) > 0 {
		doc, err := editorstate.Parse(meta.EditorState[0])
		if err == nil {
			return doc
		}
	}
	// Compatibility with articles saved by the legacy editor: only the
	// string rendition is present.
	stored := a.get(art)
	if stored == "" {
		return editorstate.Document{}
	}
	if a.singleLine {
		return editorstate.FromText(stored)
	}
	return editorstate.FromHTML(stored)
}

func (a richTextAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	doc, err := toDocument(value)
	if err != nil {
		return article.Article{}, fmt.Errorf("field %s: %w", a.id, err)
	}
	out := art.Clone()
	if a.singleLine {
		a.set(&out, doc.PlainText())
	} else {
		a.set(&out, doc.ToHTML())
	}
	if out.FieldsMeta == nil {
		out.FieldsMeta = map[string]article.FieldMeta{}
	}
	out.FieldsMeta[a.id] = article.FieldMeta{EditorState: []json.RawMessage{doc.Raw()}}
	return out, nil
}

// extraField returns accessors for string values kept in the extra bag.
func extraField(id string) (func(article.Article) string, func(*article.Article, string)) {
	get := func(art article.Article) string {
		s, _ := art.Extra[id].(string)
		return s
	}
	set := func(art *article.Article, value string) {
		if art.Extra == nil {
			art.Extra = map[string]any{}
		}
		art.Extra[id] = value
	}
	return get, set
}

// manualDropdown is a dropdown over a fixed option list sourced from a
// vocabulary, storing a scalar qcode in a dedicated article field. Serves
// priority and urgency.
type manualDropdown struct {
	id            string
	name          string
	vocabularyID  string
	defaultColors map[string]string
	roundCorners  bool
	get           func(article.Article) string
	set           func(*article.Article, string)
}

// Default label colors, used when the vocabulary item has none.
// HAS TO BE SYNCED with the client label stylesheet.
var defaultPriorityColors = map[string]string{
	"0": "#cccccc",
	"1": "#b82f00",
	"2": "#de6237",
	"3": "#e49c56",
	"4": "#edc175",
	"5": "#b6c28b",
	"6": "#c0c9a1",
}

var defaultUrgencyColors = map[string]string{
	"0": "#cccccc",
	"1": "#01405b",
	"2": "#005e84",
	"3": "#3684a4",
	"4": "#64a4bf",
	"5": "#a1c6d8",
}

func (a manualDropdown) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	voc, _ := rc.Vocabularies.Get(a.vocabularyID)
	options := make([]DropdownOption, 0, len(voc.Items))
	for _, item := range voc.Items {
		color := item.Color
		if color == "" {
			color = a.defaultColors[item.Name]
		}
		options = append(options, DropdownOption{ID: item.QCode, Label: item.Name, Color: color})
	}
	return Descriptor{
		ID:        a.id,
		Name:      a.name,
		FieldType: TypeDropdown,
		Config: ManualDropdownConfig{
			Source:       "manual-entry",
			Type:         "number",
			Options:      options,
			RoundCorners: a.roundCorners,
			Multiple:     false,
		},
	}
}

func (a manualDropdown) ReadValue(rc Context, art article.Article) any {
	stored := a.get(art)
	if stored == "" {
		return nil
	}
	return stored
}

func (a manualDropdown) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	out := art.Clone()
	switch v := value.(type) {
	case nil:
		a.set(&out, "")
	case string:
		a.set(&out, v)
	case json.Number:
		a.set(&out, v.String())
	case float64:
		a.set(&out, json.Number(fmt.Sprintf("%g", v)).String())
	default:
		return article.Article{}, fmt.Errorf("field %s: unsupported value type %T", a.id, value)
	}
	return out, nil
}

// tagsAdapter serves the keywords field: a free-form list of strings.
type tagsAdapter struct {
	id   string
	name string
}

func (a tagsAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{ID: a.id, Name: a.name, FieldType: TypeTags}
}

func (a tagsAdapter) ReadValue(rc Context, art article.Article) any {
	if art.Keywords == nil {
		return []string{}
	}
	return append([]string(nil), art.Keywords...)
}

func (a tagsAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	values, ok := toStringSlice(value)
	if !ok {
		return article.Article{}, fmt.Errorf("field %s: expected string list, got %T", a.id, value)
	}
	out := art.Clone()
	out.Keywords = values
	return out, nil
}

// authorsAdapter exposes the byline credits as a tree dropdown over the
// authors vocabulary. Values are stored as-is.
type authorsAdapter struct{}

func (authorsAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        "authors",
		Name:      "Authors",
		FieldType: TypeDropdown,
		Config: TreeDropdownConfig{
			Source:       "dropdown-tree",
			VocabularyID: "authors",
			Multiple:     true,
		},
	}
}

func (authorsAdapter) ReadValue(rc Context, art article.Article) any {
	return append([]article.Author(nil), art.Authors...)
}

func (authorsAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var authors []article.Author
	if err := reshape(value, &authors); err != nil {
		return article.Article{}, fmt.Errorf("field authors: %w", err)
	}
	out := art.Clone()
	out.Authors = authors
	return out, nil
}

// toStringSlice accepts a scalar string, a []string or a decoded-JSON []any.
func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return []string{}, true
	case string:
		return []string{v}, true
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}


func toDocument(value any) (editorstate.Document, error) {
	switch v := value.(type) {
	case editorstate.Document:
		return v, nil
	case json.RawMessage:
		return editorstate.Parse(v)
	case string:
		return editorstate.FromText(v), nil
	default:
		var doc editorstate.Document
		if err := reshape(value, &doc); err != nil {
			return editorstate.Document{}, err
		}
		return doc, nil
	}
}

// reshape converts a decoded-JSON value into a typed target.
func reshape(value any, target any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
