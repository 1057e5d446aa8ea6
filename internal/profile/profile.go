// Package profile resolves an article's content profile: the ordered, named
// list of field descriptors the editor renders, split into header and content
// sections.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/fields"
)

// Sections recognized by the schema. Anything else is a schema authoring bug
// and resolution fails fast.
const (
	SectionHeader  = "header"
	SectionContent = "content"
)

// CustomField is a custom extension field declared by the schema.
type CustomField struct {
	ID          string `json:"_id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"custom_field_type"`
	Config      any    `json:"custom_field_config,omitempty"`
}

// Schema is the editor/schema configuration of one content profile.
type Schema struct {
	Editor       map[string]*fields.EditorEntry
	Schema       map[string]fields.SchemaEntry
	CustomFields map[string]CustomField
	Labels       map[string]string
}

// Accessor loads the schema of a content profile.
type Accessor interface {
	Setup(ctx context.Context, profileID string) (Schema, error)
}

// OrderedFields is an insertion-ordered collection of field descriptors
// keyed by field id.
type OrderedFields struct {
	ids  []string
	byID map[string]fields.Descriptor
}

// Set appends a descriptor, replacing in place when the id already exists.
func (f *OrderedFields) Set(d fields.Descriptor) {
	if f.byID == nil {
		f.byID = map[string]fields.Descriptor{}
	}
	if _, exists := f.byID[d.ID]; !exists {
		f.ids = append(f.ids, d.ID)
	}
	f.byID[d.ID] = d
}

// Get returns the descriptor for a field id.
func (f *OrderedFields) Get(id string) (fields.Descriptor, bool) {
	d, ok := f.byID[id]
	return d, ok
}

// Has reports whether the id is present.
func (f *OrderedFields) Has(id string) bool {
	_, ok := f.byID[id]
	return ok
}

// Len returns the number of fields.
func (f *OrderedFields) Len() int { return len(f.ids) }

// All returns descriptors in insertion order.
func (f *OrderedFields) All() []fields.Descriptor {
	out := make([]fields.Descriptor, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, f.byID[id])
	}
	return out
}

// MarshalJSON renders the collection as an ordered array.
func (f OrderedFields) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.All())
}

// ContentProfile is the resolved profile of one article.
type ContentProfile struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Header  OrderedFields `json:"header"`
	Content OrderedFields `json:"content"`
}

// AllFields returns header then content descriptors in display order.
func (p ContentProfile) AllFields() []fields.Descriptor {
	return append(p.Header.All(), p.Content.All()...)
}

// Companion fields that modify other fields' data and carry none of their
// own; they never get descriptors.
var omittedFields = map[string]bool{
	"footer":            true,
	"media_description": true,
}

// adjustID reconciles profile field ids with the article fields they write
// to.
func adjustID(fieldID string) string {
	switch fieldID {
	case "sms":
		return "sms_message"
	default:
		return fieldID
	}
}

var mediaTypes = map[string]bool{
	"picture": true,
	"audio":   true,
	"video":   true,
	"graphic": true,
}

// Resolve builds the content profile for an article. Field order follows the
// schema's order attribute; ties keep enumeration order. Composite items get
// the fixed packages profile.
func Resolve(
	ctx context.Context,
	art article.Article,
	accessor Accessor,
	registry *fields.Registry,
	rc fields.Context,
) (ContentProfile, error) {
	if art.Type == "composite" {
		return packagesProfile(), nil
	}

	schema, err := accessor.Setup(ctx, art.Profile)
	if err != nil {
		return ContentProfile{}, fmt.Errorf("setup profile %s: %w", art.Profile, err)
	}

	type orderedField struct {
		fieldID string
		entry   *fields.EditorEntry
		pos     int
	}
	var enabled []orderedField
	for _, fieldID := range sortedKeys(schema.Editor) {
		entry := schema.Editor[fieldID]
		if entry == nil || omittedFields[fieldID] {
			continue
		}
		enabled = append(enabled, orderedField{fieldID: fieldID, entry: entry, pos: len(enabled)})
	}
	// Stable sort by schema order; the position captured above breaks ties.
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].entry.Order < enabled[j].entry.Order
	})

	p := ContentProfile{ID: art.Profile, Name: profileName(schema, art.Profile)}
	for _, f := range enabled {
		fieldID := adjustID(f.fieldID)
		editor := *f.entry
		fieldSchema := schema.Schema[f.fieldID]

		descriptor := buildDescriptor(fieldID, schema, registry, rc, editor, fieldSchema)
		descriptor.Common = fields.CommonConfig{
			ReadOnly:      editor.ReadOnly,
			Required:      editor.Required,
			AllowToggling: editor.AllowToggling,
			Width:         convertWidth(editor.SDWidth),
		}

		if p.Header.Has(descriptor.ID) || p.Content.Has(descriptor.ID) {
			return ContentProfile{}, fmt.Errorf("duplicate field id %q in profile %s", descriptor.ID, art.Profile)
		}
		switch f.entry.Section {
		case SectionHeader:
			p.Header.Set(descriptor)
		case SectionContent:
			p.Content.Set(descriptor)
		default:
			return ContentProfile{}, fmt.Errorf(
				"field %s in profile %s: unrecognized section %q", fieldID, art.Profile, f.entry.Section)
		}
	}

	// Media items always expose a description field even when the profile
	// predates it.
	if mediaTypes[art.Type] && !p.Content.Has("description_text") && !p.Header.Has("description_text") {
		if adapter, ok := registry.Get("description_text"); ok {
			d := adapter.Describe(rc, fields.EditorEntry{}, fields.SchemaEntry{})
			p.Content.Set(d)
		}
	}

	return p, nil
}

func buildDescriptor(
	fieldID string,
	schema Schema,
	registry *fields.Registry,
	rc fields.Context,
	editor fields.EditorEntry,
	fieldSchema fields.SchemaEntry,
) fields.Descriptor {
	if adapter, ok := registry.Get(fieldID); ok {
		return adapter.Describe(rc, editor, fieldSchema)
	}
	if cf, ok := schema.CustomFields[fieldID]; ok {
		return fields.Descriptor{
			ID:        fieldID,
			Name:      labelFor(schema, fieldID),
			FieldType: fields.TypeExtension,
			Config:    fields.ExtensionConfig{ExtensionType: cf.Type, Config: cf.Config},
		}
	}
	// Unknown field without adapter: the deliberate pass-through text
	// fallback.
	return fields.Descriptor{
		ID:        fieldID,
		Name:      labelFor(schema, fieldID),
		FieldType: fields.TypeRichText,
		Config: fields.RichTextConfig{
			Format:               []string{},
			MinLength:            fieldSchema.MinLength,
			MaxLength:            fieldSchema.MaxLength,
			SingleLine:           true,
			DisallowedCharacters: []string{},
		},
	}
}

func labelFor(schema Schema, fieldID string) string {
	if label, ok := schema.Labels[fieldID]; ok && label != "" {
		return label
	}
	if cf, ok := schema.CustomFields[fieldID]; ok && cf.DisplayName != "" {
		return cf.DisplayName
	}
	return humanize(fieldID)
}

func humanize(fieldID string) string {
	parts := strings.FieldsFunc(fieldID, func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) == 0 {
		return fieldID
	}
	joined := strings.Join(parts, " ")
	return strings.ToUpper(joined[:1]) + joined[1:]
}

func profileName(schema Schema, profileID string) string {
	if label, ok := schema.Labels["_profile"]; ok && label != "" {
		return label
	}
	return profileID
}

func convertWidth(width string) int {
	switch width {
	case "full":
		return 100
	case "half":
		return 50
	case "quarter":
		return 25
	default:
		return 100
	}
}

// packagesProfile is the fixed profile of composite items.
func packagesProfile() ContentProfile {
	p := ContentProfile{ID: "packages-profile", Name: "Packages profile"}
	p.Header.Set(fields.Descriptor{
		ID:        "headline",
		Name:      "Headline",
		FieldType: fields.TypeRichText,
		Common:    fields.CommonConfig{Required: true},
		Config: fields.RichTextConfig{
			Format:               []string{},
			SingleLine:           true,
			DisallowedCharacters: []string{},
		},
	})
	p.Content.Set(fields.Descriptor{
		ID:        "groups",
		Name:      "Package items",
		FieldType: fields.TypePackageItems,
		Common:    fields.CommonConfig{Required: true},
	})
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
