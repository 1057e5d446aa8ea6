// Package fields implements the field adapter registry: the bidirectional
// mapping between each field's operational value (what an editor component
// works with) and its storage value (what the persisted article JSON holds).
//
// Adapters never reach into ambient services; everything they need is on the
// Context passed into each call.
package fields

import (
	"newsdesk/api/internal/article"
	"newsdesk/api/internal/vocabulary"
)

// Context is the read-only resolution context threaded into every adapter
// call: loaded vocabularies, feature flags and the current content language.
type Context struct {
	Vocabularies *vocabulary.Set
	Features     Features
	Language     string
}

// Features are the configuration flags adapters depend on.
type Features struct {
	PlacesAutocomplete   bool
	DisallowedCharacters []string
}

// EditorEntry is the per-field editor configuration of a content profile.
// A nil entry means the field is disabled.
type EditorEntry struct {
	Order           float64  `json:"order"`
	Section         string   `json:"section"`
	ReadOnly        bool     `json:"readonly"`
	Required        bool     `json:"required"`
	AllowToggling   bool     `json:"allow_toggling"`
	SDWidth         string   `json:"sdWidth"`
	FormatOptions   []string `json:"formatOptions"`
	CleanPastedHTML bool     `json:"cleanPastedHTML"`
}

// SchemaEntry is the per-field validation schema of a content profile.
type SchemaEntry struct {
	MinLength int `json:"minlength"`
	MaxLength int `json:"maxlength"`
}

// CommonConfig applies to every field regardless of type.
type CommonConfig struct {
	ReadOnly      bool `json:"readOnly"`
	Required      bool `json:"required"`
	AllowToggling bool `json:"allow_toggling,omitempty"`
	Width         int  `json:"width,omitempty"`
}

// Descriptor identifies an editable field, its UI type and the type-specific
// configuration. Immutable once produced for a given profile version.
type Descriptor struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	FieldType string       `json:"fieldType"`
	Common    CommonConfig `json:"commonConfig"`
	Config    any          `json:"fieldConfig,omitempty"`
}

// Field type identifiers produced by descriptor functions.
const (
	TypeRichText     = "editor3"
	TypeDropdown     = "dropdown"
	TypeMedia        = "media"
	TypeLinkedItems  = "linked-items"
	TypeAttachments  = "attachments"
	TypePackageItems = "package-items"
	TypeDate         = "date"
	TypeURLs         = "urls"
	TypeEmbed        = "embed"
	TypeTags         = "tags"
	TypeExtension    = "extension"
)

// RichTextConfig configures an editor3 field.
type RichTextConfig struct {
	Format               []string `json:"editorFormat"`
	MinLength            int      `json:"minLength,omitempty"`
	MaxLength            int      `json:"maxLength,omitempty"`
	CleanPastedHTML      bool     `json:"cleanPastedHtml,omitempty"`
	SingleLine           bool     `json:"singleLine,omitempty"`
	DisallowedCharacters []string `json:"disallowedCharacters"`
}

// DropdownOption is a manual-entry dropdown choice.
type DropdownOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// ManualDropdownConfig configures a dropdown fed by a fixed option list.
type ManualDropdownConfig struct {
	Source       string           `json:"source"` // "manual-entry"
	Type         string           `json:"type"`   // "text" or "number"
	Options      []DropdownOption `json:"options"`
	RoundCorners bool             `json:"roundCorners"`
	Multiple     bool             `json:"multiple"`
}

// VocabularyDropdownConfig configures a dropdown fed by a vocabulary.
type VocabularyDropdownConfig struct {
	Source       string `json:"source"` // "vocabulary"
	VocabularyID string `json:"vocabularyId"`
	Multiple     bool   `json:"multiple"`
}

// RemoteDropdownConfig configures a dropdown fed by an autocomplete API.
type RemoteDropdownConfig struct {
	Source   string `json:"source"` // "remote-source"
	Endpoint string `json:"endpoint"`
	Multiple bool   `json:"multiple"`
}

// TreeDropdownConfig configures a dropdown over a tree of options (authors).
type TreeDropdownConfig struct {
	Source       string `json:"source"` // "dropdown-tree"
	VocabularyID string `json:"vocabularyId"`
	Multiple     bool   `json:"multiple"`
}

// MediaConfig configures a media field.
type MediaConfig struct {
	MaxItems           int  `json:"maxItems"`
	AllowPicture       bool `json:"allowPicture"`
	AllowAudio         bool `json:"allowAudio"`
	AllowVideo         bool `json:"allowVideo"`
	WorkflowInProgress bool `json:"workflowInProgress"`
	WorkflowPublished  bool `json:"workflowPublished"`
}

// DateConfig configures a date field.
type DateConfig struct {
	Shortcuts []vocabulary.DateShortcut `json:"shortcuts,omitempty"`
}

// ExtensionConfig carries a custom extension field's declared type and its
// opaque configuration blob.
type ExtensionConfig struct {
	ExtensionType string `json:"extensionType"`
	Config        any    `json:"config,omitempty"`
}

// LinkedItem is the operational value element of a linked-items field.
type LinkedItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Adapter produces the field descriptor for a field id. Value translation is
// optional: adapters that also move data implement Reader and/or Writer.
type Adapter interface {
	Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor
}

// Reader extracts a field's operational value from the article.
type Reader interface {
	ReadValue(rc Context, art article.Article) any
}

// Writer produces an updated article with the operational value written back
// in storage shape. Implementations must not drop unrelated entries of shared
// collections and must return a new snapshot.
type Writer interface {
	WriteValue(rc Context, value any, art article.Article) (article.Article, error)
}

// Registry maps field ids to adapters for one content profile resolution.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

func newRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) add(id string, adapter Adapter) {
	if _, exists := r.adapters[id]; !exists {
		r.order = append(r.order, id)
	}
	r.adapters[id] = adapter
}

// Get returns the adapter registered for the field id.
func (r *Registry) Get(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Has reports whether a field id has a registered adapter.
func (r *Registry) Has(id string) bool {
	_, ok := r.adapters[id]
	return ok
}

// Reader returns the adapter's read capability, if declared.
func (r *Registry) Reader(id string) (Reader, bool) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, false
	}
	reader, ok := a.(Reader)
	return reader, ok
}

// Writer returns the adapter's write capability, if declared.
func (r *Registry) Writer(id string) (Writer, bool) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, false
	}
	writer, ok := a.(Writer)
	return writer, ok
}

// IDs returns registered field ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
