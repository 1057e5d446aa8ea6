// Package article defines the persisted article document and the helpers
// every transformation layer operates on. All transforms take a snapshot and
// return a new snapshot; Clone is the only sanctioned way to get a mutable copy.
package article

import (
	"encoding/json"
	"time"
)

// Subject is one entry of a subject-shaped collection. A missing Scheme
// denotes the default "subject" vocabulary; any other value names the custom
// vocabulary the entry belongs to.
type Subject struct {
	QCode  string `json:"qcode"`
	Name   string `json:"name"`
	Scheme string `json:"scheme,omitempty"`
	Parent string `json:"parent,omitempty"`
}

// Author is a byline credit resolved from the authors vocabulary.
type Author struct {
	ID       string `json:"_id"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	SubLabel string `json:"sub_label,omitempty"`
	Parent   string `json:"parent,omitempty"`
}

// Rendition is a single stored representation of a media item.
type Rendition struct {
	Href     string `json:"href"`
	MimeType string `json:"mimetype,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Association is a related media item or linked article. Associations are
// keyed by "<fieldId>--<n>" in the article document; the feature image uses
// the fixed "featuremedia" key.
type Association struct {
	ID          string               `json:"_id"`
	Type        string               `json:"type"`
	Order       int                  `json:"order,omitempty"`
	Headline    string               `json:"headline,omitempty"`
	Description string               `json:"description_text,omitempty"`
	AltText     string               `json:"alt_text,omitempty"`
	Renditions  map[string]Rendition `json:"renditions,omitempty"`
}

// AttachmentRef links an uploaded attachment to the article.
type AttachmentRef struct {
	Attachment string `json:"attachment"`
}

// GroupRef points at an item inside a package group.
type GroupRef struct {
	ResidRef string `json:"residRef,omitempty"`
	IDRef    string `json:"idRef,omitempty"`
	Type     string `json:"type,omitempty"`
	Headline string `json:"headline,omitempty"`
	Slugline string `json:"slugline,omitempty"`
	Location string `json:"location,omitempty"`
}

// Group is one element of a package's groups array. The persisted layout is
// fixed: index 0 is the root group pointing at "main", index 1 holds the
// ordered item references.
type Group struct {
	ID    string     `json:"id"`
	Role  string     `json:"role,omitempty"`
	Refs  []GroupRef `json:"refs"`
}

const (
	// GroupRoot is the id of the constant root group of a package.
	GroupRoot = "root"
	// GroupMain is the id of the group holding the actual item references.
	GroupMain = "main"
)

// FieldMeta is the per-field metadata side table entry. Rich-text fields keep
// their editor document here; the string rendition lives in the article field
// itself.
type FieldMeta struct {
	EditorState []json.RawMessage `json:"editor_state,omitempty"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// Task is the desk/stage assignment of an article.
type Task struct {
	Desk  string `json:"desk,omitempty"`
	Stage string `json:"stage,omitempty"`
	User  string `json:"user,omitempty"`
}

// Article is the persisted entity. Known fields are typed; values of legacy
// custom fields without a dedicated column live at the top level of the JSON
// document and are kept in Custom (see MarshalJSON/UnmarshalJSON).
type Article struct {
	ID      string `json:"_id,omitempty"`
	ETag    string `json:"_etag,omitempty"`
	Profile string `json:"profile,omitempty"`
	Type    string `json:"type,omitempty"`
	State   string `json:"state,omitempty"`

	LockUser    string     `json:"lock_user,omitempty"`
	LockSession string     `json:"lock_session,omitempty"`
	LockTime    *time.Time `json:"lock_time,omitempty"`
	Task        *Task      `json:"task,omitempty"`

	Slugline     string `json:"slugline,omitempty"`
	Headline     string `json:"headline,omitempty"`
	BodyHTML     string `json:"body_html,omitempty"`
	Abstract     string `json:"abstract,omitempty"`
	Byline       string `json:"byline,omitempty"`
	Ednote       string `json:"ednote,omitempty"`
	AnpaTakeKey  string `json:"anpa_take_key,omitempty"`
	SMSMessage   string `json:"sms_message,omitempty"`
	UsageTerms   string `json:"usageterms,omitempty"`
	Description  string `json:"description_text,omitempty"`
	Dateline     string `json:"dateline,omitempty"`
	Language     string `json:"language,omitempty"`

	Urgency  json.Number `json:"urgency,omitempty"`
	Priority json.Number `json:"priority,omitempty"`

	Keywords     []string  `json:"keywords,omitempty"`
	Subject      []Subject `json:"subject,omitempty"`
	Genre        []Subject `json:"genre,omitempty"`
	Place        []Subject `json:"place,omitempty"`
	AnpaCategory []Subject `json:"anpa_category,omitempty"`
	Authors      []Author  `json:"authors,omitempty"`

	Associations map[string]*Association `json:"associations,omitempty"`
	Attachments  []AttachmentRef         `json:"attachments,omitempty"`
	Groups       []Group                 `json:"groups,omitempty"`

	Extra      map[string]any       `json:"extra,omitempty"`
	FieldsMeta map[string]FieldMeta `json:"fields_meta,omitempty"`

	VersionCreated *time.Time `json:"versioncreated,omitempty"`
	Created        *time.Time `json:"_created,omitempty"`
	Updated        *time.Time `json:"_updated,omitempty"`

	// Custom holds top-level values of fields that have no typed column,
	// round-tripped through the document JSON.
	Custom map[string]any `json:"-"`
}

// articleAlias avoids recursing into the custom marshalers.
type articleAlias Article

// MarshalJSON inlines Custom entries at the top level of the document.
func (a Article) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(articleAlias(a))
	if err != nil {
		return nil, err
	}
	if len(a.Custom) == 0 {
		return base, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for key, value := range a.Custom {
		if _, taken := doc[key]; taken {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		doc[key] = raw
	}
	return json.Marshal(doc)
}

// UnmarshalJSON splits unknown top-level keys into Custom.
func (a *Article) UnmarshalJSON(data []byte) error {
	var alias articleAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for key := range doc {
		if knownFields[key] {
			delete(doc, key)
		}
	}
	if len(doc) > 0 {
		alias.Custom = make(map[string]any, len(doc))
		for key, raw := range doc {
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				return err
			}
			alias.Custom[key] = value
		}
	}
	*a = Article(alias)
	return nil
}

var knownFields = func() map[string]bool {
	known := map[string]bool{}
	raw, _ := json.Marshal(articleAlias(Article{
		ID: "x", ETag: "x", Profile: "x", Type: "x", State: "x",
		LockUser: "x", LockSession: "x", LockTime: &time.Time{},
		Task:     &Task{},
		Slugline: "x", Headline: "x", BodyHTML: "x", Abstract: "x",
		Byline: "x", Ednote: "x", AnpaTakeKey: "x", SMSMessage: "x",
		UsageTerms: "x", Description: "x", Dateline: "x", Language: "x",
		Urgency: "1", Priority: "1",
		Keywords: []string{}, Subject: []Subject{}, Genre: []Subject{},
		Place: []Subject{}, AnpaCategory: []Subject{}, Authors: []Author{},
		Associations: map[string]*Association{}, Attachments: []AttachmentRef{}, Groups: []Group{},
		Extra: map[string]any{}, FieldsMeta: map[string]FieldMeta{},
		VersionCreated: &time.Time{}, Created: &time.Time{}, Updated: &time.Time{},
	}))
	var doc map[string]json.RawMessage
	_ = json.Unmarshal(raw, &doc)
	for key := range doc {
		known[key] = true
	}
	return known
}()

// Clone returns a deep copy. Adapters and the bridge mutate only clones.
func (a Article) Clone() Article {
	out := a
	out.Keywords = append([]string(nil), a.Keywords...)
	out.Subject = append([]Subject(nil), a.Subject...)
	out.Genre = append([]Subject(nil), a.Genre...)
	out.Place = append([]Subject(nil), a.Place...)
	out.AnpaCategory = append([]Subject(nil), a.AnpaCategory...)
	out.Authors = append([]Author(nil), a.Authors...)
	if a.Associations != nil {
		out.Associations = make(map[string]*Association, len(a.Associations))
		for key, assoc := range a.Associations {
			if assoc == nil {
				out.Associations[key] = nil
				continue
			}
			copied := *assoc
			if assoc.Renditions != nil {
				copied.Renditions = make(map[string]Rendition, len(assoc.Renditions))
				for name, r := range assoc.Renditions {
					copied.Renditions[name] = r
				}
			}
			out.Associations[key] = &copied
		}
	}
	out.Attachments = append([]AttachmentRef(nil), a.Attachments...)
	if a.Groups != nil {
		out.Groups = make([]Group, len(a.Groups))
		for i, group := range a.Groups {
			copied := group
			copied.Refs = append([]GroupRef(nil), group.Refs...)
			out.Groups[i] = copied
		}
	}
	if a.Extra != nil {
		out.Extra = make(map[string]any, len(a.Extra))
		for key, value := range a.Extra {
			out.Extra[key] = value
		}
	}
	if a.FieldsMeta != nil {
		out.FieldsMeta = make(map[string]FieldMeta, len(a.FieldsMeta))
		for key, meta := range a.FieldsMeta {
			copied := meta
			copied.EditorState = append([]json.RawMessage(nil), meta.EditorState...)
			copied.Annotations = append([]json.RawMessage(nil), meta.Annotations...)
			out.FieldsMeta[key] = copied
		}
	}
	if a.Custom != nil {
		out.Custom = make(map[string]any, len(a.Custom))
		for key, value := range a.Custom {
			out.Custom[key] = value
		}
	}
	if a.Task != nil {
		task := *a.Task
		out.Task = &task
	}
	return out
}

// omitOnPatch lists fields that must never travel in a PATCH payload: base
// API fields plus legacy fields the server rejects.
var omitOnPatch = []string{
	"_created",
	"_links",
	"_updated",
	"_etag",
	"_status",
	"_latest_version",
	"_current_version",
	"revert_state",
	"expiry",
	"original_id",
	"ingest_version",
	"refs",
	"linked_in_packages",
}

// OmitFields strips system fields from a document before patching. When
// omitID is set "_id" is stripped too.
func OmitFields(doc map[string]any, omitID bool) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		out[key] = value
	}
	for _, key := range omitOnPatch {
		delete(out, key)
	}
	if omitID {
		delete(out, "_id")
	}
	return out
}

// Doc renders the article as a generic JSON document.
func (a Article) Doc() (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDoc parses a generic JSON document back into an Article.
func FromDoc(doc map[string]any) (Article, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Article{}, err
	}
	var a Article
	if err := json.Unmarshal(raw, &a); err != nil {
		return Article{}, err
	}
	return a, nil
}
