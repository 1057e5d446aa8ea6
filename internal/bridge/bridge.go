// Package bridge reconciles the two structural conventions an article can
// arrive in. Legacy storage keeps custom-field values at the top level of the
// document and prefixes their metadata keys with "extra>"; the authoring
// representation keeps custom values unprefixed inside the extra bag and
// materializes adapter-backed values there too.
//
// ToAuthoring and FromAuthoring are mutually near-inverse pure functions over
// snapshots: applying one and then the other to an unedited article must
// reproduce the original storage-relevant fields exactly.
package bridge

import (
	"fmt"
	"sort"
	"strings"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/fields"
)

// legacyMetaPrefix namespaces custom-field keys in the metadata side table
// to avoid collisions with built-in field ids.
const legacyMetaPrefix = "extra>"

// Bridge translates articles between storage and authoring shape.
type Bridge struct {
	registry *fields.Registry
	rc       fields.Context
	// custom field ids known to the legacy representation, in stable order
	legacyIDs []string
}

// New builds a bridge for the current resolution context. The legacy field
// ids are the custom-field vocabulary ids.
func New(rc fields.Context) *Bridge {
	var ids []string
	for _, voc := range rc.Vocabularies.CustomFieldVocabularies() {
		ids = append(ids, voc.ID)
	}
	sort.Strings(ids)
	return &Bridge{
		registry:  fields.NewBridgeRegistry(rc),
		rc:        rc,
		legacyIDs: ids,
	}
}

// ToAuthoring converts a stored article into authoring shape.
func (b *Bridge) ToAuthoring(art article.Article) article.Article {
	out := art.Clone()

	// Custom fields without an adapter move from the top level into extra.
	for _, id := range b.legacyIDs {
		if _, claimed := b.registry.Writer(id); claimed {
			continue
		}
		value, present := out.Custom[id]
		if !present {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[id] = value
		delete(out.Custom, id)
	}

	// Adapter-backed fields materialize their operational value into extra.
	for _, id := range b.registry.IDs() {
		reader, ok := b.registry.Reader(id)
		if !ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[id] = reader.ReadValue(b.rc, art)
	}

	out.FieldsMeta = b.renameMeta(out.FieldsMeta, stripPrefix)
	return out
}

// FromAuthoring converts an authoring-shaped article back into storage
// shape. The inverse ordering of ToAuthoring.
func (b *Bridge) FromAuthoring(art article.Article) (article.Article, error) {
	out := art.Clone()

	// Custom fields without an adapter move back to the top level. A field
	// claimed by an adapter writer is never moved here.
	for _, id := range b.legacyIDs {
		if _, claimed := b.registry.Writer(id); claimed {
			continue
		}
		value, present := out.Extra[id]
		if !present {
			continue
		}
		if out.Custom == nil {
			out.Custom = map[string]any{}
		}
		out.Custom[id] = value
		delete(out.Extra, id)
	}

	// Adapter-backed fields consume their extra entry.
	for _, id := range b.registry.IDs() {
		writer, ok := b.registry.Writer(id)
		if !ok {
			continue
		}
		value, present := out.Extra[id]
		if !present {
			continue
		}
		updated, err := writer.WriteValue(b.rc, value, out)
		if err != nil {
			return article.Article{}, fmt.Errorf("bridge field %s: %w", id, err)
		}
		out = updated
		delete(out.Extra, id)
	}
	if len(out.Extra) == 0 {
		out.Extra = nil
	}

	out.FieldsMeta = b.renameMeta(out.FieldsMeta, addPrefix)
	return out, nil
}

func stripPrefix(key string) string {
	return strings.TrimPrefix(key, legacyMetaPrefix)
}

func addPrefix(key string) string {
	return legacyMetaPrefix + key
}

// renameMeta applies the prefix transform to metadata keys of known legacy
// custom fields, leaving every other key untouched.
func (b *Bridge) renameMeta(meta map[string]article.FieldMeta, transform func(string) string) map[string]article.FieldMeta {
	if meta == nil {
		return nil
	}
	legacy := make(map[string]bool, len(b.legacyIDs))
	for _, id := range b.legacyIDs {
		legacy[id] = true
	}
	out := make(map[string]article.FieldMeta, len(meta))
	for key, value := range meta {
		if legacy[stripPrefix(key)] {
			out[transform(stripPrefix(key))] = value
			continue
		}
		out[key] = value
	}
	return out
}
