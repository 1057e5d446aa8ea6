package fields

import (
	"fmt"
	"sort"
	"strings"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/vocabulary"
)

// featureMediaKey is the fixed association key of the feature image.
const featureMediaKey = "featuremedia"

// relatedKey builds the association key of the n-th item of a field.
func relatedKey(fieldID string, n int) string {
	return fmt.Sprintf("%s--%d", fieldID, n)
}

// relatedItems returns a field's associations ordered by their order
// attribute. The same associations object carries data for several fields,
// discriminated by the key prefix.
func relatedItems(associations map[string]*article.Association, fieldID string) []article.Association {
	var items []article.Association
	prefix := fieldID + "--"
	for key, assoc := range associations {
		if assoc == nil || !strings.HasPrefix(key, prefix) {
			continue
		}
		items = append(items, *assoc)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

// applyRelatedItems replaces a field's associations, leaving other fields'
// entries untouched.
func applyRelatedItems(art article.Article, fieldID string, items []article.Association) article.Article {
	out := art.Clone()
	if out.Associations == nil {
		out.Associations = map[string]*article.Association{}
	}
	prefix := fieldID + "--"
	for key := range out.Associations {
		if strings.HasPrefix(key, prefix) {
			delete(out.Associations, key)
		}
	}
	for i := range items {
		item := items[i]
		item.Order = i
		out.Associations[relatedKey(fieldID, i+1)] = &item
	}
	return out
}

// featureMediaAdapter wraps the single feature image into a one-element
// media collection.
type featureMediaAdapter struct{}

func (featureMediaAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        "feature_media",
		Name:      "Feature media",
		FieldType: TypeMedia,
		Config: MediaConfig{
			MaxItems:           1,
			AllowPicture:       true,
			AllowAudio:         true,
			AllowVideo:         true,
			WorkflowInProgress: true,
			WorkflowPublished:  true,
		},
	}
}

func (featureMediaAdapter) ReadValue(rc Context, art article.Article) any {
	if assoc, ok := art.Associations[featureMediaKey]; ok && assoc != nil {
		return []article.Association{*assoc}
	}
	return []article.Association{}
}

func (featureMediaAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var items []article.Association
	if err := reshape(value, &items); err != nil {
		return article.Article{}, fmt.Errorf("field feature_media: %w", err)
	}
	out := art.Clone()
	if out.Associations == nil {
		out.Associations = map[string]*article.Association{}
	}
	if len(items) == 0 {
		delete(out.Associations, featureMediaKey)
		return out, nil
	}
	item := items[0]
	out.Associations[featureMediaKey] = &item
	return out, nil
}

// customMediaAdapter is generated per media-type custom vocabulary.
type customMediaAdapter struct {
	voc vocabulary.Vocabulary
}

func (a customMediaAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	maxItems := 1
	if mi := a.voc.FieldOptions.MultipleItems; mi != nil && mi.Enabled {
		maxItems = mi.MaxItems
	}
	inProgress, published := true, true
	if wf := a.voc.FieldOptions.AllowedWorkflows; wf != nil {
		inProgress, published = wf.InProgress, wf.Published
	}
	return Descriptor{
		ID:        a.voc.ID,
		Name:      a.voc.DisplayName,
		FieldType: TypeMedia,
		Config: MediaConfig{
			MaxItems:           maxItems,
			AllowPicture:       a.voc.FieldOptions.AllowedTypes["picture"],
			AllowAudio:         a.voc.FieldOptions.AllowedTypes["audio"],
			AllowVideo:         a.voc.FieldOptions.AllowedTypes["video"],
			WorkflowInProgress: inProgress,
			WorkflowPublished:  published,
		},
	}
}

func (a customMediaAdapter) ReadValue(rc Context, art article.Article) any {
	items := relatedItems(art.Associations, a.voc.ID)
	if items == nil {
		return []article.Association{}
	}
	return items
}

func (a customMediaAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var items []article.Association
	if err := reshape(value, &items); err != nil {
		return article.Article{}, fmt.Errorf("field %s: %w", a.voc.ID, err)
	}
	return applyRelatedItems(art, a.voc.ID, items), nil
}

// linkedItemsAdapter is generated per related-content custom vocabulary.
// Operational values are bare id/type pairs; storage keeps full association
// entries with their position.
type linkedItemsAdapter struct {
	voc vocabulary.Vocabulary
}

func (a linkedItemsAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        a.voc.ID,
		Name:      a.voc.DisplayName,
		FieldType: TypeLinkedItems,
	}
}

func (a linkedItemsAdapter) ReadValue(rc Context, art article.Article) any {
	items := relatedItems(art.Associations, a.voc.ID)
	linked := make([]LinkedItem, 0, len(items))
	for _, item := range items {
		linked = append(linked, LinkedItem{ID: item.ID, Type: item.Type})
	}
	return linked
}

func (a linkedItemsAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var linked []LinkedItem
	if err := reshape(value, &linked); err != nil {
		return article.Article{}, fmt.Errorf("field %s: %w", a.voc.ID, err)
	}
	items := make([]article.Association, 0, len(linked))
	for i, item := range linked {
		items = append(items, article.Association{ID: item.ID, Type: item.Type, Order: i})
	}
	return applyRelatedItems(art, a.voc.ID, items), nil
}

// attachmentsAdapter serves the attachments field.
type attachmentsAdapter struct{}

func (attachmentsAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{ID: "attachments", Name: "Attachments", FieldType: TypeAttachments}
}

func (attachmentsAdapter) ReadValue(rc Context, art article.Article) any {
	if art.Attachments == nil {
		return []article.AttachmentRef{}
	}
	return append([]article.AttachmentRef(nil), art.Attachments...)
}

func (attachmentsAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var refs []article.AttachmentRef
	if err := reshape(value, &refs); err != nil {
		return article.Article{}, fmt.Errorf("field attachments: %w", err)
	}
	out := art.Clone()
	out.Attachments = refs
	return out, nil
}

// packageItemsAdapter serves the groups field of composite items. The
// persistence layer requires a fixed two-group shape: a constant root group
// pointing at "main" at index 0, the ordered item references at index 1.
type packageItemsAdapter struct{}

func (packageItemsAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{ID: "groups", Name: "Package items", FieldType: TypePackageItems}
}

func (packageItemsAdapter) ReadValue(rc Context, art article.Article) any {
	for _, group := range art.Groups {
		if group.ID == article.GroupMain {
			return append([]article.GroupRef(nil), group.Refs...)
		}
	}
	return []article.GroupRef{}
}

func (packageItemsAdapter) WriteValue(rc Context, value any, art article.Article) (article.Article, error) {
	var refs []article.GroupRef
	if err := reshape(value, &refs); err != nil {
		return article.Article{}, fmt.Errorf("field groups: %w", err)
	}
	out := art.Clone()
	out.Groups = []article.Group{
		{
			ID:   article.GroupRoot,
			Role: "grpRole:NEP",
			Refs: []article.GroupRef{{IDRef: article.GroupMain}},
		},
		{
			ID:   article.GroupMain,
			Role: "grpRole:main",
			Refs: refs,
		},
	}
	return out, nil
}

// Describe-only adapters for the remaining generated custom field types.

type dateAdapter struct {
	voc vocabulary.Vocabulary
}

func (a dateAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{
		ID:        a.voc.ID,
		Name:      a.voc.DisplayName,
		FieldType: TypeDate,
		Config:    DateConfig{Shortcuts: a.voc.DateShortcuts},
	}
}

type urlsAdapter struct {
	voc vocabulary.Vocabulary
}

func (a urlsAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{ID: a.voc.ID, Name: a.voc.DisplayName, FieldType: TypeURLs}
}

type embedAdapter struct {
	voc vocabulary.Vocabulary
}

func (a embedAdapter) Describe(rc Context, editor EditorEntry, schema SchemaEntry) Descriptor {
	return Descriptor{ID: a.voc.ID, Name: a.voc.DisplayName, FieldType: TypeEmbed}
}
