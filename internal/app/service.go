package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/autosave"
	"newsdesk/api/internal/bridge"
	"newsdesk/api/internal/config"
	"newsdesk/api/internal/diff"
	"newsdesk/api/internal/editorstate"
	"newsdesk/api/internal/export"
	"newsdesk/api/internal/fields"
	"newsdesk/api/internal/lock"
	"newsdesk/api/internal/profile"
	"newsdesk/api/internal/search"
	"newsdesk/api/internal/store"
	"newsdesk/api/internal/util"
	"newsdesk/api/internal/versions"
	"newsdesk/api/internal/vocabulary"
)

// vocabularyCacheTTL bounds how stale the in-memory vocabulary set may get.
// Vocabulary edits are rare and editors tolerate a short delay.
const vocabularyCacheTTL = 30 * time.Second

type dataStore interface {
	GetArticle(ctx context.Context, articleID string) (article.Article, error)
	InsertArticle(ctx context.Context, art article.Article) (article.Article, error)
	UpdateArticle(ctx context.Context, art article.Article, ifMatch string) (article.Article, error)
	DeleteArticle(ctx context.Context, articleID string) error
	ListArticles(ctx context.Context, limit int) ([]article.Article, error)
	ListVocabularies(ctx context.Context) ([]vocabulary.Vocabulary, error)
	GetContentProfile(ctx context.Context, profileID string) (store.ProfileRecord, error)
	UpsertAutosave(ctx context.Context, articleID string, doc json.RawMessage) error
	GetAutosave(ctx context.Context, articleID string) (store.AutosaveRecord, error)
	DeleteAutosave(ctx context.Context, articleID string) error
	InsertMediaAsset(ctx context.Context, asset store.MediaAsset) error
	GetMediaAsset(ctx context.Context, assetID string) (store.MediaAsset, error)
	Ping(ctx context.Context) error
}

// snapshotStore is the fast path for autosave snapshots. The relational
// store remains the durable copy; this one may be absent.
type snapshotStore interface {
	Save(ctx context.Context, articleID string, doc json.RawMessage) error
	Get(ctx context.Context, articleID string) (json.RawMessage, error)
	Delete(ctx context.Context, articleID string) error
	Ping(ctx context.Context) error
}

type lockStore interface {
	Acquire(ctx context.Context, articleID, user, session string) (lock.Info, error)
	Release(ctx context.Context, articleID, session string) error
	ForceRelease(ctx context.Context, articleID string) error
	Holder(ctx context.Context, articleID string) (*lock.Info, error)
}

type versionStore interface {
	Commit(articleID string, doc json.RawMessage, author, message string) (versions.VersionInfo, error)
	History(articleID string, limit int) ([]versions.VersionInfo, error)
	Get(articleID, hash string) (json.RawMessage, versions.VersionInfo, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexArticle(record search.ArticleRecord)
	DeleteArticle(id string)
}

type mediaStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type placesClient interface {
	Autocomplete(ctx context.Context, name, lang string) ([]article.Subject, error)
}

type exporter interface {
	Export(art article.Article, format export.Format) (*export.Result, error)
}

// Dependencies bundles the optional backends wired in at startup. A nil
// field disables that capability and the service degrades accordingly.
type Dependencies struct {
	Snapshots snapshotStore
	Locks     lockStore
	Versions  versionStore
	Search    searchService
	Media     mediaStorage
	Places    placesClient
	Exporter  exporter
}

type Service struct {
	cfg       config.Config
	store     dataStore
	snapshots snapshotStore
	scheduler *autosave.Scheduler
	locks     lockStore
	versions  versionStore
	search    searchService
	media     mediaStorage
	places    placesClient
	exporter  exporter

	vocabMu     sync.RWMutex
	vocabSet    *vocabulary.Set
	vocabLoaded time.Time
}

func New(cfg config.Config, dataStore dataStore, deps Dependencies) *Service {
	s := &Service{
		cfg:       cfg,
		store:     dataStore,
		snapshots: deps.Snapshots,
		locks:     deps.Locks,
		versions:  deps.Versions,
		search:    deps.Search,
		media:     deps.Media,
		places:    deps.Places,
		exporter:  deps.Exporter,
	}
	interval := cfg.AutosaveInterval
	if interval <= 0 {
		interval = autosave.DefaultInterval
	}
	s.scheduler = autosave.NewScheduler(interval, s.saveSnapshot)
	return s
}

// Close flushes pending autosaves and stops background work.
func (s *Service) Close() {
	s.scheduler.Close()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SnapshotsReady reports whether the fast snapshot store answers pings.
func (s *Service) SnapshotsReady(ctx context.Context) bool {
	if s.snapshots == nil {
		return false
	}
	return s.snapshots.Ping(ctx) == nil
}

// fieldContext assembles the adapter resolution context from the cached
// vocabulary set and the feature configuration.
func (s *Service) fieldContext(ctx context.Context, language string) (fields.Context, error) {
	set, err := s.vocabularySet(ctx)
	if err != nil {
		return fields.Context{}, err
	}
	var disallowed []string
	if s.cfg.DisallowedCharacters != "" {
		disallowed = strings.Split(s.cfg.DisallowedCharacters, "")
	}
	return fields.Context{
		Vocabularies: set,
		Features: fields.Features{
			PlacesAutocomplete:   s.places != nil,
			DisallowedCharacters: disallowed,
		},
		Language: language,
	}, nil
}

func (s *Service) vocabularySet(ctx context.Context) (*vocabulary.Set, error) {
	s.vocabMu.RLock()
	if s.vocabSet != nil && time.Since(s.vocabLoaded) < vocabularyCacheTTL {
		set := s.vocabSet
		s.vocabMu.RUnlock()
		return set, nil
	}
	s.vocabMu.RUnlock()

	vocabularies, err := s.store.ListVocabularies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vocabularies: %w", err)
	}
	set := vocabulary.NewSet(vocabularies)

	s.vocabMu.Lock()
	s.vocabSet = set
	s.vocabLoaded = time.Now()
	s.vocabMu.Unlock()
	return set, nil
}

// GetArticle loads an article. With authoring set, custom field values and
// adapter-managed fields are lifted into the authoring shape the editor
// works with.
func (s *Service) GetArticle(ctx context.Context, articleID string, authoring bool) (article.Article, error) {
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return article.Article{}, err
	}
	if !authoring {
		return art, nil
	}
	rc, err := s.fieldContext(ctx, art.Language)
	if err != nil {
		return article.Article{}, err
	}
	return bridge.New(rc).ToAuthoring(art), nil
}

// CreateArticle inserts a new article, records the initial version and
// indexes it for search.
func (s *Service) CreateArticle(ctx context.Context, art article.Article) (article.Article, error) {
	if art.ID == "" {
		art.ID = util.NewID("urn:newsdesk")
	}
	if art.Type == "" {
		art.Type = "text"
	}
	if art.State == "" {
		art.State = "draft"
	}
	created, err := s.store.InsertArticle(ctx, art)
	if err != nil {
		return article.Article{}, fmt.Errorf("insert article: %w", err)
	}
	s.afterSave(created, "create")
	return created, nil
}

// PatchArticle merges a partial document into the stored article and writes
// it back conditionally on ifMatch. Top-level keys in the patch replace the
// stored value wholesale; a JSON null removes the key. With authoring set,
// the merged article is translated back from the authoring shape before it
// is persisted.
func (s *Service) PatchArticle(ctx context.Context, articleID string, patch map[string]any, ifMatch string, authoring bool) (article.Article, error) {
	if ifMatch == "" {
		return article.Article{}, domainError(http.StatusPreconditionRequired, "PRECONDITION_REQUIRED", "If-Match header is required", nil)
	}

	stored, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return article.Article{}, err
	}
	doc, err := stored.Doc()
	if err != nil {
		return article.Article{}, fmt.Errorf("encode stored article: %w", err)
	}

	patch = article.OmitFields(patch, true)
	for key, value := range patch {
		if value == nil {
			delete(doc, key)
			continue
		}
		doc[key] = value
	}

	merged, err := article.FromDoc(doc)
	if err != nil {
		return article.Article{}, domainError(http.StatusBadRequest, "INVALID_PATCH", "Patch does not produce a valid article", err.Error())
	}
	merged.ID = articleID

	var rc fields.Context
	if authoring {
		rc, err = s.fieldContext(ctx, merged.Language)
		if err != nil {
			return article.Article{}, err
		}
		merged, err = bridge.New(rc).FromAuthoring(merged)
		if err != nil {
			return article.Article{}, domainError(http.StatusBadRequest, "INVALID_FIELD_VALUE", "Field value rejected", err.Error())
		}
	}

	updated, err := s.store.UpdateArticle(ctx, merged, ifMatch)
	if err != nil {
		return article.Article{}, err
	}

	// The saved document supersedes whatever autosave snapshot is pending.
	s.scheduler.Cancel(articleID)
	s.discardSnapshot(articleID)

	s.afterSave(updated, "update")
	if authoring {
		return bridge.New(rc).ToAuthoring(updated), nil
	}
	return updated, nil
}

// DeleteArticle removes the article, its autosave snapshot and its search
// index entry.
func (s *Service) DeleteArticle(ctx context.Context, articleID string) error {
	if err := s.store.DeleteArticle(ctx, articleID); err != nil {
		return err
	}
	s.scheduler.Cancel(articleID)
	s.discardSnapshot(articleID)
	if s.search != nil {
		s.search.DeleteArticle(articleID)
	}
	return nil
}

func (s *Service) ListArticles(ctx context.Context, limit int) ([]article.Article, error) {
	return s.store.ListArticles(ctx, limit)
}

// afterSave runs the write fan-out that must not delay the response:
// version history and the search index.
func (s *Service) afterSave(art article.Article, message string) {
	if s.versions != nil {
		doc, err := json.Marshal(art)
		if err == nil {
			go func() {
				author := art.LockUser
				if author == "" {
					author = "system"
				}
				if _, err := s.versions.Commit(art.ID, doc, author, message); err != nil {
					log.Printf("version commit for %s failed: %v", art.ID, err)
				}
			}()
		}
	}
	if s.search != nil {
		s.search.IndexArticle(searchRecord(art))
	}
}

func searchRecord(art article.Article) search.ArticleRecord {
	bodyText := editorstate.FromHTML(art.BodyHTML).PlainText()
	return search.ArticleRecord{
		ID:       art.ID,
		Headline: art.Headline,
		Slugline: art.Slugline,
		BodyText: bodyText,
		Profile:  art.Profile,
		State:    art.State,
		Type:     art.Type,
		Language: art.Language,
	}
}

// ScheduleAutosave queues a snapshot write. Rapid successive calls for the
// same article coalesce into one write.
func (s *Service) ScheduleAutosave(articleID string, doc json.RawMessage) {
	s.scheduler.Schedule(articleID, doc)
}

// saveSnapshot is the scheduler's sink. The relational copy is the durable
// one; the fast store is best effort.
func (s *Service) saveSnapshot(ctx context.Context, articleID string, doc json.RawMessage) error {
	if err := s.store.UpsertAutosave(ctx, articleID, doc); err != nil {
		return fmt.Errorf("persist autosave for %s: %w", articleID, err)
	}
	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, articleID, doc); err != nil {
			log.Printf("snapshot store save for %s failed: %v", articleID, err)
		}
	}
	return nil
}

// GetAutosave returns the latest snapshot, preferring the fast store.
func (s *Service) GetAutosave(ctx context.Context, articleID string) (json.RawMessage, error) {
	if s.snapshots != nil {
		doc, err := s.snapshots.Get(ctx, articleID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, autosave.ErrNotFound) {
			log.Printf("snapshot store get for %s failed: %v", articleID, err)
		}
	}
	record, err := s.store.GetAutosave(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return record.Doc, nil
}

// DiscardAutosave drops the pending and stored snapshots for an article.
func (s *Service) DiscardAutosave(ctx context.Context, articleID string) error {
	s.scheduler.Cancel(articleID)
	s.discardSnapshot(articleID)
	return s.store.DeleteAutosave(ctx, articleID)
}

func (s *Service) discardSnapshot(articleID string) {
	if s.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.snapshots.Delete(ctx, articleID); err != nil {
		log.Printf("snapshot store delete for %s failed: %v", articleID, err)
	}
}

// Lock acquires the editing lock and stamps the lock holder onto the
// article so other clients see it on read.
func (s *Service) Lock(ctx context.Context, articleID, user, session string) (article.Article, error) {
	if s.locks == nil {
		return article.Article{}, domainError(http.StatusServiceUnavailable, "LOCKS_UNAVAILABLE", "Editing locks are not configured", nil)
	}
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return article.Article{}, err
	}
	info, err := s.locks.Acquire(ctx, articleID, user, session)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			holder, _ := s.locks.Holder(ctx, articleID)
			return article.Article{}, domainError(http.StatusConflict, "LOCKED", "Article is locked by another session", holder)
		}
		return article.Article{}, fmt.Errorf("acquire lock for %s: %w", articleID, err)
	}

	art.LockUser = info.User
	art.LockSession = info.Session
	lockedAt := info.LockedAt
	art.LockTime = &lockedAt
	updated, err := s.store.UpdateArticle(ctx, art, art.ETag)
	if err != nil {
		return article.Article{}, err
	}
	return updated, nil
}

// Unlock releases the editing lock. With force set the lock is removed
// regardless of which session holds it.
func (s *Service) Unlock(ctx context.Context, articleID, session string, force bool) (article.Article, error) {
	if s.locks == nil {
		return article.Article{}, domainError(http.StatusServiceUnavailable, "LOCKS_UNAVAILABLE", "Editing locks are not configured", nil)
	}
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return article.Article{}, err
	}
	if force {
		err = s.locks.ForceRelease(ctx, articleID)
	} else {
		err = s.locks.Release(ctx, articleID, session)
	}
	if err != nil {
		if errors.Is(err, lock.ErrNotHeld) {
			return article.Article{}, domainError(http.StatusConflict, "NOT_LOCK_HOLDER", "Lock is held by another session", nil)
		}
		return article.Article{}, fmt.Errorf("release lock for %s: %w", articleID, err)
	}

	art.LockUser = ""
	art.LockSession = ""
	art.LockTime = nil
	updated, err := s.store.UpdateArticle(ctx, art, art.ETag)
	if err != nil {
		return article.Article{}, err
	}
	return updated, nil
}

// profileAccessor adapts the stored profile record to the schema shape the
// resolver consumes.
type profileAccessor struct {
	store dataStore
}

func (a profileAccessor) Setup(ctx context.Context, profileID string) (profile.Schema, error) {
	record, err := a.store.GetContentProfile(ctx, profileID)
	if err != nil {
		return profile.Schema{}, err
	}
	var schema profile.Schema
	if len(record.Editor) > 0 {
		if err := json.Unmarshal(record.Editor, &schema.Editor); err != nil {
			return profile.Schema{}, fmt.Errorf("decode editor config of %s: %w", profileID, err)
		}
	}
	if len(record.Schema) > 0 {
		if err := json.Unmarshal(record.Schema, &schema.Schema); err != nil {
			return profile.Schema{}, fmt.Errorf("decode schema config of %s: %w", profileID, err)
		}
	}
	if len(record.CustomFields) > 0 {
		if err := json.Unmarshal(record.CustomFields, &schema.CustomFields); err != nil {
			return profile.Schema{}, fmt.Errorf("decode custom fields of %s: %w", profileID, err)
		}
	}
	if len(record.Labels) > 0 {
		if err := json.Unmarshal(record.Labels, &schema.Labels); err != nil {
			return profile.Schema{}, fmt.Errorf("decode labels of %s: %w", profileID, err)
		}
	}
	if schema.Labels == nil {
		schema.Labels = map[string]string{}
	}
	// The resolver reads the profile display name from the "_profile" key;
	// the record's label column fills it unless the label map already does.
	if record.Label != "" && schema.Labels["_profile"] == "" {
		schema.Labels["_profile"] = record.Label
	}
	return schema, nil
}

// ResolveProfile builds the ordered field descriptors the editor renders
// for the article's content profile.
func (s *Service) ResolveProfile(ctx context.Context, articleID string) (profile.ContentProfile, error) {
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return profile.ContentProfile{}, err
	}
	rc, err := s.fieldContext(ctx, art.Language)
	if err != nil {
		return profile.ContentProfile{}, err
	}
	resolved, err := profile.Resolve(ctx, art, profileAccessor{store: s.store}, fields.NewRegistry(rc), rc)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return profile.ContentProfile{}, domainError(http.StatusNotFound, "PROFILE_NOT_FOUND", "Content profile not found", nil)
		}
		return profile.ContentProfile{}, domainError(http.StatusUnprocessableEntity, "PROFILE_INVALID", "Content profile cannot be resolved", err.Error())
	}
	return resolved, nil
}

func (s *Service) Vocabularies(ctx context.Context) ([]vocabulary.Vocabulary, error) {
	return s.store.ListVocabularies(ctx)
}

// Vocabulary returns one controlled vocabulary by id.
func (s *Service) Vocabulary(ctx context.Context, vocabularyID string) (vocabulary.Vocabulary, error) {
	set, err := s.vocabularySet(ctx)
	if err != nil {
		return vocabulary.Vocabulary{}, err
	}
	voc, ok := set.Get(vocabularyID)
	if !ok {
		return vocabulary.Vocabulary{}, domainError(http.StatusNotFound, "VOCABULARY_NOT_FOUND", "Vocabulary not found", nil)
	}
	return voc, nil
}

func (s *Service) Search(q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	return s.search.Search(q), nil
}

// History lists the saved versions of an article, newest first.
func (s *Service) History(ctx context.Context, articleID string, limit int) ([]versions.VersionInfo, error) {
	if s.versions == nil {
		return nil, domainError(http.StatusServiceUnavailable, "VERSIONS_UNAVAILABLE", "Version history is not configured", nil)
	}
	history, err := s.versions.History(articleID, limit)
	if err != nil {
		if errors.Is(err, versions.ErrNoHistory) {
			return nil, domainError(http.StatusNotFound, "NO_HISTORY", "No version history for article", nil)
		}
		return nil, fmt.Errorf("load history for %s: %w", articleID, err)
	}
	return history, nil
}

// Version returns one saved revision of an article.
func (s *Service) Version(ctx context.Context, articleID, hash string) (json.RawMessage, versions.VersionInfo, error) {
	if s.versions == nil {
		return nil, versions.VersionInfo{}, domainError(http.StatusServiceUnavailable, "VERSIONS_UNAVAILABLE", "Version history is not configured", nil)
	}
	doc, info, err := s.versions.Get(articleID, hash)
	if err != nil {
		if errors.Is(err, versions.ErrNoHistory) {
			return nil, versions.VersionInfo{}, domainError(http.StatusNotFound, "NO_HISTORY", "No version history for article", nil)
		}
		return nil, versions.VersionInfo{}, domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Revision not found", err.Error())
	}
	return doc, info, nil
}

// FieldChange is one scalar field whose value differs between two revisions.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// Comparison is the result of comparing two revisions of an article.
type Comparison struct {
	From         string                              `json:"from"`
	To           string                              `json:"to"`
	Fields       []FieldChange                       `json:"fields"`
	Authors      diff.Statistics[article.Author]     `json:"authors"`
	Subject      diff.Statistics[article.Subject]    `json:"subject"`
	Associations diff.Statistics[associationWithKey] `json:"associations"`
}

type associationWithKey struct {
	Key string `json:"key"`
	article.Association
}

// Compare diffs two saved revisions of an article.
func (s *Service) Compare(ctx context.Context, articleID, fromHash, toHash string) (Comparison, error) {
	fromDoc, fromInfo, err := s.Version(ctx, articleID, fromHash)
	if err != nil {
		return Comparison{}, err
	}
	toDoc, toInfo, err := s.Version(ctx, articleID, toHash)
	if err != nil {
		return Comparison{}, err
	}

	var from, to article.Article
	if err := json.Unmarshal(fromDoc, &from); err != nil {
		return Comparison{}, fmt.Errorf("decode revision %s: %w", fromHash, err)
	}
	if err := json.Unmarshal(toDoc, &to); err != nil {
		return Comparison{}, fmt.Errorf("decode revision %s: %w", toHash, err)
	}
	return compareArticles(from, to, fromInfo.Hash, toInfo.Hash), nil
}

// CompareWithCurrent diffs a saved revision against the current document.
func (s *Service) CompareWithCurrent(ctx context.Context, articleID, ref string) (Comparison, error) {
	doc, info, err := s.Version(ctx, articleID, ref)
	if err != nil {
		return Comparison{}, err
	}
	var from article.Article
	if err := json.Unmarshal(doc, &from); err != nil {
		return Comparison{}, fmt.Errorf("decode revision %s: %w", ref, err)
	}
	current, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return Comparison{}, err
	}
	return compareArticles(from, current, info.Hash, "current"), nil
}

func compareArticles(from, to article.Article, fromRef, toRef string) Comparison {
	return Comparison{
		From:   fromRef,
		To:     toRef,
		Fields: scalarChanges(from, to),
		Authors: diff.Of(from.Authors, to.Authors,
			func(a article.Author) string { return a.ID + "/" + a.Role },
			func(a, b article.Author) bool { return a == b }),
		Subject: diff.Of(from.Subject, to.Subject,
			func(s article.Subject) string { return s.Scheme + ":" + s.QCode },
			func(a, b article.Subject) bool { return a == b }),
		Associations: diff.Of(associationList(from), associationList(to),
			func(a associationWithKey) string { return a.Key },
			func(a, b associationWithKey) bool { return diff.EquivalentJSON(a, b) }),
	}
}

func scalarChanges(from, to article.Article) []FieldChange {
	var changes []FieldChange
	compare := func(field string, a, b any) {
		if !diff.EquivalentJSON(a, b) {
			changes = append(changes, FieldChange{Field: field, From: a, To: b})
		}
	}
	compare("headline", from.Headline, to.Headline)
	compare("slugline", from.Slugline, to.Slugline)
	compare("abstract", from.Abstract, to.Abstract)
	compare("body_html", from.BodyHTML, to.BodyHTML)
	compare("byline", from.Byline, to.Byline)
	compare("priority", from.Priority, to.Priority)
	compare("urgency", from.Urgency, to.Urgency)
	compare("language", from.Language, to.Language)
	compare("genre", from.Genre, to.Genre)
	compare("extra", from.Extra, to.Extra)
	return changes
}

func associationList(art article.Article) []associationWithKey {
	keys := make([]string, 0, len(art.Associations))
	for key, assoc := range art.Associations {
		if assoc == nil {
			continue
		}
		keys = append(keys, key)
	}
	// Association keys carry the field id and slot number, so lexical order
	// matches slot order within each field.
	sort.Strings(keys)
	out := make([]associationWithKey, 0, len(keys))
	for _, key := range keys {
		out = append(out, associationWithKey{Key: key, Association: *art.Associations[key]})
	}
	return out
}

// Export renders the article to the requested format. With a revision hash
// the saved revision is exported instead of the current document.
func (s *Service) Export(ctx context.Context, articleID, revision string, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	var art article.Article
	if revision != "" {
		doc, _, err := s.Version(ctx, articleID, revision)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &art); err != nil {
			return nil, fmt.Errorf("decode revision %s: %w", revision, err)
		}
	} else {
		var err error
		art, err = s.store.GetArticle(ctx, articleID)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.exporter.Export(art, format)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_DEPENDENCY_MISSING", "Export backend is not installed", err.Error())
		}
		return nil, fmt.Errorf("export %s: %w", articleID, err)
	}
	return result, nil
}

// PlacesAutocomplete proxies place suggestions from the configured lookup
// service.
func (s *Service) PlacesAutocomplete(ctx context.Context, name, lang string) ([]article.Subject, error) {
	if s.places == nil {
		return nil, domainError(http.StatusNotImplemented, "PLACES_DISABLED", "Remote place lookup is not configured", nil)
	}
	suggestions, err := s.places.Autocomplete(ctx, name, lang)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "PLACES_UPSTREAM", "Place lookup failed", err.Error())
	}
	return suggestions, nil
}

// UploadedAsset is the response shape for a completed upload.
type UploadedAsset struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
	Href     string `json:"href,omitempty"`
}

// Upload stores a media binary and records its metadata.
func (s *Service) Upload(ctx context.Context, filename, mimeType string, size int64, reader io.Reader) (UploadedAsset, error) {
	if s.media == nil {
		return UploadedAsset{}, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage is not configured", nil)
	}
	assetID := util.NewID("asset")
	key := assetID + "/" + filename
	if err := s.media.Put(ctx, key, reader, size, mimeType); err != nil {
		return UploadedAsset{}, fmt.Errorf("store media binary: %w", err)
	}
	asset := store.MediaAsset{
		ID:         assetID,
		Filename:   filename,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: key,
	}
	if err := s.store.InsertMediaAsset(ctx, asset); err != nil {
		return UploadedAsset{}, fmt.Errorf("record media asset: %w", err)
	}
	href, err := s.media.PresignedURL(ctx, key, time.Hour)
	if err != nil {
		log.Printf("presign for %s failed: %v", assetID, err)
	}
	return UploadedAsset{ID: assetID, Filename: filename, MimeType: mimeType, Size: size, Href: href}, nil
}

// AssetURL returns a short-lived download URL for a stored asset.
func (s *Service) AssetURL(ctx context.Context, assetID string) (UploadedAsset, error) {
	if s.media == nil {
		return UploadedAsset{}, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage is not configured", nil)
	}
	asset, err := s.store.GetMediaAsset(ctx, assetID)
	if err != nil {
		return UploadedAsset{}, err
	}
	href, err := s.media.PresignedURL(ctx, asset.StorageKey, time.Hour)
	if err != nil {
		return UploadedAsset{}, fmt.Errorf("presign %s: %w", assetID, err)
	}
	return UploadedAsset{
		ID:       asset.ID,
		Filename: asset.Filename,
		MimeType: asset.MimeType,
		Size:     asset.SizeBytes,
		Href:     href,
	}, nil
}
