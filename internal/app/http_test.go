package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/config"
	"newsdesk/api/internal/export"
	"newsdesk/api/internal/lock"
	"newsdesk/api/internal/search"
	"newsdesk/api/internal/store"
	"newsdesk/api/internal/versions"
	"newsdesk/api/internal/vocabulary"
)

type fakeStore struct {
	mu           sync.Mutex
	articles     map[string]article.Article
	autosaves    map[string]json.RawMessage
	profiles     map[string]store.ProfileRecord
	vocabularies []vocabulary.Vocabulary
	assets       map[string]store.MediaAsset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		articles:  map[string]article.Article{},
		autosaves: map[string]json.RawMessage{},
		profiles:  map[string]store.ProfileRecord{},
		assets:    map[string]store.MediaAsset{},
	}
}

func (f *fakeStore) GetArticle(_ context.Context, articleID string) (article.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	art, ok := f.articles[articleID]
	if !ok {
		return article.Article{}, store.ErrNotFound
	}
	return art.Clone(), nil
}

func (f *fakeStore) InsertArticle(_ context.Context, art article.Article) (article.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	etag, err := store.ComputeETag(art)
	if err != nil {
		return article.Article{}, err
	}
	art.ETag = etag
	f.articles[art.ID] = art.Clone()
	return art, nil
}

func (f *fakeStore) UpdateArticle(_ context.Context, art article.Article, ifMatch string) (article.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.articles[art.ID]
	if !ok {
		return article.Article{}, store.ErrNotFound
	}
	if current.ETag != ifMatch {
		return article.Article{}, store.ErrETagMismatch
	}
	etag, err := store.ComputeETag(art)
	if err != nil {
		return article.Article{}, err
	}
	art.ETag = etag
	f.articles[art.ID] = art.Clone()
	return art, nil
}

func (f *fakeStore) DeleteArticle(_ context.Context, articleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[articleID]; !ok {
		return store.ErrNotFound
	}
	delete(f.articles, articleID)
	delete(f.autosaves, articleID)
	return nil
}

func (f *fakeStore) ListArticles(_ context.Context, limit int) ([]article.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []article.Article
	for _, art := range f.articles {
		out = append(out, art.Clone())
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ListVocabularies(context.Context) ([]vocabulary.Vocabulary, error) {
	return f.vocabularies, nil
}

func (f *fakeStore) GetContentProfile(_ context.Context, profileID string) (store.ProfileRecord, error) {
	record, ok := f.profiles[profileID]
	if !ok {
		return store.ProfileRecord{}, store.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) UpsertAutosave(_ context.Context, articleID string, doc json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autosaves[articleID] = append(json.RawMessage(nil), doc...)
	return nil
}

func (f *fakeStore) GetAutosave(_ context.Context, articleID string) (store.AutosaveRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.autosaves[articleID]
	if !ok {
		return store.AutosaveRecord{}, store.ErrNotFound
	}
	return store.AutosaveRecord{ArticleID: articleID, Doc: doc}, nil
}

func (f *fakeStore) DeleteAutosave(_ context.Context, articleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.autosaves, articleID)
	return nil
}

func (f *fakeStore) InsertMediaAsset(_ context.Context, asset store.MediaAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[asset.ID] = asset
	return nil
}

func (f *fakeStore) GetMediaAsset(_ context.Context, assetID string) (store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[assetID]
	if !ok {
		return store.MediaAsset{}, store.ErrNotFound
	}
	return asset, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeLocks struct {
	mu    sync.Mutex
	locks map[string]lock.Info
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{locks: map[string]lock.Info{}}
}

func (f *fakeLocks) Acquire(_ context.Context, articleID, user, session string) (lock.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if held, ok := f.locks[articleID]; ok && held.Session != session {
		return lock.Info{}, lock.ErrLocked
	}
	info := lock.Info{User: user, Session: session, LockedAt: time.Now().UTC()}
	f.locks[articleID] = info
	return info, nil
}

func (f *fakeLocks) Release(_ context.Context, articleID, session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	held, ok := f.locks[articleID]
	if !ok || held.Session != session {
		return lock.ErrNotHeld
	}
	delete(f.locks, articleID)
	return nil
}

func (f *fakeLocks) ForceRelease(_ context.Context, articleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, articleID)
	return nil
}

func (f *fakeLocks) Holder(_ context.Context, articleID string) (*lock.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	held, ok := f.locks[articleID]
	if !ok {
		return nil, nil
	}
	return &held, nil
}

type fakeRevision struct {
	doc  json.RawMessage
	info versions.VersionInfo
}

type fakeVersions struct {
	mu   sync.Mutex
	revs map[string][]fakeRevision
}

func newFakeVersions() *fakeVersions {
	return &fakeVersions{revs: map[string][]fakeRevision{}}
}

func (f *fakeVersions) Commit(articleID string, doc json.RawMessage, author, message string) (versions.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := versions.VersionInfo{
		Hash:      fmt.Sprintf("rev%04d", len(f.revs[articleID])+1),
		Message:   message,
		Author:    author,
		CreatedAt: time.Now().UTC(),
	}
	f.revs[articleID] = append(f.revs[articleID], fakeRevision{doc: append(json.RawMessage(nil), doc...), info: info})
	return info, nil
}

func (f *fakeVersions) History(articleID string, limit int) ([]versions.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	revs, ok := f.revs[articleID]
	if !ok {
		return nil, versions.ErrNoHistory
	}
	var out []versions.VersionInfo
	for i := len(revs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, revs[i].info)
	}
	return out, nil
}

func (f *fakeVersions) Get(articleID, hash string) (json.RawMessage, versions.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	revs, ok := f.revs[articleID]
	if !ok {
		return nil, versions.VersionInfo{}, versions.ErrNoHistory
	}
	for _, rev := range revs {
		if rev.info.Hash == hash {
			return rev.doc, rev.info, nil
		}
	}
	return nil, versions.VersionInfo{}, fmt.Errorf("revision %s not found", hash)
}

type fakeSearch struct {
	mu       sync.Mutex
	lastQ    search.Query
	indexed  []search.ArticleRecord
	response search.Response
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	return f.response
}

func (f *fakeSearch) IndexArticle(record search.ArticleRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, record)
}

func (f *fakeSearch) DeleteArticle(string) {}

type testEnv struct {
	store    *fakeStore
	locks    *fakeLocks
	versions *fakeVersions
	search   *fakeSearch
	service  *Service
	server   *HTTPServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newFakeStore(),
		locks:    newFakeLocks(),
		versions: newFakeVersions(),
		search:   &fakeSearch{},
	}
	cfg := config.Config{AutosaveInterval: 10 * time.Millisecond}
	env.service = New(cfg, env.store, Dependencies{
		Locks:    env.locks,
		Versions: env.versions,
		Search:   env.search,
		Exporter: export.NewService(),
	})
	t.Cleanup(env.service.Close)
	env.server = NewHTTPServer(env.service, "*")
	return env
}

func (env *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func (env *testEnv) seedArticle(t *testing.T, art article.Article) article.Article {
	t.Helper()
	created, err := env.store.InsertArticle(context.Background(), art)
	if err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return created
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.request(t, http.MethodGet, "/api/health", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"ok":true`) {
		t.Errorf("body = %s", recorder.Body.String())
	}
}

func TestGetArticleReturnsETagHeader(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedArticle(t, article.Article{ID: "a1", Type: "text", Headline: "First take"})

	recorder := env.request(t, http.MethodGet, "/api/archive/a1", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("ETag"); got != created.ETag {
		t.Errorf("ETag header = %q, want %q", got, created.ETag)
	}
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["headline"] != "First take" {
		t.Errorf("headline = %v", payload["headline"])
	}
}

func TestGetArticleNotFound(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.request(t, http.MethodGet, "/api/archive/missing", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestPatchRequiresIfMatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	recorder := env.request(t, http.MethodPatch, "/api/archive/a1", map[string]any{"headline": "Updated"}, nil)
	if recorder.Code != http.StatusPreconditionRequired {
		t.Fatalf("status = %d, want 428", recorder.Code)
	}
}

func TestPatchUpdatesArticle(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedArticle(t, article.Article{ID: "a1", Type: "text", Headline: "First take", Slugline: "floods"})

	recorder := env.request(t, http.MethodPatch, "/api/archive/a1",
		map[string]any{"headline": "Second take"},
		map[string]string{"If-Match": created.ETag})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var updated article.Article
	if err := json.Unmarshal(recorder.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if updated.Headline != "Second take" {
		t.Errorf("headline = %q", updated.Headline)
	}
	if updated.Slugline != "floods" {
		t.Errorf("patch dropped untouched field, slugline = %q", updated.Slugline)
	}
	if updated.ETag == created.ETag {
		t.Error("etag did not change after update")
	}
}

func TestPatchETagMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	recorder := env.request(t, http.MethodPatch, "/api/archive/a1",
		map[string]any{"headline": "Updated"},
		map[string]string{"If-Match": "stale-etag"})
	if recorder.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want 412", recorder.Code)
	}
}

func TestPatchNullRemovesField(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedArticle(t, article.Article{ID: "a1", Type: "text", Headline: "First take", Ednote: "internal note"})

	recorder := env.request(t, http.MethodPatch, "/api/archive/a1",
		map[string]any{"ednote": nil},
		map[string]string{"If-Match": created.ETag})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var updated article.Article
	if err := json.Unmarshal(recorder.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if updated.Ednote != "" {
		t.Errorf("ednote = %q, want removed", updated.Ednote)
	}
	if updated.Headline != "First take" {
		t.Errorf("headline = %q", updated.Headline)
	}
}

func TestCreateArticleGeneratesID(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.request(t, http.MethodPost, "/api/archive",
		map[string]any{"headline": "Fresh story"}, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var created article.Article
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.ID == "" {
		t.Error("no id generated")
	}
	if created.Type != "text" || created.State != "draft" {
		t.Errorf("defaults not applied: type=%q state=%q", created.Type, created.State)
	}
}

func TestLockAndUnlock(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	recorder := env.request(t, http.MethodPost, "/api/archive/a1/lock",
		map[string]any{"user": "jane", "session": "s1"}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("lock status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var locked article.Article
	if err := json.Unmarshal(recorder.Body.Bytes(), &locked); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if locked.LockUser != "jane" || locked.LockSession != "s1" || locked.LockTime == nil {
		t.Errorf("lock fields = %q/%q/%v", locked.LockUser, locked.LockSession, locked.LockTime)
	}

	recorder = env.request(t, http.MethodPost, "/api/archive/a1/unlock",
		map[string]any{"session": "s1"}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unlock status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var unlocked article.Article
	if err := json.Unmarshal(recorder.Body.Bytes(), &unlocked); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if unlocked.LockUser != "" || unlocked.LockSession != "" || unlocked.LockTime != nil {
		t.Errorf("lock fields not cleared: %q/%q/%v", unlocked.LockUser, unlocked.LockSession, unlocked.LockTime)
	}
}

func TestLockConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	first := env.request(t, http.MethodPost, "/api/archive/a1/lock",
		map[string]any{"user": "jane", "session": "s1"}, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first lock status = %d", first.Code)
	}

	second := env.request(t, http.MethodPost, "/api/archive/a1/lock",
		map[string]any{"user": "john", "session": "s2"}, nil)
	if second.Code != http.StatusConflict {
		t.Fatalf("second lock status = %d, want 409", second.Code)
	}
	if !strings.Contains(second.Body.String(), "LOCKED") {
		t.Errorf("body = %s", second.Body.String())
	}
}

func TestForceUnlockReleasesForeignLock(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	env.request(t, http.MethodPost, "/api/archive/a1/lock",
		map[string]any{"user": "jane", "session": "s1"}, nil)

	recorder := env.request(t, http.MethodPost, "/api/archive/a1/unlock",
		map[string]any{"session": "s2", "force": true}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("force unlock status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
}

func TestAutosaveLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	recorder := env.request(t, http.MethodPost, "/api/archive_autosave/a1",
		map[string]any{"headline": "Draft headline"}, nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("save status = %d", recorder.Code)
	}
	if err := env.service.scheduler.Flush(context.Background(), "a1"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	recorder = env.request(t, http.MethodGet, "/api/archive_autosave/a1", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), "Draft headline") {
		t.Errorf("body = %s", recorder.Body.String())
	}

	recorder = env.request(t, http.MethodDelete, "/api/archive_autosave/a1", nil, nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", recorder.Code)
	}

	recorder = env.request(t, http.MethodGet, "/api/archive_autosave/a1", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", recorder.Code)
	}
}

func TestPatchDiscardsPendingAutosave(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	env.service.ScheduleAutosave("a1", json.RawMessage(`{"headline":"Draft"}`))
	recorder := env.request(t, http.MethodPatch, "/api/archive/a1",
		map[string]any{"headline": "Saved"},
		map[string]string{"If-Match": created.ETag})
	if recorder.Code != http.StatusOK {
		t.Fatalf("patch status = %d", recorder.Code)
	}

	// The coalesced write was cancelled, so nothing lands even after the
	// scheduler interval passes.
	time.Sleep(50 * time.Millisecond)
	if _, err := env.store.GetAutosave(context.Background(), "a1"); err == nil {
		t.Error("autosave snapshot survived the save")
	}
}

func TestCloseWritesPendingAutosave(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	env.service.ScheduleAutosave("a1", json.RawMessage(`{"headline":"Last edit"}`))
	env.service.Close()

	record, err := env.store.GetAutosave(context.Background(), "a1")
	if err != nil {
		t.Fatalf("pending autosave lost on close: %v", err)
	}
	if !strings.Contains(string(record.Doc), "Last edit") {
		t.Errorf("doc = %s", record.Doc)
	}
}

func TestProfileResolution(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text", Profile: "default"})
	env.store.profiles["default"] = store.ProfileRecord{
		ID:    "default",
		Label: "Default",
		Editor: json.RawMessage(`{
			"headline": {"order": 2, "section": "header"},
			"slugline": {"order": 1, "section": "header"},
			"body_html": {"order": 3, "section": "content"}
		}`),
	}

	recorder := env.request(t, http.MethodGet, "/api/archive/a1/profile", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	body := recorder.Body.String()
	if !strings.Contains(body, `"name":"Default"`) {
		t.Errorf("profile label not surfaced, body = %s", body)
	}
	slugPos := strings.Index(body, `"id":"slugline"`)
	headPos := strings.Index(body, `"id":"headline"`)
	if slugPos < 0 || headPos < 0 {
		t.Fatalf("descriptors missing from body: %s", body)
	}
	if slugPos > headPos {
		t.Error("fields not ordered by schema order attribute")
	}
}

func TestProfileUnknownProfile(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text", Profile: "ghost"})

	recorder := env.request(t, http.MethodGet, "/api/archive/a1/profile", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestSearchPassesQuery(t *testing.T) {
	env := newTestEnv(t)
	env.search.response = search.Response{Results: []search.Result{{ID: "a1", Headline: "Hit"}}, Total: 1}

	recorder := env.request(t, http.MethodGet, "/api/search?q=floods&profile=default&limit=10", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if env.search.lastQ.Text != "floods" || env.search.lastQ.FilterProfile != "default" || env.search.lastQ.Limit != 10 {
		t.Errorf("query = %+v", env.search.lastQ)
	}
	if !strings.Contains(recorder.Body.String(), `"total":1`) {
		t.Errorf("body = %s", recorder.Body.String())
	}
}

func TestHistoryAndVersion(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.versions.Commit("a1", json.RawMessage(`{"headline":"v1"}`), "jane", "create"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.versions.Commit("a1", json.RawMessage(`{"headline":"v2"}`), "jane", "update"); err != nil {
		t.Fatal(err)
	}

	recorder := env.request(t, http.MethodGet, "/api/archive/a1/versions", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("history status = %d", recorder.Code)
	}
	var listing struct {
		Items []versions.VersionInfo `json:"_items"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(listing.Items) != 2 || listing.Items[0].Message != "update" {
		t.Errorf("history = %+v", listing.Items)
	}

	recorder = env.request(t, http.MethodGet, "/api/archive/a1/versions/rev0001", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("version status = %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"headline":"v1"`) {
		t.Errorf("body = %s", recorder.Body.String())
	}
}

func TestHistoryUnknownArticle(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.request(t, http.MethodGet, "/api/archive/ghost/versions", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestCompareRevisions(t *testing.T) {
	env := newTestEnv(t)
	from := article.Article{
		Headline: "First take",
		Authors:  []article.Author{{ID: "u1", Role: "writer", Name: "Jane"}},
		Subject:  []article.Subject{{QCode: "01000000", Name: "arts"}},
	}
	to := article.Article{
		Headline: "Second take",
		Authors: []article.Author{
			{ID: "u1", Role: "writer", Name: "Jane"},
			{ID: "u2", Role: "editor", Name: "John"},
		},
		Subject: []article.Subject{{QCode: "04000000", Name: "economy"}},
	}
	fromDoc, _ := json.Marshal(from)
	toDoc, _ := json.Marshal(to)
	if _, err := env.versions.Commit("a1", fromDoc, "jane", "create"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.versions.Commit("a1", toDoc, "jane", "update"); err != nil {
		t.Fatal(err)
	}

	recorder := env.request(t, http.MethodPost, "/api/archive/a1/compare",
		map[string]any{"from": "rev0001", "to": "rev0002"}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var comparison Comparison
	if err := json.Unmarshal(recorder.Body.Bytes(), &comparison); err != nil {
		t.Fatalf("decode comparison: %v", err)
	}
	if len(comparison.Fields) != 1 || comparison.Fields[0].Field != "headline" {
		t.Errorf("field changes = %+v", comparison.Fields)
	}
	if len(comparison.Authors.Added) != 1 || comparison.Authors.Added[0].ID != "u2" {
		t.Errorf("authors added = %+v", comparison.Authors.Added)
	}
	if len(comparison.Subject.Added) != 1 || len(comparison.Subject.Removed) != 1 {
		t.Errorf("subject diff = %+v", comparison.Subject)
	}
}

func TestVocabularyByID(t *testing.T) {
	env := newTestEnv(t)
	env.store.vocabularies = []vocabulary.Vocabulary{
		{ID: "genre", DisplayName: "Genre"},
	}

	recorder := env.request(t, http.MethodGet, "/api/vocabularies/genre", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), `"Genre"`) {
		t.Errorf("body = %s", recorder.Body.String())
	}

	recorder = env.request(t, http.MethodGet, "/api/vocabularies/ghost", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestCompareWithCurrentRevision(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text", Headline: "Current take"})
	oldDoc, _ := json.Marshal(article.Article{Headline: "Old take"})
	if _, err := env.versions.Commit("a1", oldDoc, "jane", "create"); err != nil {
		t.Fatal(err)
	}

	recorder := env.request(t, http.MethodGet, "/api/archive/a1/compare/rev0001", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var comparison Comparison
	if err := json.Unmarshal(recorder.Body.Bytes(), &comparison); err != nil {
		t.Fatalf("decode comparison: %v", err)
	}
	if comparison.To != "current" {
		t.Errorf("to = %q", comparison.To)
	}
	if len(comparison.Fields) != 1 || comparison.Fields[0].Field != "headline" {
		t.Errorf("field changes = %+v", comparison.Fields)
	}
}

func TestAutosavePostWithDocumentID(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	recorder := env.request(t, http.MethodPost, "/api/archive_autosave",
		map[string]any{"_id": "a1", "headline": "Inline draft"}, nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if err := env.service.scheduler.Flush(context.Background(), "a1"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	recorder = env.request(t, http.MethodGet, "/api/archive_autosave/a1", nil, nil)
	if !strings.Contains(recorder.Body.String(), "Inline draft") {
		t.Errorf("body = %s", recorder.Body.String())
	}

	recorder = env.request(t, http.MethodPost, "/api/archive_autosave",
		map[string]any{"headline": "No id"}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestExportHTML(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text", Headline: "Flood warning issued"})

	recorder := env.request(t, http.MethodGet, "/api/archive/a1/export?format=html", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(recorder.Header().Get("Content-Disposition"), ".html") {
		t.Errorf("disposition = %q", recorder.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(recorder.Body.String(), "Flood warning issued") {
		t.Errorf("body missing headline")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t, article.Article{ID: "a1", Type: "text"})

	recorder := env.request(t, http.MethodGet, "/api/archive/a1/export?format=rtf", nil, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestPlacesAutocompleteDisabled(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.request(t, http.MethodGet, "/api/places_autocomplete?name=syd", nil, nil)
	if recorder.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", recorder.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.request(t, http.MethodGet, "/api/nope", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
}
