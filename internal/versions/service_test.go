package versions

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommitAndHistory(t *testing.T) {
	svc := New(t.TempDir())

	v1, err := svc.Commit("article-1", json.RawMessage(`{"headline":"first"}`), "jane", "Save article")
	if err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}
	v2, err := svc.Commit("article-1", json.RawMessage(`{"headline":"second"}`), "jane", "Save article")
	if err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}
	if v1.Hash == v2.Hash {
		t.Error("expected distinct revision hashes")
	}

	history, err := svc.History("article-1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Hash != v2.Hash {
		t.Errorf("newest revision = %s, want %s", history[0].Hash, v2.Hash)
	}
	if history[0].Author != "jane" {
		t.Errorf("author = %s", history[0].Author)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	for i := 0; i < 5; i++ {
		doc := json.RawMessage(`{"n":` + string(rune('0'+i)) + `}`)
		if _, err := svc.Commit("article-1", doc, "jane", "Save article"); err != nil {
			t.Fatalf("Commit %d failed: %v", i, err)
		}
	}
	history, err := svc.History("article-1", 3)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history length = %d, want 3", len(history))
	}
}

func TestGetRevision(t *testing.T) {
	svc := New(t.TempDir())

	v1, err := svc.Commit("article-1", json.RawMessage(`{"headline":"original"}`), "jane", "Save article")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := svc.Commit("article-1", json.RawMessage(`{"headline":"edited"}`), "jane", "Save article"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	doc, info, err := svc.Get("article-1", v1.Hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if info.Hash != v1.Hash {
		t.Errorf("info.Hash = %s, want %s", info.Hash, v1.Hash)
	}
	if !strings.Contains(string(doc), "original") {
		t.Errorf("revision doc = %s, want original headline", doc)
	}
}

func TestHistoryOfUnknownArticle(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.History("missing", 10); !errors.Is(err, ErrNoHistory) {
		t.Errorf("err = %v, want ErrNoHistory", err)
	}
}

func TestRejectsPathEscapingArticleIDs(t *testing.T) {
	base := t.TempDir()
	svc := New(base)

	for _, id := range []string{"..", ".", "", "../escape", "a/b", `a\b`} {
		if _, err := svc.Commit(id, json.RawMessage(`{}`), "jane", ""); !errors.Is(err, ErrInvalidArticleID) {
			t.Errorf("Commit(%q) err = %v, want ErrInvalidArticleID", id, err)
		}
		if _, err := svc.History(id, 10); !errors.Is(err, ErrNoHistory) {
			t.Errorf("History(%q) err = %v, want ErrNoHistory", id, err)
		}
		if _, _, err := svc.Get(id, "abc1234"); !errors.Is(err, ErrNoHistory) {
			t.Errorf("Get(%q) err = %v, want ErrNoHistory", id, err)
		}
	}

	// Nothing escaped the base directory.
	if _, err := os.Stat(filepath.Join(base, "..", "escape")); !os.IsNotExist(err) {
		t.Error("repository created outside the base directory")
	}
}

func TestRepositoriesAreIsolated(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Commit("article-1", json.RawMessage(`{"headline":"a"}`), "jane", ""); err != nil {
		t.Fatalf("Commit article-1 failed: %v", err)
	}
	if _, err := svc.Commit("article-2", json.RawMessage(`{"headline":"b"}`), "sam", ""); err != nil {
		t.Fatalf("Commit article-2 failed: %v", err)
	}

	h1, err := svc.History("article-1", 10)
	if err != nil {
		t.Fatalf("History article-1 failed: %v", err)
	}
	if len(h1) != 1 {
		t.Errorf("article-1 history length = %d, want 1", len(h1))
	}
}
