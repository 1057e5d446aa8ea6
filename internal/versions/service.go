// Package versions keeps the revision history of articles. Every article gets
// its own bare-bones git repository with a single main branch holding one
// article.json file; a save commits the new document on top.
package versions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const contentFile = "article.json"

// ErrNoHistory is returned when an article has no version history yet.
var ErrNoHistory = errors.New("no version history")

// ErrInvalidArticleID is returned for ids that cannot name a repository
// directory.
var ErrInvalidArticleID = errors.New("invalid article id")

// validArticleID rejects ids that would resolve outside the base directory
// once joined into a filesystem path.
func validArticleID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

// VersionInfo describes one stored revision.
type VersionInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages per-article history repositories under a base directory.
type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit stores a new revision of the article document, initializing the
// repository on first use.
func (s *Service) Commit(articleID string, doc json.RawMessage, author, message string) (VersionInfo, error) {
	if !validArticleID(articleID) {
		return VersionInfo{}, fmt.Errorf("%w: %q", ErrInvalidArticleID, articleID)
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(articleID)
	if err != nil {
		return VersionInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return VersionInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	var pretty any
	if err := json.Unmarshal(doc, &pretty); err != nil {
		return VersionInfo{}, fmt.Errorf("decode article doc: %w", err)
	}
	payload, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return VersionInfo{}, fmt.Errorf("marshal article doc: %w", err)
	}
	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, contentFile), append(payload, '\n'), 0o644); err != nil {
		return VersionInfo{}, fmt.Errorf("write %s: %w", contentFile, err)
	}

	if _, err := worktree.Add(contentFile); err != nil {
		return VersionInfo{}, fmt.Errorf("git add content: %w", err)
	}
	if message == "" {
		message = "Save article"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@newsdesk.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return VersionInfo{}, fmt.Errorf("commit article: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toVersionInfo(commitObj), nil
}

// History returns the most recent revisions of an article, newest first.
func (s *Service) History(articleID string, limit int) ([]VersionInfo, error) {
	if !validArticleID(articleID) {
		return nil, ErrNoHistory
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(articleID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, ErrNoHistory
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]VersionInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toVersionInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Get returns the article document stored at the given revision.
func (s *Service) Get(articleID, hash string) (json.RawMessage, VersionInfo, error) {
	if !validArticleID(articleID) {
		return nil, VersionInfo{}, ErrNoHistory
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(articleID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, VersionInfo{}, ErrNoHistory
	}
	if err != nil {
		return nil, VersionInfo{}, fmt.Errorf("open repo: %w", err)
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return nil, VersionInfo{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return nil, VersionInfo{}, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commitObj.File(contentFile)
	if err != nil {
		return nil, VersionInfo{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, VersionInfo{}, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, VersionInfo{}, fmt.Errorf("read content bytes: %w", err)
	}
	return json.RawMessage(raw), toVersionInfo(commitObj), nil
}

func (s *Service) openOrInit(articleID string) (*git.Repository, error) {
	path := s.repoPath(articleID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(articleID string) string {
	return filepath.Join(s.baseDir, articleID)
}

func (s *Service) articleLock(articleID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[articleID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[articleID] = lock
	return lock
}

func toVersionInfo(commitObj *object.Commit) VersionInfo {
	return VersionInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
