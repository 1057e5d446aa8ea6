package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/export"
	"newsdesk/api/internal/search"
	"newsdesk/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database":  map[string]any{"status": "ok"},
			"snapshots": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		if !s.service.SnapshotsReady(ctx) {
			// Autosave degrades to the relational store, so this never
			// flips readiness on its own.
			checks["snapshots"] = map[string]any{"status": "degraded"}
		}
		writeJSON(w, statusCode, map[string]any{"status": status, "checks": checks})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/vocabularies" {
		s.handleVocabularies(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/places_autocomplete" {
		s.handlePlacesAutocomplete(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/upload" {
		s.handleUpload(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/archive_autosave" {
		s.handleSaveAutosaveBody(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/archive" {
		s.handleListArticles(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/archive" {
		s.handleCreateArticle(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "assets" && r.Method == http.MethodGet {
		s.handleAssetURL(w, r, parts[2])
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "vocabularies" && r.Method == http.MethodGet {
		s.handleVocabulary(w, r, parts[2])
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "archive_autosave" {
		switch r.Method {
		case http.MethodGet:
			s.handleGetAutosave(w, r, parts[2])
		case http.MethodPost:
			s.handleSaveAutosave(w, r, parts[2])
		case http.MethodDelete:
			s.handleDiscardAutosave(w, r, parts[2])
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "archive" {
		articleID := parts[2]

		if len(parts) == 3 {
			switch r.Method {
			case http.MethodGet:
				s.handleGetArticle(w, r, articleID)
			case http.MethodPatch:
				s.handlePatchArticle(w, r, articleID)
			case http.MethodDelete:
				s.handleDeleteArticle(w, r, articleID)
			default:
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			}
			return
		}

		if len(parts) == 4 && parts[3] == "lock" && r.Method == http.MethodPost {
			s.handleLock(w, r, articleID)
			return
		}
		if len(parts) == 4 && parts[3] == "unlock" && r.Method == http.MethodPost {
			s.handleUnlock(w, r, articleID)
			return
		}
		if len(parts) == 4 && parts[3] == "profile" && r.Method == http.MethodGet {
			s.handleProfile(w, r, articleID)
			return
		}
		if len(parts) == 4 && parts[3] == "versions" && r.Method == http.MethodGet {
			s.handleHistory(w, r, articleID)
			return
		}
		if len(parts) == 5 && parts[3] == "versions" && r.Method == http.MethodGet {
			s.handleVersion(w, r, articleID, parts[4])
			return
		}
		if len(parts) == 4 && parts[3] == "compare" && r.Method == http.MethodPost {
			s.handleCompare(w, r, articleID)
			return
		}
		if len(parts) == 5 && parts[3] == "compare" && r.Method == http.MethodGet {
			s.handleCompareWithCurrent(w, r, articleID, parts[4])
			return
		}
		if len(parts) == 4 && parts[3] == "export" && r.Method == http.MethodGet {
			s.handleExport(w, r, articleID)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleGetArticle(w http.ResponseWriter, r *http.Request, articleID string) {
	art, err := s.service.GetArticle(r.Context(), articleID, authoringRequested(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("ETag", art.ETag)
	writeJSON(w, http.StatusOK, art)
}

func (s *HTTPServer) handlePatchArticle(w http.ResponseWriter, r *http.Request, articleID string) {
	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	art, err := s.service.PatchArticle(r.Context(), articleID, patch, ifMatch, authoringRequested(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("ETag", art.ETag)
	writeJSON(w, http.StatusOK, art)
}

func (s *HTTPServer) handleDeleteArticle(w http.ResponseWriter, r *http.Request, articleID string) {
	if err := s.service.DeleteArticle(r.Context(), articleID); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, map[string]any{})
}

func (s *HTTPServer) handleListArticles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	articles, err := s.service.ListArticles(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if articles == nil {
		articles = []article.Article{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"_items": articles})
}

func (s *HTTPServer) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var art article.Article
	if err := decodeBody(r, &art); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := s.service.CreateArticle(r.Context(), art)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("ETag", created.ETag)
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleLock(w http.ResponseWriter, r *http.Request, articleID string) {
	var input struct {
		User    string `json:"user"`
		Session string `json:"session"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if input.User == "" || input.Session == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "user and session are required", nil)
		return
	}
	art, err := s.service.Lock(r.Context(), articleID, input.User, input.Session)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (s *HTTPServer) handleUnlock(w http.ResponseWriter, r *http.Request, articleID string) {
	var input struct {
		Session string `json:"session"`
		Force   bool   `json:"force"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	art, err := s.service.Unlock(r.Context(), articleID, input.Session, input.Force)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (s *HTTPServer) handleGetAutosave(w http.ResponseWriter, r *http.Request, articleID string) {
	doc, err := s.service.GetAutosave(r.Context(), articleID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *HTTPServer) handleSaveAutosave(w http.ResponseWriter, r *http.Request, articleID string) {
	var doc json.RawMessage
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if len(doc) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "autosave body is required", nil)
		return
	}
	s.service.ScheduleAutosave(articleID, doc)
	writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": true})
}

// handleSaveAutosaveBody serves the legacy autosave endpoint where the
// article id travels inside the document as _id.
func (s *HTTPServer) handleSaveAutosaveBody(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	var ident struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(doc, &ident); err != nil || ident.ID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "autosave body must carry _id", nil)
		return
	}
	s.service.ScheduleAutosave(ident.ID, doc)
	writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": true, "_id": ident.ID})
}

func (s *HTTPServer) handleDiscardAutosave(w http.ResponseWriter, r *http.Request, articleID string) {
	if err := s.service.DiscardAutosave(r.Context(), articleID); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, map[string]any{})
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request, articleID string) {
	resolved, err := s.service.ResolveProfile(r.Context(), articleID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *HTTPServer) handleVocabulary(w http.ResponseWriter, r *http.Request, vocabularyID string) {
	voc, err := s.service.Vocabulary(r.Context(), vocabularyID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voc)
}

func (s *HTTPServer) handleVocabularies(w http.ResponseWriter, r *http.Request) {
	vocabularies, err := s.service.Vocabularies(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"_items": vocabularies})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{
		Text:          r.URL.Query().Get("q"),
		FilterProfile: r.URL.Query().Get("profile"),
		FilterState:   r.URL.Query().Get("state"),
		Limit:         queryInt(r, "limit", 25),
		Offset:        queryInt(r, "offset", 0),
	}
	response, err := s.service.Search(q)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request, articleID string) {
	limit := queryInt(r, "limit", 50)
	history, err := s.service.History(r.Context(), articleID, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"_items": history})
}

func (s *HTTPServer) handleVersion(w http.ResponseWriter, r *http.Request, articleID, hash string) {
	doc, info, err := s.service.Version(r.Context(), articleID, hash)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": info, "doc": doc})
}

func (s *HTTPServer) handleCompare(w http.ResponseWriter, r *http.Request, articleID string) {
	var input struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if input.From == "" || input.To == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "from and to revisions are required", nil)
		return
	}
	comparison, err := s.service.Compare(r.Context(), articleID, input.From, input.To)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (s *HTTPServer) handleCompareWithCurrent(w http.ResponseWriter, r *http.Request, articleID, ref string) {
	comparison, err := s.service.CompareWithCurrent(r.Context(), articleID, ref)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, articleID string) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatPDF
	}
	switch format {
	case export.FormatHTML, export.FormatPDF, export.FormatDOCX:
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "format must be html, pdf or docx", nil)
		return
	}
	result, err := s.service.Export(r.Context(), articleID, r.URL.Query().Get("version"), format)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handlePlacesAutocomplete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "name query is required", nil)
		return
	}
	suggestions, err := s.service.PlacesAutocomplete(r.Context(), name, r.URL.Query().Get("lang"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []article.Subject{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"_items": suggestions})
}

// maxUploadBytes caps multipart uploads at 100 MB.
const maxUploadBytes = 100 << 20

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "media file field is required", nil)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	asset, err := s.service.Upload(r.Context(), header.Filename, mimeType, header.Size, file)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *HTTPServer) handleAssetURL(w http.ResponseWriter, r *http.Request, assetID string) {
	asset, err := s.service.AssetURL(r.Context(), assetID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *HTTPServer) respondError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrETagMismatch) {
		return http.StatusPreconditionFailed, "ETAG_MISMATCH", "Document changed since it was read", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func authoringRequested(r *http.Request) bool {
	value := r.URL.Query().Get("authoring")
	return value == "1" || value == "true"
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, If-Match, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
