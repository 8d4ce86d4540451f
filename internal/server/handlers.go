package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/config"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/keyword"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100

	msgNoContent = "No processable content found in the uploaded documents"
)

type sessionResponse struct {
	ID            string        `json:"id"`
	Ready         bool          `json:"ready"`
	ProcessedDocs int           `json:"processed_docs"`
	Chunks        int           `json:"chunks"`
	History       []models.Turn `json:"history"`
}

func newSessionResponse(sess *rag.Session) sessionResponse {
	store, history := sess.Snapshot()
	resp := sessionResponse{ID: sess.ID, Ready: sess.Ready(), History: history}
	if store != nil {
		resp.Chunks = store.Len()
	}
	resp.ProcessedDocs = sess.ProcessedCount()
	if resp.History == nil {
		resp.History = []models.Turn{}
	}
	return resp
}

type processResponse struct {
	Session  sessionResponse `json:"session"`
	Report   *ingest.Report  `json:"report,omitempty"`
	Notices  []notify.Notice `json:"notices"`
	Warnings []string        `json:"warnings"`
	Error    string          `json:"error,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
}

type statusResponse struct {
	Configured bool                  `json:"configured"`
	Services   []config.ServiceCheck `json:"services"`
	Index      *vectorstore.Info     `json:"index,omitempty"`
	Sessions   int                   `json:"sessions"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := rag.NewSession()
	if s.loader != nil {
		if store := s.loader.Load(r.Context()); store != nil {
			sess.Install(store, store.Sources())
			s.logger.Debug("session loaded persisted index", zap.String("session", sess.ID), zap.Int("chunks", store.Len()))
		}
	}
	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessionsMu.Unlock()
	s.respondJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.sessionsMu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.sessionsMu.Unlock()
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	sess.ClearHistory()
	s.respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleProcessDocuments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if !s.requireConfigured(w) {
		return
	}
	maxBytes := int64(s.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	strategy, err := extract.ParseStrategy(firstNonEmpty(r.FormValue("strategy"), s.config.Extraction.Strategy))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := readDocuments(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.processMu.Lock()
	defer s.processMu.Unlock()

	rec := &notify.Recorder{}
	s.logger.Info("processing documents", zap.String("session", sess.ID), zap.Int("documents", len(docs)), zap.String("strategy", string(strategy)))
	report, err := s.processor.Run(r.Context(), sess, docs, strategy, notify.WithLogger(rec, s.logger))
	resp := processResponse{
		Session:  newSessionResponse(sess),
		Report:   report,
		Notices:  rec.Notices(),
		Warnings: rec.Warnings(),
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	switch {
	case errors.Is(err, ingest.ErrNoContent):
		resp.Error = msgNoContent
		s.respondJSON(w, http.StatusUnprocessableEntity, resp)
	case err != nil:
		s.logger.Error("processing failed", zap.String("session", sess.ID), zap.Error(err))
		resp.Error = err.Error()
		s.respondJSON(w, http.StatusInternalServerError, resp)
	default:
		s.respondJSON(w, http.StatusOK, resp)
	}
}

func readDocuments(r *http.Request) ([]ingest.Document, error) {
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, errors.New("no files uploaded")
	}
	docs := make([]ingest.Document, 0, len(files))
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			return nil, fmt.Errorf("%s is not a PDF", name)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		docs = append(docs, ingest.Document{Name: name, Content: content})
	}
	return docs, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if !s.requireConfigured(w) {
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("session", sess.ID), zap.String("question", req.Question))
	answer, err := s.answerer.Answer(r.Context(), sess, req.Question)
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrNotReady):
		s.respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("answer failed", zap.String("session", sess.ID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, answer)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxSearchLimit)
	}
	opts := &keyword.SearchOptions{
		FuzzyEnabled: r.URL.Query().Get("fuzzy") == "true",
		Source:       r.URL.Query().Get("source"),
	}
	if v := r.URL.Query().Get("phrase_boost"); v != "" {
		boost, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid phrase_boost")
			return
		}
		opts.PhraseBoost = boost
	}
	if v := r.URL.Query().Get("fuzziness"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid fuzziness")
			return
		}
		opts.Fuzziness = n
	}
	if err := opts.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	hits, err := vectorstore.KeywordSearch(r.Context(), s.indexPath(), q, limit, opts)
	if errors.Is(err, vectorstore.ErrIndexNotFound) {
		s.respondError(w, http.StatusNotFound, "no persisted index; process documents first")
		return
	}
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hits == nil {
		hits = []*models.SearchHit{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "hits": hits})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Configured: s.config.Validate() == nil,
		Services:   s.config.Check(),
	}
	s.sessionsMu.RLock()
	resp.Sessions = len(s.sessions)
	s.sessionsMu.RUnlock()
	if info, err := vectorstore.Stat(r.Context(), s.indexPath()); err == nil {
		resp.Index = info
	} else if !errors.Is(err, vectorstore.ErrIndexNotFound) {
		s.logger.Warn("status: index stat failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireConfigured answers 503 with the missing settings when Azure is not configured.
func (s *Server) requireConfigured(w http.ResponseWriter) bool {
	if err := s.config.Validate(); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":   err.Error(),
			"missing": s.config.MissingSettings(),
		})
		return false
	}
	return true
}

func (s *Server) indexPath() string {
	if s.loader != nil {
		return s.loader.Path()
	}
	return s.config.Storage.IndexPath()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
