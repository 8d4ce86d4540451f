package rag

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

// Session is the state of one conversation: its history, the index questions are
// answered from, and how many documents the index was built from.
// It is mutated only by processing runs and by Retriever.Answer.
type Session struct {
	ID            string
	History       []models.Turn
	Store         *vectorstore.Store
	ProcessedDocs int
	mu            sync.Mutex
}

// NewSession returns an empty session with a fresh id.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Reset drops the history and the index.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = nil
	s.Store = nil
	s.ProcessedDocs = 0
}

// ClearHistory drops the history and keeps the index.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = nil
}

// Install sets the index the session answers from.
func (s *Session) Install(store *vectorstore.Store, processedDocs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store = store
	s.ProcessedDocs = processedDocs
}

// Ready reports whether the session has an index to answer from.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store != nil && s.Store.Len() > 0
}

// ProcessedCount returns how many documents the current index was built from.
func (s *Session) ProcessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ProcessedDocs
}

// Snapshot returns the current index and a copy of the history.
func (s *Session) Snapshot() (*vectorstore.Store, []models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store, append([]models.Turn(nil), s.History...)
}

func (s *Session) appendTurn(t models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, t)
}
