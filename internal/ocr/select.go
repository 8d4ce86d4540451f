package ocr

import (
	"context"
	"errors"

	"github.com/hyperjump/banglarag/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoCandidates is returned when no candidate (including the fallback) produced text.
var ErrNoCandidates = errors.New("no recognition attempt succeeded")

// Candidate is one recognition attempt.
type Candidate struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// ScoreFunc rates a recognition result; higher is better.
type ScoreFunc func(text string) int

// TrimmedLen scores a result by its character count without surrounding whitespace.
func TrimmedLen(text string) int {
	return utils.TrimmedLen(text)
}

// Selection is the outcome of Select.
type Selection struct {
	Text         string
	Candidate    string
	Score        int
	UsedFallback bool
	Failed       int
}

// Selector runs candidates in rank order and keeps the best scoring result.
type Selector struct {
	Score    ScoreFunc
	MinScore int
	Logger   *zap.Logger
}

// Select tries every candidate; failures are skipped. The first candidate wins ties.
// When the best score is below MinScore, fallback (if not nil) runs once and replaces
// the best result if it scores higher.
func (s *Selector) Select(ctx context.Context, candidates []Candidate, fallback *Candidate) (Selection, error) {
	logger := utils.OrNop(s.Logger)
	score := s.Score
	if score == nil {
		score = TrimmedLen
	}

	var best Selection
	found := false
	for _, c := range candidates {
		text, err := c.Run(ctx)
		if err != nil {
			best.Failed++
			logger.Debug("recognition attempt failed", zap.String("candidate", c.Name), zap.Error(err))
			continue
		}
		sc := score(text)
		if !found || sc > best.Score {
			best.Text, best.Candidate, best.Score = text, c.Name, sc
			found = true
		}
	}

	if fallback != nil && (!found || best.Score < s.MinScore) {
		text, err := fallback.Run(ctx)
		if err != nil {
			best.Failed++
			logger.Debug("fallback attempt failed", zap.String("candidate", fallback.Name), zap.Error(err))
		} else if sc := score(text); !found || sc > best.Score {
			best.Text, best.Candidate, best.Score = text, fallback.Name, sc
			best.UsedFallback = true
			found = true
		}
	}

	if !found {
		return best, ErrNoCandidates
	}
	return best, nil
}
