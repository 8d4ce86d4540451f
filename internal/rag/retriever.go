// Package rag answers questions from a session's index under a fixed answering policy.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/llm"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/pkg/utils"
)

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNotReady is returned when the session has no index.
	ErrNotReady = errors.New("no documents processed")
)

// Retrieval defaults.
const (
	DefaultK             = 50
	DefaultFetchK        = 100
	DefaultLambda        = 0.6
	DefaultPreviewLength = 400
)

// Options tunes retrieval. Zero values take the defaults.
type Options struct {
	K      int
	FetchK int
	// Lambda weighs relevance against diversity: 1 is relevance only, 0 diversity only.
	// nil takes DefaultLambda; values outside [0, 1] are clamped.
	Lambda        *float64
	PreviewLength int
	// CondenseQuestion rewrites follow-up questions into standalone ones before retrieval.
	CondenseQuestion bool
}

func (o Options) withDefaults() Options {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.FetchK <= 0 {
		o.FetchK = DefaultFetchK
	}
	lambda := DefaultLambda
	if o.Lambda != nil {
		lambda = min(max(*o.Lambda, 0), 1)
	}
	o.Lambda = &lambda
	if o.PreviewLength <= 0 {
		o.PreviewLength = DefaultPreviewLength
	}
	return o
}

// Retriever retrieves context by maximal marginal relevance and generates the answer.
type Retriever struct {
	generator llm.Generator
	opts      Options
	logger    *zap.Logger
}

// NewRetriever returns a retriever that generates answers with g.
func NewRetriever(g llm.Generator, opts Options, logger *zap.Logger) *Retriever {
	return &Retriever{generator: g, opts: opts.withDefaults(), logger: utils.OrNop(logger)}
}

// Answer answers question from the session's index and appends the turn to its history.
// On error the session is left unchanged.
func (r *Retriever) Answer(ctx context.Context, session *Session, question string) (*models.Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	store, history := session.Snapshot()
	if store == nil || store.Len() == 0 {
		return nil, ErrNotReady
	}

	query := question
	standalone := ""
	if r.opts.CondenseQuestion && len(history) > 0 {
		rewritten, err := r.generator.Generate(ctx, CondensePrompt(history, question))
		if err != nil {
			return nil, fmt.Errorf("failed to condense question: %w", err)
		}
		if rewritten = strings.TrimSpace(rewritten); rewritten != "" {
			query = rewritten
			if rewritten != question {
				standalone = rewritten
			}
		}
	}

	hits, err := store.MaxMarginalRelevanceSearch(ctx, query, r.opts.K, r.opts.FetchK, *r.opts.Lambda)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	r.logger.Debug("retrieved context", zap.String("session", session.ID), zap.Int("chunks", len(hits)))

	text, err := r.generator.Generate(ctx, BuildPrompt(hits, history, question))
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}
	text = strings.TrimSpace(text)
	session.appendTurn(models.Turn{Question: question, Answer: text})

	return &models.Answer{
		Question:   question,
		Text:       text,
		Sources:    GroupSources(hits, r.opts.PreviewLength),
		Standalone: standalone,
		QueryTime:  time.Since(start).Milliseconds(),
	}, nil
}

// GroupSources groups hits by source document in order of first appearance and
// truncates each chunk to a preview of previewLen characters.
func GroupSources(hits []*models.SearchHit, previewLen int) []*models.CitedSource {
	var out []*models.CitedSource
	bySource := make(map[string]*models.CitedSource)
	for _, h := range hits {
		c := h.Chunk
		src, ok := bySource[c.Source]
		if !ok {
			src = &models.CitedSource{Source: c.Source}
			bySource[c.Source] = src
			out = append(out, src)
		}
		src.Citations = append(src.Citations, &models.Citation{
			ChunkID:    c.ChunkID,
			ChunkIndex: c.ChunkIndex,
			Preview:    utils.Truncate(c.Content, previewLen),
		})
	}
	return out
}
