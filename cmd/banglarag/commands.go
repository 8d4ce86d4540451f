package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/cli"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/keyword"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/search"
	"github.com/hyperjump/banglarag/internal/server"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

func newProcessCmd(root *rootOptions) *cobra.Command {
	var (
		strategy string
		chat     bool
		showText bool
	)
	cmd := &cobra.Command{
		Use:   "process [flags] <file.pdf>...",
		Short: "Extract, chunk and index PDF documents, replacing the current index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			if err := requireConfigured(e); err != nil {
				return err
			}
			strat, err := extract.ParseStrategy(firstNonEmpty(strategy, e.cfg.Extraction.Strategy))
			if err != nil {
				return err
			}
			docs, err := readDocuments(args)
			if err != nil {
				return err
			}
			c, err := initializeComponents(e.cfg, e.componentLogger())
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := signalContext()
			defer cancel()
			session := rag.NewSession()
			report, err := c.Pipeline.Run(ctx, session, docs, strat, e.notifier())
			if report != nil {
				if werr := cli.WriteReport(cmd.OutOrStdout(), report, e.format, showText); werr != nil {
					return werr
				}
			}
			if errors.Is(err, ingest.ErrNoContent) {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.NoContentMessage)
			}
			if err != nil {
				return err
			}
			if chat {
				return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), c.Retriever, session, e.format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "extraction strategy: direct_with_ocr_fallback (direct) or ocr_only (ocr)")
	cmd.Flags().BoolVar(&chat, "chat", false, "start an interactive chat after processing")
	cmd.Flags().BoolVar(&showText, "show-text", false, "print the full extracted text of every document")
	return cmd
}

func readDocuments(paths []string) ([]ingest.Document, error) {
	docs := make([]ingest.Document, 0, len(paths))
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".pdf") {
			return nil, fmt.Errorf("%s is not a PDF", p)
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, ingest.Document{Name: filepath.Base(p), Content: content})
	}
	return docs, nil
}

// loadSession wires the components and installs the persisted index in a new session.
func loadSession(ctx context.Context, e *env) (*Components, *rag.Session, error) {
	if err := requireConfigured(e); err != nil {
		return nil, nil, err
	}
	c, err := initializeComponents(e.cfg, e.componentLogger())
	if err != nil {
		return nil, nil, err
	}
	store := c.Builder.Load(ctx)
	if store == nil {
		c.Close()
		return nil, nil, fmt.Errorf("%w (looked in %s)", errNoIndex, c.Builder.Path())
	}
	session := rag.NewSession()
	session.Install(store, store.Sources())
	return c, session, nil
}

func newAskCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the persisted index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := buildQuery(args)
			if question == "" {
				return rag.ErrEmptyQuestion
			}
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			ctx, cancel := signalContext()
			defer cancel()
			c, session, err := loadSession(ctx, e)
			if err != nil {
				return err
			}
			defer c.Close()
			answer, err := c.Retriever.Answer(ctx, session, question)
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), answer, e.format)
		},
	}
}

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the persisted index (/reset clears history, /exit quits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			ctx, cancel := signalContext()
			defer cancel()
			c, session, err := loadSession(ctx, e)
			if err != nil {
				return err
			}
			defer c.Close()
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d chunks from %d documents.\n", session.Store.Len(), session.ProcessedCount())
			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), c.Retriever, session, e.format)
		},
	}
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "extract [flags] <file.pdf>",
		Short: "Print the normalized text of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			strat, err := extract.ParseStrategy(firstNonEmpty(strategy, e.cfg.Extraction.Strategy))
			if err != nil {
				return err
			}
			docs, err := readDocuments(args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			res := newExtractor(e.cfg, e.componentLogger()).Extract(ctx, docs[0].Name, docs[0].Content, strat, e.notifier())
			if strings.TrimSpace(res.Text) == "" {
				return fmt.Errorf("no text extracted from %s", docs[0].Name)
			}
			if e.format == cli.OutputJSON {
				return cli.WriteReport(cmd.OutOrStdout(), &ingest.Report{
					Documents:     []*ingest.DocumentReport{{Name: docs[0].Name, Method: res.Method, Pages: res.Pages, Text: res.Text}},
					ProcessedDocs: 1,
				}, e.format, true)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "extraction strategy: direct_with_ocr_fallback (direct) or ocr_only (ocr)")
	return cmd
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		limit          int
		fuzzy          bool
		source         string
		phraseBoost    float64
		fuzziness      int
		keywordWeight  float64
		semanticWeight float64
	)
	cmd := &cobra.Command{
		Use:   "search [flags] <query>",
		Short: "Look up chunks of the persisted index by keyword, meaning, or both",
		Long: `Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.

Keyword lookup needs no Azure settings. A --semantic-weight above 0 embeds the query
and fuses both scores, which needs the embedding deployment.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := buildQuery(args)
			if query == "" {
				return search.ErrEmptyQuery
			}
			kwOpts := &keyword.SearchOptions{
				PhraseBoost:  phraseBoost,
				FuzzyEnabled: fuzzy,
				Fuzziness:    fuzziness,
				Source:       source,
			}
			if err := kwOpts.Validate(); err != nil {
				return err
			}
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			ctx, cancel := signalContext()
			defer cancel()

			dir := e.cfg.Storage.IndexPath()
			engine := search.NewEngine(nil, dir)
			if semanticWeight > 0 {
				c, session, err := loadSession(ctx, e)
				if err != nil {
					return err
				}
				defer c.Close()
				engine = search.NewEngine(session.Store, c.Builder.Path())
			}
			resp, err := engine.Search(ctx, &search.Query{
				Text:           query,
				Limit:          limit,
				KeywordWeight:  keywordWeight,
				SemanticWeight: semanticWeight,
				Keyword:        kwOpts,
			})
			if errors.Is(err, vectorstore.ErrIndexNotFound) {
				return errNoIndex
			}
			if err != nil {
				return err
			}
			return cli.WriteSearchHits(cmd.OutOrStdout(), query, resp.Hits(), e.format)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "tolerate typos in keyword lookup")
	cmd.Flags().IntVar(&fuzziness, "fuzziness", 1, "maximum edits per term with --fuzzy (1 or 2)")
	cmd.Flags().Float64Var(&phraseBoost, "phrase-boost", 1, "score multiplier for chunks containing the query as a phrase (1 disables)")
	cmd.Flags().StringVar(&source, "source", "", "only search chunks of this document")
	cmd.Flags().Float64Var(&keywordWeight, "keyword-weight", 1, "weight of the keyword score (0 disables)")
	cmd.Flags().Float64Var(&semanticWeight, "semantic-weight", 0, "weight of the embedding similarity (0 disables)")
	return cmd
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configuration check and the persisted index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			st := &cli.Status{
				Configured: e.cfg.Validate() == nil,
				Services:   e.cfg.Check(),
				IndexPath:  e.cfg.Storage.IndexPath(),
			}
			info, err := vectorstore.Stat(cmd.Context(), st.IndexPath)
			switch {
			case err == nil:
				st.Index = info
			case !errors.Is(err, vectorstore.ErrIndexNotFound):
				e.logger.Warn("index stat failed", zap.Error(err))
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, e.format)
		},
	}
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			if host != "" {
				e.cfg.Server.Host = host
			}
			if port != 0 {
				e.cfg.Server.Port = port
			}

			var (
				processor server.Processor
				answerer  server.Answerer
				loader    server.IndexLoader
			)
			if err := e.cfg.Validate(); err != nil {
				e.logger.Warn("serving without Azure OpenAI; processing and asking will answer 503",
					zap.Strings("missing", e.cfg.MissingSettings()))
			} else {
				c, err := initializeComponents(e.cfg, e.logger)
				if err != nil {
					return err
				}
				defer c.Close()
				processor, answerer, loader = c.Pipeline, c.Retriever, c.Builder
			}

			srv := server.NewServer(processor, answerer, loader, e.cfg, e.logger)
			ctx, cancel := signalContext()
			defer cancel()
			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			e.logger.Info("Shutting down...")
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

// buildQuery joins args with spaces and trims the result.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
