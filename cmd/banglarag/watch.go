package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/cli"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/watcher"
)

var pdfExtensions = []string{".pdf"}

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		strategy string
		settle   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [flags] <dir>",
		Short: "Rebuild the index from a directory of PDFs whenever it changes",
		Args:  cobra.ExactArgs(1),
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
			opts := []watcher.Option{watcher.WithLogger(e.componentLogger()), watcher.WithSettle(settle)}
			c, err := initializeComponents(e.cfg, e.componentLogger())
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := signalContext()
			defer cancel()
			dir := args[0]
			process := func(files []string) {
				processDirectory(ctx, cmd.OutOrStdout(), e, c.Pipeline, files, strat)
			}
			files, err := watcher.List(dir, pdfExtensions)
			if err != nil {
				return err
			}
			process(files)

			w := watcher.New(dir, pdfExtensions, process, opts...)
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			defer w.Stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for PDF changes (Ctrl+C to stop)\n", dir)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "extraction strategy: direct_with_ocr_fallback (direct) or ocr_only (ocr)")
	cmd.Flags().DurationVar(&settle, "settle", watcher.DefaultSettle, "quiet period before reprocessing")
	return cmd
}

// pipelineRunner is the part of ingest.Pipeline the watch loop uses.
type pipelineRunner interface {
	Run(ctx context.Context, session *rag.Session, docs []ingest.Document, strategy extract.Strategy, n notify.Notifier) (*ingest.Report, error)
}

// processDirectory runs one processing run over files. Errors are reported, not returned,
// so the watch keeps going.
func processDirectory(ctx context.Context, out io.Writer, e *env, p pipelineRunner, files []string, strategy extract.Strategy) {
	n := e.notifier()
	if len(files) == 0 {
		n.Warn("No PDF files to process")
		return
	}
	docs, err := readDocuments(files)
	if err != nil {
		n.Warn(err.Error())
		return
	}
	report, err := p.Run(ctx, rag.NewSession(), docs, strategy, n)
	if report != nil {
		_ = cli.WriteReport(out, report, e.format, false)
	}
	switch {
	case errors.Is(err, ingest.ErrNoContent):
		n.Warn(cli.NoContentMessage)
	case err != nil:
		e.logger.Error("processing failed", zap.Error(err))
		n.Warn(fmt.Sprintf("Processing failed: %v", err))
	}
}
