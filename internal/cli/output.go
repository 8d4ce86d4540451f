// Package cli provides CLI output formatting for banglarag.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/banglarag/internal/config"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/vectorstore"
	"github.com/hyperjump/banglarag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// NoContentMessage is shown when a processing run produced no chunk.
const NoContentMessage = "No processable content found. Scanned PDFs need the ocr_only strategy or a working Tesseract."

const (
	rule             = "─────────────────────────────────────────────────────────"
	hitPreviewLength = 300
)

// ParseFormat accepts "text" and "json".
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its cited sources.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n", answer.Text)
	if answer.Standalone != "" {
		fmt.Fprintf(w, "\n(searched as: %s)\n", answer.Standalone)
	}
	if len(answer.Sources) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nSources (%dms):\n", answer.QueryTime)
	for _, src := range answer.Sources {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s (%d chunks)\n", src.Source, len(src.Citations))
		for _, c := range src.Citations {
			fmt.Fprintf(w, "\n  [chunk %d] %s\n", c.ChunkIndex, indent(c.Preview))
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteSearchHits writes keyword lookup results.
func WriteSearchHits(w io.Writer, query string, hits []*models.SearchHit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []*models.SearchHit{}
		}
		return writeJSON(w, map[string]any{"query": query, "hits": hits})
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, h.Score)
		fmt.Fprintf(w, "Source: %s (chunk %d)\n", h.Chunk.Source, h.Chunk.ChunkIndex)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Chunk.Content, hitPreviewLength))
	}
	return nil
}

// WriteReport writes the summary of a processing run. showText includes each
// document's full extracted text instead of its preview.
func WriteReport(w io.Writer, report *ingest.Report, format OutputFormat, showText bool) error {
	if format == OutputJSON {
		if !showText {
			return writeJSON(w, report)
		}
		type withText struct {
			*ingest.DocumentReport
			Text string `json:"text"`
		}
		docs := make([]withText, len(report.Documents))
		for i, d := range report.Documents {
			docs[i] = withText{DocumentReport: d, Text: d.Text}
		}
		return writeJSON(w, struct {
			*ingest.Report
			Documents []withText `json:"documents"`
		}{report, docs})
	}
	for _, d := range report.Documents {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s: %d pages via %s, %d characters, %d chunks\n", d.Name, d.Pages, methodLabel(string(d.Method)), d.Characters, d.Chunks)
		text := d.Preview
		if showText {
			text = d.Text
		}
		if strings.TrimSpace(text) != "" {
			fmt.Fprintf(w, "\n%s\n", text)
		}
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Processed %d of %d documents into %d chunks", report.ProcessedDocs, len(report.Documents), report.Chunks)
	if b := report.Build; b != nil {
		fmt.Fprintf(w, " (%d indexed, %d of %d batches failed)", b.Indexed, b.FailedBatches, b.Batches)
	}
	fmt.Fprintf(w, " in %s\n", report.Duration.Round(time.Millisecond))
	return nil
}

// Status is what the status command reports.
type Status struct {
	Configured bool                  `json:"configured"`
	Services   []config.ServiceCheck `json:"services"`
	IndexPath  string                `json:"index_path"`
	Index      *vectorstore.Info     `json:"index,omitempty"`
}

// WriteStatus writes the configuration check and index information.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintln(w, "Azure OpenAI:")
	for _, s := range st.Services {
		if s.OK() {
			fmt.Fprintf(w, "  ✓ %s\n", s.Service)
		} else {
			fmt.Fprintf(w, "  ✗ %s (missing %s)\n", s.Service, strings.Join(s.Missing, ", "))
		}
	}
	fmt.Fprintf(w, "Index: %s\n", st.IndexPath)
	if st.Index == nil {
		fmt.Fprintln(w, "  not built")
		return nil
	}
	fmt.Fprintf(w, "  Chunks:     %d\n", st.Index.Chunks)
	fmt.Fprintf(w, "  Sources:    %d\n", st.Index.Sources)
	fmt.Fprintf(w, "  Dimensions: %d\n", st.Index.Dimensions)
	if st.Index.EmbeddingModel != "" {
		fmt.Fprintf(w, "  Model:      %s\n", st.Index.EmbeddingModel)
	}
	if !st.Index.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  Built:      %s\n", st.Index.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "  Disk usage: %s\n", FormatBytes(st.Index.SizeBytes))
	names := make([]string, 0, len(st.Index.Parts))
	for name := range st.Index.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %-14s %s\n", name, FormatBytes(st.Index.Parts[name]))
	}
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func methodLabel(m string) string {
	if m == "" {
		return "nothing"
	}
	return m
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n  ")
}
