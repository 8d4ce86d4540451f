package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/cli"
	"github.com/hyperjump/banglarag/internal/config"
	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, name := range []string{
		config.EnvEndpoint, config.EnvAPIKey, config.EnvChatDeployment, config.EnvChatAPIVersion,
		config.EnvEmbeddingDeployment, config.EnvEmbeddingAPIVersion, config.EnvIndexPath, config.EnvDebug,
	} {
		t.Setenv(name, "")
	}
	return dir
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"অনুপম"}, "অনুপম"},
		{"multiple words", []string{"অনুপমের", "মামা"}, "অনুপমের মামা"},
		{"single quoted phrase", []string{"অনুপমের মামা"}, "অনুপমের মামা"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := isolateEnv(t)

	t.Run("defaults when no file exists", func(t *testing.T) {
		cfg, path, err := loadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		if path != "" {
			t.Errorf("path = %q, want empty", path)
		}
		if cfg.Chunking.ChunkSize != 1500 {
			t.Errorf("defaults not applied: %+v", cfg.Chunking)
		}
	})

	t.Run("config.yaml in the working directory", func(t *testing.T) {
		p := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(p, []byte("server:\n  port: 9100\n"), 0600); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(p)
		cfg, path, err := loadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != 9100 || path != p {
			t.Errorf("port = %d path = %s", cfg.Server.Port, path)
		}
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "Aparichita.PDF")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}
	docs, err := readDocuments([]string{pdf})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name != "Aparichita.PDF" || string(docs[0].Content) != "%PDF-1.4" {
		t.Errorf("docs = %+v", docs)
	}
	if _, err := readDocuments([]string{filepath.Join(dir, "notes.txt")}); err == nil {
		t.Error("non-PDF should be rejected")
	}
	if _, err := readDocuments([]string{filepath.Join(dir, "gone.pdf")}); err == nil {
		t.Error("missing file should be an error")
	}
}

type scriptedAnswerer struct {
	questions []string
}

func (s *scriptedAnswerer) Answer(ctx context.Context, session *rag.Session, question string) (*models.Answer, error) {
	s.questions = append(s.questions, question)
	if question == "fail" {
		return nil, errors.New("service unavailable")
	}
	return &models.Answer{Question: question, Text: "উত্তর: " + question}, nil
}

func TestRunChat(t *testing.T) {
	a := &scriptedAnswerer{}
	session := rag.NewSession()
	session.History = []models.Turn{{Question: "আগের", Answer: "প্রশ্ন"}}
	in := strings.NewReader("প্রথম প্রশ্ন\n\nfail\n/reset\nদ্বিতীয়\n/exit\nnever\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), in, &out, a, session, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	want := []string{"প্রথম প্রশ্ন", "fail", "দ্বিতীয়"}
	if strings.Join(a.questions, "|") != strings.Join(want, "|") {
		t.Errorf("questions = %v, want %v", a.questions, want)
	}
	s := out.String()
	for _, w := range []string{"উত্তর: প্রথম প্রশ্ন", "error: service unavailable", "History cleared.", "উত্তর: দ্বিতীয়"} {
		if !strings.Contains(s, w) {
			t.Errorf("output missing %q:\n%s", w, s)
		}
	}
	if len(session.History) != 0 {
		t.Errorf("/reset should clear history, got %v", session.History)
	}
}

func TestRunChat_EOF(t *testing.T) {
	a := &scriptedAnswerer{}
	var out bytes.Buffer
	if err := runChat(context.Background(), strings.NewReader("এক"), &out, a, rag.NewSession(), cli.OutputJSON); err != nil {
		t.Fatal(err)
	}
	if len(a.questions) != 1 {
		t.Errorf("questions = %v", a.questions)
	}
	if strings.Contains(out.String(), "> ") {
		t.Error("json output should not print prompts")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"process", "ask", "chat", "extract", "search", "status", "serve", "watch", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("missing subcommand %s", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "banglarag version dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestStatusCommand(t *testing.T) {
	dir := isolateEnv(t)
	indexDir := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "banglarag.yaml")
	if err := os.WriteFile(cfgPath, []byte("storage:\n  index_dir: "+indexDir+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	run := func() string {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"status", "--config", cfgPath})
		if err := root.Execute(); err != nil {
			t.Fatal(err)
		}
		return out.String()
	}

	out := run()
	if !strings.Contains(out, "✗ embedding") || !strings.Contains(out, "not built") {
		t.Errorf("unexpected status output:\n%s", out)
	}

	store := vectorstore.New(embedding.NewMockEmbedder(8))
	chunks := []*models.Chunk{{ChunkID: "c0", Source: "a.pdf", Content: "অনুপমের মামা"}}
	if err := store.AddChunks(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), filepath.Join(indexDir, "faiss_index")); err != nil {
		t.Fatal(err)
	}
	if out := run(); !strings.Contains(out, "Chunks:     1") {
		t.Errorf("status should report the persisted index:\n%s", out)
	}
}

func TestProcessCommand_FailsClosed(t *testing.T) {
	isolateEnv(t)
	root := newRootCmd()
	var stderr bytes.Buffer
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&stderr)
	root.SetArgs([]string{"process", "a.pdf"})
	err := root.Execute()
	if !errors.Is(err, config.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	for _, want := range []string{"Azure OpenAI is not configured", config.EnvAPIKey, config.EnvEndpoint} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stderr should mention %q:\n%s", want, stderr.String())
		}
	}
}

func TestInitCommand(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvAPIKey, "secret-key")
	t.Setenv(config.EnvEndpoint, "https://example.openai.azure.com")
	cfgPath := filepath.Join(dir, "conf", "banglarag.yaml")
	run := func(args ...string) error {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append([]string{"init", "--config", cfgPath}, args...))
		return root.Execute()
	}

	if err := run(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-key") {
		t.Error("the API key must not be written")
	}
	if !strings.Contains(string(data), "https://example.openai.azure.com") {
		t.Errorf("endpoint from the environment should be written:\n%s", data)
	}

	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvEndpoint, "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.ChunkSize != config.Default().Chunking.ChunkSize {
		t.Errorf("chunk_size = %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Retrieval.Lambda == nil || *cfg.Retrieval.Lambda != 0.6 {
		t.Errorf("lambda = %v", cfg.Retrieval.Lambda)
	}

	if err := run(); err == nil {
		t.Error("init should refuse to overwrite an existing file")
	}
	if err := run("--force"); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}

type countingRunner struct {
	runs  int
	names []string
	err   error
}

func (r *countingRunner) Run(ctx context.Context, session *rag.Session, docs []ingest.Document, strategy extract.Strategy, n notify.Notifier) (*ingest.Report, error) {
	r.runs++
	for _, d := range docs {
		r.names = append(r.names, d.Name)
	}
	return &ingest.Report{ProcessedDocs: len(docs)}, r.err
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(a, []byte("%PDF"), 0600); err != nil {
		t.Fatal(err)
	}
	var stderr bytes.Buffer
	e := &env{cfg: config.Default(), logger: zap.NewNop(), format: cli.OutputText, stderr: &stderr}
	r := &countingRunner{}
	var out bytes.Buffer

	processDirectory(context.Background(), &out, e, r, nil, extract.DirectWithOCRFallback)
	if r.runs != 0 {
		t.Error("an empty directory should not start a run")
	}

	processDirectory(context.Background(), &out, e, r, []string{a}, extract.DirectWithOCRFallback)
	if r.runs != 1 || len(r.names) != 1 || r.names[0] != "a.pdf" {
		t.Errorf("runs = %d names = %v", r.runs, r.names)
	}
	if !strings.Contains(out.String(), "Processed 1 of 0 documents") {
		t.Errorf("report not written:\n%s", out.String())
	}

	r.err = ingest.ErrNoContent
	processDirectory(context.Background(), &out, e, r, []string{a}, extract.DirectWithOCRFallback)
	if r.runs != 2 {
		t.Errorf("runs = %d", r.runs)
	}
	if !strings.Contains(stderr.String(), cli.NoContentMessage) {
		t.Errorf("a run without content should warn on stderr:\n%s", stderr.String())
	}
}

func TestSearchCommand_Keyword(t *testing.T) {
	dir := isolateEnv(t)
	indexDir := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "banglarag.yaml")
	if err := os.WriteFile(cfgPath, []byte("storage:\n  index_dir: "+indexDir+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	run := func(args ...string) (string, error) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append([]string{"search", "--config", cfgPath}, args...))
		err := root.Execute()
		return out.String(), err
	}

	if _, err := run("ডাক্তার"); !errors.Is(err, errNoIndex) {
		t.Errorf("expected errNoIndex, got %v", err)
	}

	store := vectorstore.New(embedding.NewMockEmbedder(8))
	chunks := []*models.Chunk{
		{ChunkID: "c0", Source: "a.pdf", Content: "অনুপমের মামা"},
		{ChunkID: "c1", Source: "a.pdf", ChunkIndex: 1, Content: "শম্ভুনাথ সেন ডাক্তার"},
	}
	if err := store.AddChunks(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), filepath.Join(indexDir, "faiss_index")); err != nil {
		t.Fatal(err)
	}
	out, err := run("ডাক্তার")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Found 1 results") || !strings.Contains(out, "Source: a.pdf (chunk 1)") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = run("--fuzzy", "--fuzziness", "2", "--phrase-boost", "3", "ডাক্তার")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Source: a.pdf (chunk 1)") {
		t.Errorf("tuned lookup lost the hit:\n%s", out)
	}
	if _, err := run("--fuzzy", "--fuzziness", "3", "ডাক্তার"); err == nil {
		t.Error("expected an error for fuzziness 3")
	}

	if _, err := run("--semantic-weight", "1", "ডাক্তার"); !errors.Is(err, config.ErrNotConfigured) {
		t.Errorf("semantic lookup should fail closed, got %v", err)
	}
}
