package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultTesseractPath is where Homebrew installs tesseract on Apple silicon.
const DefaultTesseractPath = "/opt/homebrew/bin/tesseract"

// TesseractCLI runs the tesseract binary, feeding the image on stdin.
type TesseractCLI struct {
	Path string
}

// NewTesseractCLI returns an engine for the binary at path.
func NewTesseractCLI(path string) *TesseractCLI {
	if path == "" {
		path = DefaultTesseractPath
	}
	return &TesseractCLI{Path: path}
}

// Name implements Engine.
func (t *TesseractCLI) Name() string { return "tesseract" }

// Available reports whether the binary can be found.
func (t *TesseractCLI) Available() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

// Recognize implements Engine.
func (t *TesseractCLI) Recognize(ctx context.Context, png []byte, config string) (string, error) {
	args := append([]string{"stdin", "stdout"}, strings.Fields(config)...)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Stdin = bytes.NewReader(png)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
