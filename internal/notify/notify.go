// Package notify carries user-facing progress and warning messages out of long operations.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarn     Level = "warning"
	LevelProgress Level = "progress"
)

// Notifier receives notices meant for the person running an operation.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Progress(stage string, current, total int)
}

// Notice is a recorded message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Nop discards every notice.
type Nop struct{}

func (Nop) Info(string)               {}
func (Nop) Warn(string)               {}
func (Nop) Progress(string, int, int) {}

// Writer prints notices as lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Info(msg string) { n.printf("%s\n", msg) }

func (n *Writer) Warn(msg string) { n.printf("warning: %s\n", msg) }

func (n *Writer) Progress(stage string, current, total int) {
	n.printf("%s (%d/%d)\n", stage, current, total)
}

func (n *Writer) printf(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, format, args...)
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Info(msg string) { r.add(LevelInfo, msg) }

func (r *Recorder) Warn(msg string) { r.add(LevelWarn, msg) }

func (r *Recorder) Progress(stage string, current, total int) {
	r.add(LevelProgress, fmt.Sprintf("%s (%d/%d)", stage, current, total))
}

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg})
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Warnings returns the messages of recorded warnings.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.Level == LevelWarn {
			out = append(out, n.Message)
		}
	}
	return out
}

// Logged forwards notices to next and mirrors them to logger.
type Logged struct {
	next   Notifier
	logger *zap.Logger
}

// WithLogger wraps next so every notice is also logged.
func WithLogger(next Notifier, logger *zap.Logger) Notifier {
	if next == nil {
		next = Nop{}
	}
	if logger == nil {
		return next
	}
	return &Logged{next: next, logger: logger}
}

func (l *Logged) Info(msg string) {
	l.logger.Info(msg)
	l.next.Info(msg)
}

func (l *Logged) Warn(msg string) {
	l.logger.Warn(msg)
	l.next.Warn(msg)
}

func (l *Logged) Progress(stage string, current, total int) {
	l.logger.Debug("progress", zap.String("stage", stage), zap.Int("current", current), zap.Int("total", total))
	l.next.Progress(stage, current, total)
}

// OrNop returns n, or Nop when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}
