package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/banglarag/internal/cli"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/rag"
)

// answerer is the part of rag.Retriever the chat loop uses.
type answerer interface {
	Answer(ctx context.Context, session *rag.Session, question string) (*models.Answer, error)
}

// runChat reads questions line by line until EOF, /exit or ctx is done.
// /reset clears the conversation history and keeps the index.
func runChat(ctx context.Context, in io.Reader, out io.Writer, a answerer, session *rag.Session, format cli.OutputFormat) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	prompt := func() {
		if format == cli.OutputText {
			fmt.Fprint(out, "> ")
		}
	}
	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/exit", "/quit":
			return nil
		case "/reset":
			session.ClearHistory()
			fmt.Fprintln(out, "History cleared.")
		default:
			answer, err := a.Answer(ctx, session, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			if err := cli.WriteAnswer(out, answer, format); err != nil {
				return err
			}
		}
		prompt()
	}
	return scanner.Err()
}
