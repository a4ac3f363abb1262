package models

import (
	"context"
	"fmt"
	"strings"
)

// Agent is the single-shot call shape: one prompt in, one result out.
type Agent interface {
	Generate(context.Context, string) (any, error)
}

// StreamChunk is one increment of a streamed generation. The final chunk has
// Done set and carries FullText (and Err when the stream failed).
type StreamChunk struct {
	Delta    string
	Done     bool
	FullText string
	Err      error
}

// StreamingAgent yields the generation as a channel of chunks. The channel is
// closed after the Done chunk.
type StreamingAgent interface {
	GenerateStream(context.Context, string) (<-chan StreamChunk, error)
}

// Completer is the minimal call shape returning plain text.
type Completer interface {
	Complete(context.Context, string) (string, error)
}

// Budgeted is implemented by providers that size their reply from the
// summary limit.
type Budgeted interface {
	SetSummaryBudget(maxChars int)
}

// CompleterFunc adapts an ordinary function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// texter matches results exposing their text through a method.
type texter interface {
	Text() string
}

// TextOf converts a Generate result into text.
func TextOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case texter:
		return x.Text()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func withPrefix(prefix, prompt string) string {
	if strings.TrimSpace(prefix) == "" {
		return prompt
	}
	return prefix + "\n\n" + prompt
}
