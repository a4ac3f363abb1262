package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for local testing without API calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Generate echoes the last non-empty line of the prompt behind the prefix.
func (d *DummyLLM) Generate(_ context.Context, prompt string) (any, error) {
	lines := strings.Split(prompt, "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if candidate != "" {
			last = candidate
			break
		}
	}
	if last == "" {
		last = "<empty prompt>"
	}
	return fmt.Sprintf("%s %s", d.Prefix, last), nil
}

// GenerateStream simulates streaming by splitting the response into word-level chunks.
func (d *DummyLLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	result, _ := d.Generate(ctx, prompt)
	text := TextOf(result)

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		words := strings.Fields(text)
		var sb strings.Builder
		for i, word := range words {
			if i > 0 {
				word = " " + word
			}
			sb.WriteString(word)
			select {
			case ch <- StreamChunk{Delta: word}:
			case <-ctx.Done():
				ch <- StreamChunk{Done: true, FullText: sb.String(), Err: ctx.Err()}
				return
			}
		}
		ch <- StreamChunk{Done: true, FullText: sb.String()}
	}()

	return ch, nil
}

var (
	_ Agent          = (*DummyLLM)(nil)
	_ StreamingAgent = (*DummyLLM)(nil)
)
