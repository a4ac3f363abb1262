package models

import (
	"context"
	"errors"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicMaxTokens = 1024
	// charsPerToken is a rough English average used to size replies.
	charsPerToken = 3
	minMaxTokens  = 64
)

// AnthropicLLM summarizes through Anthropic's Messages API, either in one
// request or as a server-sent event stream.
type AnthropicLLM struct {
	Client       *anthropic.Client
	Model        string
	MaxTokens    int
	PromptPrefix string
}

// NewAnthropicLLM constructs a client keyed by ANTHROPIC_API_KEY. Extra
// request options are applied after the key, so they may override it.
func NewAnthropicLLM(model, promptPrefix string, opts ...anthropicopt.RequestOption) *AnthropicLLM {
	opts = append([]anthropicopt.RequestOption{anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY"))}, opts...)
	cl := anthropic.NewClient(opts...)
	return &AnthropicLLM{
		Client:       &cl,
		Model:        model,
		MaxTokens:    defaultAnthropicMaxTokens,
		PromptPrefix: promptPrefix,
	}
}

// SetSummaryBudget sizes MaxTokens so a reply of maxChars characters fits.
func (a *AnthropicLLM) SetSummaryBudget(maxChars int) {
	a.MaxTokens = MaxTokensForChars(maxChars)
}

func (a *AnthropicLLM) params(prompt string) anthropic.MessageNewParams {
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(withPrefix(a.PromptPrefix, prompt))),
		},
	}
}

// Generate returns the concatenated text blocks of a single reply.
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (any, error) {
	msg, err := a.Client.Messages.New(ctx, a.params(prompt))
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return nil, errors.New("anthropic: reply has no text")
	}
	return b.String(), nil
}

// GenerateStream forwards text deltas from the streaming Messages API.
func (a *AnthropicLLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	stream := a.Client.Messages.NewStreaming(ctx, a.params(prompt))

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		var sb strings.Builder
		for stream.Next() {
			ev, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			td, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok || td.Text == "" {
				continue
			}
			sb.WriteString(td.Text)
			ch <- StreamChunk{Delta: td.Text}
		}
		ch <- StreamChunk{Done: true, FullText: sb.String(), Err: stream.Err()}
	}()
	return ch, nil
}

// MaxTokensForChars converts a summary limit in characters to a reply token
// budget with some headroom for list markup.
func MaxTokensForChars(maxChars int) int {
	if maxChars <= 0 {
		return defaultAnthropicMaxTokens
	}
	n := maxChars/charsPerToken + minMaxTokens
	if n < minMaxTokens {
		return minMaxTokens
	}
	return n
}

var (
	_ Agent          = (*AnthropicLLM)(nil)
	_ StreamingAgent = (*AnthropicLLM)(nil)
)
