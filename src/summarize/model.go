package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/go-compact/src/cache"
	"github.com/Protocol-Lattice/go-compact/src/log"
	"github.com/Protocol-Lattice/go-compact/src/models"
)

// Capability bundles the call shapes a model backend may offer. Shapes are
// tried in field order and nil fields are skipped.
type Capability struct {
	Agent     models.Agent
	Stream    models.StreamingAgent
	Completer models.Completer
}

// CapabilityOf collects every call shape v implements. It returns nil when v
// implements none of them.
func CapabilityOf(v any) *Capability {
	if v == nil {
		return nil
	}
	var c Capability
	if a, ok := v.(models.Agent); ok {
		c.Agent = a
	}
	if s, ok := v.(models.StreamingAgent); ok {
		c.Stream = s
	}
	if cp, ok := v.(models.Completer); ok {
		c.Completer = cp
	}
	if !c.Available() {
		return nil
	}
	return &c
}

// Available reports whether at least one call shape is set.
func (c *Capability) Available() bool {
	return c != nil && (c.Agent != nil || c.Stream != nil || c.Completer != nil)
}

// Source records where a summary came from.
type Source int

const (
	SourceEmpty Source = iota
	SourceCache
	SourceModel
	SourceDeterministic
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceModel:
		return "model"
	case SourceDeterministic:
		return "deterministic"
	default:
		return "empty"
	}
}

// Outcome is a summary together with its provenance.
type Outcome struct {
	Summary string
	Source  Source
}

var errEmptyResult = errors.New("summarize: empty model result")

// ModelSummarizer asks a model capability for a summary and falls back to
// Deterministic when the capability is absent or every shape fails.
type ModelSummarizer struct {
	cache        *cache.SummaryCache
	instructions string
	logger       log.Logger
}

// Option configures a ModelSummarizer.
type Option func(*ModelSummarizer)

// WithInstructions prepends instructions to every prompt.
func WithInstructions(instructions string) Option {
	return func(s *ModelSummarizer) { s.instructions = instructions }
}

// WithLogger overrides the logger.
func WithLogger(l log.Logger) Option {
	return func(s *ModelSummarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewModelSummarizer builds an adapter. A nil cache disables caching.
func NewModelSummarizer(c *cache.SummaryCache, opts ...Option) *ModelSummarizer {
	s := &ModelSummarizer{cache: c, logger: log.Default}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns a summary of text no matter how the capability behaves.
func (s *ModelSummarizer) Summarize(ctx context.Context, capability *Capability, text string, maxChars int, useCache bool) string {
	return s.SummarizeOutcome(ctx, capability, text, maxChars, useCache).Summary
}

// SummarizeOutcome is Summarize reporting whether the summary came from the
// cache, the model, or the deterministic fallback.
func (s *ModelSummarizer) SummarizeOutcome(ctx context.Context, capability *Capability, text string, maxChars int, useCache bool) Outcome {
	if text == "" {
		return Outcome{Source: SourceEmpty}
	}
	useCache = useCache && s.cache != nil
	if useCache {
		if cached, ok := s.cache.Get(text); ok {
			return Outcome{Summary: cached, Source: SourceCache}
		}
	}
	if !capability.Available() {
		return Outcome{Summary: Deterministic(text, maxChars), Source: SourceDeterministic}
	}

	prompt := BuildPrompt(s.instructions, text, maxChars)
	out := Outcome{Source: SourceModel}
	summary, err := s.callModel(ctx, capability, prompt)
	if err != nil {
		s.logger.Debugf("model summarization failed, using deterministic fallback: %v", err)
		summary = Deterministic(text, maxChars)
		out.Source = SourceDeterministic
	}
	out.Summary = summary

	// Fallback results are cached too, so a failing model is asked once per text.
	if useCache && ctx.Err() == nil {
		s.cache.Put(text, summary)
	}
	return out
}

// callModel tries each available shape in order and returns the first
// non-empty trimmed result.
func (s *ModelSummarizer) callModel(ctx context.Context, capability *Capability, prompt string) (string, error) {
	type attempt struct {
		name string
		call func() (string, error)
	}
	var attempts []attempt
	if capability.Agent != nil {
		attempts = append(attempts, attempt{"generate", func() (string, error) {
			out, err := capability.Agent.Generate(ctx, prompt)
			if err != nil {
				return "", err
			}
			return models.TextOf(out), nil
		}})
	}
	if capability.Stream != nil {
		attempts = append(attempts, attempt{"stream", func() (string, error) {
			return collectStream(ctx, capability.Stream, prompt)
		}})
	}
	if capability.Completer != nil {
		attempts = append(attempts, attempt{"complete", func() (string, error) {
			return capability.Completer.Complete(ctx, prompt)
		}})
	}

	var errs []error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := guard(a.call)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err == nil {
			if out = strings.TrimSpace(out); out != "" {
				return out, nil
			}
			err = errEmptyResult
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
	}
	return "", errors.Join(errs...)
}

// guard converts a panic in call into an error.
func guard(call func() (string, error)) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return call()
}

func collectStream(ctx context.Context, agent models.StreamingAgent, prompt string) (string, error) {
	ch, err := agent.GenerateStream(ctx, prompt)
	if err != nil {
		return "", err
	}
	if ch == nil {
		return "", errors.New("stream: nil channel")
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			go drain(ch)
			return "", ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Err != nil {
				go drain(ch)
				return "", chunk.Err
			}
			if chunk.Done {
				go drain(ch)
				if chunk.FullText != "" {
					return chunk.FullText, nil
				}
				return sb.String(), nil
			}
			sb.WriteString(chunk.Delta)
		}
	}
}

// drain consumes the rest of an abandoned stream so its producer can exit.
func drain(ch <-chan models.StreamChunk) {
	for range ch {
	}
}
