package summarize

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Protocol-Lattice/go-compact/src/cache"
	"github.com/Protocol-Lattice/go-compact/src/log"
	"github.com/Protocol-Lattice/go-compact/src/models"
)

type countingAgent struct {
	calls  atomic.Int32
	reply  any
	err    error
	panics bool
	prompt atomic.Value
}

func (a *countingAgent) Generate(_ context.Context, prompt string) (any, error) {
	a.calls.Add(1)
	a.prompt.Store(prompt)
	if a.panics {
		panic("generate exploded")
	}
	return a.reply, a.err
}

type streamAgent struct {
	calls  atomic.Int32
	chunks []models.StreamChunk
	err    error
}

func (s *streamAgent) GenerateStream(context.Context, string) (<-chan models.StreamChunk, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan models.StreamChunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

type countingCompleter struct {
	calls atomic.Int32
	reply string
	err   error
}

func (c *countingCompleter) Complete(context.Context, string) (string, error) {
	c.calls.Add(1)
	return c.reply, c.err
}

func newSummarizer(t *testing.T) (*ModelSummarizer, *cache.SummaryCache) {
	t.Helper()
	c, err := cache.NewSummaryCache(16)
	if err != nil {
		t.Fatalf("NewSummaryCache: %v", err)
	}
	return NewModelSummarizer(c, WithLogger(log.Nop())), c
}

const longText = "First fact here. Second fact follows. Third fact closes the list."

func TestSummarize_EmptyTextSkipsEverything(t *testing.T) {
	s, c := newSummarizer(t)
	agent := &countingAgent{reply: "unused"}
	out := s.SummarizeOutcome(context.Background(), &Capability{Agent: agent}, "", 100, true)
	if out.Summary != "" || out.Source != SourceEmpty {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if agent.calls.Load() != 0 || c.Len() != 0 {
		t.Fatal("empty text must not reach the model or the cache")
	}
}

func TestSummarize_NoCapabilityFallsBack(t *testing.T) {
	s, c := newSummarizer(t)
	for _, capability := range []*Capability{nil, {}} {
		out := s.SummarizeOutcome(context.Background(), capability, longText, 40, true)
		if out.Source != SourceDeterministic {
			t.Fatalf("source = %v, want deterministic", out.Source)
		}
		if want := Deterministic(longText, 40); out.Summary != want {
			t.Fatalf("summary = %q, want %q", out.Summary, want)
		}
	}
	if c.Len() != 0 {
		t.Fatal("deterministic fallback must not be cached by the adapter")
	}
}

func TestSummarize_AgentResultIsTrimmedAndCached(t *testing.T) {
	s, c := newSummarizer(t)
	agent := &countingAgent{reply: "  - fact one\n- fact two \n"}
	capability := &Capability{Agent: agent}

	first := s.SummarizeOutcome(context.Background(), capability, longText, 200, true)
	if first.Source != SourceModel || first.Summary != "- fact one\n- fact two" {
		t.Fatalf("unexpected first outcome %+v", first)
	}
	second := s.SummarizeOutcome(context.Background(), capability, longText, 200, true)
	if second.Source != SourceCache || second.Summary != first.Summary {
		t.Fatalf("unexpected second outcome %+v", second)
	}
	if got := agent.calls.Load(); got != 1 {
		t.Fatalf("agent called %d times, want 1", got)
	}
	if cached, ok := c.Get(longText); !ok || cached != first.Summary {
		t.Fatalf("cache holds %q (ok=%v)", cached, ok)
	}
}

func TestSummarize_UseCacheFalseAlwaysCallsModel(t *testing.T) {
	s, c := newSummarizer(t)
	agent := &countingAgent{reply: "summary"}
	for i := 0; i < 3; i++ {
		s.Summarize(context.Background(), &Capability{Agent: agent}, longText, 200, false)
	}
	if agent.calls.Load() != 3 {
		t.Fatalf("agent called %d times, want 3", agent.calls.Load())
	}
	if c.Len() != 0 {
		t.Fatal("useCache=false must not write the cache")
	}
}

func TestSummarize_PromptCarriesInstructionsAndLimit(t *testing.T) {
	c, _ := cache.NewSummaryCache(4)
	s := NewModelSummarizer(c, WithInstructions("You are terse."), WithLogger(log.Nop()))
	agent := &countingAgent{reply: "ok"}
	s.Summarize(context.Background(), &Capability{Agent: agent}, "payload", 321, false)

	prompt, _ := agent.prompt.Load().(string)
	if !strings.HasPrefix(prompt, "You are terse.\n\n") {
		t.Fatalf("instructions missing from prompt %q", prompt)
	}
	if !strings.Contains(prompt, "(max 321 characters):\n\npayload") {
		t.Fatalf("limit or text missing from prompt %q", prompt)
	}
}

func TestSummarize_ShapesTriedInOrder(t *testing.T) {
	tests := []struct {
		name       string
		agent      *countingAgent
		stream     *streamAgent
		completer  *countingCompleter
		want       string
		wantSource Source
	}{
		{
			name:       "agent wins",
			agent:      &countingAgent{reply: "from agent"},
			stream:     &streamAgent{chunks: []models.StreamChunk{{Delta: "from stream"}, {Done: true}}},
			completer:  &countingCompleter{reply: "from completer"},
			want:       "from agent",
			wantSource: SourceModel,
		},
		{
			name:       "agent error falls to stream",
			agent:      &countingAgent{err: errors.New("boom")},
			stream:     &streamAgent{chunks: []models.StreamChunk{{Delta: "from "}, {Delta: "stream"}, {Done: true}}},
			completer:  &countingCompleter{reply: "from completer"},
			want:       "from stream",
			wantSource: SourceModel,
		},
		{
			name:       "agent panic and stream error fall to completer",
			agent:      &countingAgent{panics: true},
			stream:     &streamAgent{chunks: []models.StreamChunk{{Delta: "partial"}, {Done: true, Err: errors.New("cut")}}},
			completer:  &countingCompleter{reply: "from completer"},
			want:       "from completer",
			wantSource: SourceModel,
		},
		{
			name:       "blank results fall back to deterministic",
			agent:      &countingAgent{reply: "   "},
			stream:     &streamAgent{chunks: []models.StreamChunk{{Done: true}}},
			completer:  &countingCompleter{reply: "\n"},
			want:       Deterministic(longText, 40),
			wantSource: SourceDeterministic,
		},
		{
			name:       "everything fails",
			agent:      &countingAgent{err: errors.New("down")},
			stream:     &streamAgent{err: errors.New("no stream")},
			completer:  &countingCompleter{err: errors.New("legacy down")},
			want:       Deterministic(longText, 40),
			wantSource: SourceDeterministic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newSummarizer(t)
			capability := &Capability{Agent: tt.agent, Stream: tt.stream, Completer: tt.completer}
			out := s.SummarizeOutcome(context.Background(), capability, longText, 40, true)
			if out.Summary != tt.want || out.Source != tt.wantSource {
				t.Fatalf("got %+v, want %q from %v", out, tt.want, tt.wantSource)
			}
			if cached, ok := c.Get(longText); !ok || cached != tt.want {
				t.Fatalf("cache holds %q (ok=%v), want %q", cached, ok, tt.want)
			}
		})
	}
}

func TestSummarize_FallbackIsCachedOncePerText(t *testing.T) {
	s, c := newSummarizer(t)
	agent := &countingAgent{err: errors.New("model down")}
	capability := &Capability{Agent: agent}

	first := s.SummarizeOutcome(context.Background(), capability, longText, 40, true)
	second := s.SummarizeOutcome(context.Background(), capability, longText, 40, true)

	if first.Source != SourceDeterministic || second.Source != SourceCache {
		t.Fatalf("sources = %v, %v; want deterministic then cache", first.Source, second.Source)
	}
	if first.Summary != second.Summary {
		t.Fatalf("summaries differ: %q vs %q", first.Summary, second.Summary)
	}
	if n := agent.calls.Load(); n != 1 {
		t.Fatalf("model called %d times, want 1", n)
	}
	if c.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", c.Len())
	}
}

// blockingStream emits an error chunk and keeps sending until drained.
type blockingStream struct {
	finished chan struct{}
}

func (b *blockingStream) GenerateStream(context.Context, string) (<-chan models.StreamChunk, error) {
	ch := make(chan models.StreamChunk)
	go func() {
		defer close(b.finished)
		defer close(ch)
		ch <- models.StreamChunk{Err: errors.New("upstream reset")}
		for i := 0; i < 3; i++ {
			ch <- models.StreamChunk{Delta: "late"}
		}
	}()
	return ch, nil
}

func TestSummarize_StreamErrorDrainsProducer(t *testing.T) {
	s, _ := newSummarizer(t)
	stream := &blockingStream{finished: make(chan struct{})}

	out := s.SummarizeOutcome(context.Background(), &Capability{Stream: stream}, longText, 40, false)
	if out.Source != SourceDeterministic {
		t.Fatalf("source = %v, want deterministic", out.Source)
	}
	select {
	case <-stream.finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stream producer still blocked after an error chunk")
	}
}

func TestSummarize_StreamFullTextPreferred(t *testing.T) {
	s, _ := newSummarizer(t)
	stream := &streamAgent{chunks: []models.StreamChunk{{Delta: "a"}, {Done: true, FullText: "assembled"}}}
	if got := s.Summarize(context.Background(), &Capability{Stream: stream}, longText, 100, false); got != "assembled" {
		t.Fatalf("got %q", got)
	}
}

func TestSummarize_CancelledContextDoesNotCache(t *testing.T) {
	s, c := newSummarizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent := &countingAgent{reply: "would be cached"}
	out := s.SummarizeOutcome(ctx, &Capability{Agent: agent}, longText, 40, true)
	if out.Source != SourceDeterministic {
		t.Fatalf("source = %v, want deterministic", out.Source)
	}
	if agent.calls.Load() != 0 {
		t.Fatal("model must not be called with a cancelled context")
	}
	if c.Len() != 0 {
		t.Fatal("cancelled invocation wrote the cache")
	}
}

type allShapes struct {
	countingAgent
	streamAgent
	countingCompleter
}

func TestCapabilityOf(t *testing.T) {
	if CapabilityOf(nil) != nil {
		t.Fatal("nil must yield no capability")
	}
	if CapabilityOf("not a model") != nil {
		t.Fatal("plain value must yield no capability")
	}

	c := CapabilityOf(&countingCompleter{})
	if c == nil || c.Completer == nil || c.Agent != nil || c.Stream != nil {
		t.Fatalf("unexpected capability %+v", c)
	}

	all := CapabilityOf(&allShapes{})
	if all == nil || all.Agent == nil || all.Stream == nil || all.Completer == nil {
		t.Fatalf("expected all shapes, got %+v", all)
	}

	dummy := CapabilityOf(models.NewDummyLLM("Echo:"))
	if dummy == nil || dummy.Agent == nil || dummy.Stream == nil {
		t.Fatalf("dummy model should offer generate and stream, got %+v", dummy)
	}
}

func TestSourceString(t *testing.T) {
	for src, want := range map[Source]string{
		SourceEmpty:         "empty",
		SourceCache:         "cache",
		SourceModel:         "model",
		SourceDeterministic: "deterministic",
	} {
		if src.String() != want {
			t.Fatalf("%d.String() = %q, want %q", src, src.String(), want)
		}
	}
}
