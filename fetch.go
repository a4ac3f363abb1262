package compact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/go-compact/src/log"
	"github.com/Protocol-Lattice/go-compact/src/memory/model"
	"github.com/Protocol-Lattice/go-compact/src/memory/store"
	"github.com/Protocol-Lattice/go-compact/src/summarize"
)

// AnonymousSubject is used when no user can be identified for a fetch.
const AnonymousSubject = "anonymous"

var (
	// ErrNilFetcher is returned by NewPersistingFetcher without a fetcher.
	ErrNilFetcher = errors.New("compact: fetcher is nil")
	// ErrNilCompactor is returned by NewPersistingFetcher without a compactor.
	ErrNilCompactor = errors.New("compact: compactor is nil")
	// ErrStorePanic wraps a panic raised by a memory store while persisting.
	ErrStorePanic = errors.New("compact: memory store panicked")
)

// Fetcher produces a raw response for a set of call arguments.
type Fetcher interface {
	Fetch(ctx context.Context, args map[string]any) (any, error)
}

// FetcherFunc adapts an ordinary function to Fetcher.
type FetcherFunc func(ctx context.Context, args map[string]any) (any, error)

// Fetch calls f(ctx, args).
func (f FetcherFunc) Fetch(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// PersistResult reports what happened when a summary was written to memory.
type PersistResult struct {
	Subject string
	Stored  bool
	Err     error
}

// PersistingFetcher fetches a response, compacts it and records the summary
// as a fact about the requesting user.
type PersistingFetcher struct {
	fetcher    Fetcher
	compactor  *Compactor
	memory     store.FactStore
	capability *summarize.Capability
	maxChars   int
	topics     []string
	logger     log.Logger
}

// FetcherOption configures a PersistingFetcher.
type FetcherOption func(*PersistingFetcher)

// WithMemory persists summaries into s.
func WithMemory(s store.FactStore) FetcherOption {
	return func(f *PersistingFetcher) { f.memory = s }
}

// WithCapability summarizes through capability instead of the deterministic path.
func WithCapability(capability *summarize.Capability) FetcherOption {
	return func(f *PersistingFetcher) { f.capability = capability }
}

// WithMaxChars sets the summary limit passed to Compact.
func WithMaxChars(n int) FetcherOption {
	return func(f *PersistingFetcher) { f.maxChars = n }
}

// WithTopics replaces the default topics attached to persisted facts.
func WithTopics(topics ...string) FetcherOption {
	return func(f *PersistingFetcher) {
		if t := model.NormalizeTopics(topics); t != nil {
			f.topics = t
		}
	}
}

// WithLogger overrides the logger used to report persistence failures.
func WithLogger(l log.Logger) FetcherOption {
	return func(f *PersistingFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewPersistingFetcher wraps fetcher so its responses are compacted by compactor.
func NewPersistingFetcher(fetcher Fetcher, compactor *Compactor, opts ...FetcherOption) (*PersistingFetcher, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if compactor == nil {
		return nil, ErrNilCompactor
	}
	f := &PersistingFetcher{
		fetcher:   fetcher,
		compactor: compactor,
		topics:    []string{model.DefaultTopic},
		logger:    compactor.logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FetchAndCompact fetches with args and returns the compacted summary in
// place of the raw response. The only error it returns comes from the fetch
// itself, in which case nothing is compacted or persisted.
func (f *PersistingFetcher) FetchAndCompact(ctx context.Context, subjectID string, args map[string]any) (string, error) {
	resp, err := f.fetcher.Fetch(ctx, args)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}

	summary := f.compactor.Compact(ctx, resp, f.capability, f.maxChars)

	// Persistence is best effort; the result is only logged.
	_ = f.persist(ctx, ResolveSubject(subjectID, args), summary)
	return summary, nil
}

func (f *PersistingFetcher) persist(ctx context.Context, subjectID, summary string) (res PersistResult) {
	res = PersistResult{Subject: model.SubjectFor(subjectID)}
	if f.memory == nil || summary == "" {
		return res
	}
	if err := f.addFact(ctx, res.Subject, summary); err != nil {
		f.compactor.metrics.persistFailures.Add(1)
		f.logger.Warnf("persist summary for %s: %v", res.Subject, err)
		res.Err = err
		return res
	}
	f.compactor.metrics.persistedFacts.Add(1)
	res.Stored = true
	return res
}

// addFact writes one fact, reporting a panicking store as an error.
func (f *PersistingFetcher) addFact(ctx context.Context, subject, summary string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStorePanic, r)
		}
	}()
	return f.memory.AddFact(ctx, subject, summary, f.topics)
}

// ResolveSubject picks the user a fetch belongs to: subjectID when set, else
// a non-empty string args["user_id"], else AnonymousSubject.
func ResolveSubject(subjectID string, args map[string]any) string {
	if strings.TrimSpace(subjectID) != "" {
		return subjectID
	}
	if id, ok := args["user_id"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return AnonymousSubject
}
