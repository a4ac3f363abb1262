// Package compact turns large tool and network responses into short
// summaries that are safe to place into a model's context window.
//
// A Compactor flattens a response to text, summarizes it with a model
// capability when one is supplied and falls back to a deterministic
// sentence-aware summarizer otherwise. Summaries are cached by content hash.
// Compact never fails: every path ends in some bounded summary.
package compact

import (
	"context"

	"github.com/Protocol-Lattice/go-compact/src/cache"
	"github.com/Protocol-Lattice/go-compact/src/concurrent"
	"github.com/Protocol-Lattice/go-compact/src/extract"
	"github.com/Protocol-Lattice/go-compact/src/log"
	"github.com/Protocol-Lattice/go-compact/src/summarize"
)

// DefaultMaxChars bounds a summary when the caller does not choose a limit.
const DefaultMaxChars = 800

// Compactor reduces raw responses to bounded summaries.
type Compactor struct {
	cache              *cache.SummaryCache
	summarizer         *summarize.ModelSummarizer
	maxChars           int
	cacheDeterministic bool
	concurrency        int
	logger             log.Logger
	metrics            *Metrics
}

// Options configure a new Compactor.
type Options struct {
	// Cache is shared by every Compact call. When nil a cache of CacheSize
	// entries is created.
	Cache     *cache.SummaryCache
	CacheSize int

	// MaxChars is the limit used when Compact receives a non-positive one.
	MaxChars int
	// Instructions are prepended to every summarization prompt.
	Instructions string
	// CacheDeterministic also caches summaries produced without a model.
	CacheDeterministic bool
	// Concurrency bounds CompactBatch.
	Concurrency int

	Logger log.Logger
}

// New creates a Compactor with the provided options.
func New(opts Options) (*Compactor, error) {
	c := opts.Cache
	if c == nil {
		size := opts.CacheSize
		if size == 0 {
			size = cache.DefaultCapacity
		}
		var err error
		if c, err = cache.NewSummaryCache(size); err != nil {
			return nil, err
		}
	}

	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Named("compact")
	}

	return &Compactor{
		cache: c,
		summarizer: summarize.NewModelSummarizer(c,
			summarize.WithInstructions(opts.Instructions),
			summarize.WithLogger(logger),
		),
		maxChars:           maxChars,
		cacheDeterministic: opts.CacheDeterministic,
		concurrency:        opts.Concurrency,
		logger:             logger,
		metrics:            &Metrics{},
	}, nil
}

// Cache returns the summary cache shared by this Compactor.
func (c *Compactor) Cache() *cache.SummaryCache { return c.cache }

// MaxChars returns the default summary limit.
func (c *Compactor) MaxChars() int { return c.maxChars }

// Compact flattens resp and returns its summary of at most maxChars
// characters on the deterministic path. A nil or empty capability selects the
// deterministic summarizer directly. Model failures, including panics, fall
// back to the deterministic summarizer.
func (c *Compactor) Compact(ctx context.Context, resp any, capability *summarize.Capability, maxChars int) string {
	c.metrics.compactions.Add(1)

	text := c.flatten(resp)
	if text == "" {
		c.metrics.emptyInputs.Add(1)
		return ""
	}
	if maxChars <= 0 {
		maxChars = c.maxChars
	}
	return c.summarize(ctx, text, capability, maxChars)
}

// CompactBatch compacts resps concurrently and returns the summaries in input
// order.
func (c *Compactor) CompactBatch(ctx context.Context, resps []any, capability *summarize.Capability, maxChars int) []string {
	summaries, errs := concurrent.ParallelMap(ctx, resps, func(ctx context.Context, resp any) (string, error) {
		return c.Compact(ctx, resp, capability, maxChars), nil
	}, c.concurrency)

	if err := concurrent.FirstError(errs); err != nil {
		c.logger.Debugf("batch interrupted, compacting skipped items directly: %v", err)
	}
	// Skipped items still get a summary; with ctx done no model is called.
	for i, err := range errs {
		if err != nil {
			summaries[i] = c.Compact(ctx, resps[i], capability, maxChars)
		}
	}
	return summaries
}

// Stats returns a snapshot of the Compactor's counters.
func (c *Compactor) Stats() Stats {
	return c.metrics.Snapshot()
}

func (c *Compactor) flatten(resp any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.recoveredPanics.Add(1)
			c.logger.Warnf("flatten panicked: %v", r)
			text = ""
		}
	}()
	return extract.Flatten(resp)
}

func (c *Compactor) summarize(ctx context.Context, text string, capability *summarize.Capability, maxChars int) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.recoveredPanics.Add(1)
			c.metrics.deterministicFallbacks.Add(1)
			c.logger.Warnf("summarization panicked, using deterministic summary: %v", r)
			summary = summarize.Deterministic(text, maxChars)
		}
	}()

	if !capability.Available() {
		return c.deterministic(text, maxChars)
	}

	out := c.summarizer.SummarizeOutcome(ctx, capability, text, maxChars, true)
	switch out.Source {
	case summarize.SourceCache:
		c.metrics.cacheHits.Add(1)
	case summarize.SourceModel:
		c.metrics.cacheMisses.Add(1)
		c.metrics.modelSummaries.Add(1)
	case summarize.SourceDeterministic:
		c.metrics.cacheMisses.Add(1)
		c.metrics.deterministicFallbacks.Add(1)
	}
	return out.Summary
}

func (c *Compactor) deterministic(text string, maxChars int) string {
	if !c.cacheDeterministic {
		c.metrics.deterministicFallbacks.Add(1)
		return summarize.Deterministic(text, maxChars)
	}
	if cached, ok := c.cache.Get(text); ok {
		c.metrics.cacheHits.Add(1)
		return cached
	}
	c.metrics.cacheMisses.Add(1)
	c.metrics.deterministicFallbacks.Add(1)
	summary := summarize.Deterministic(text, maxChars)
	c.cache.Put(text, summary)
	return summary
}
