package config

import (
	"context"

	compact "github.com/Protocol-Lattice/go-compact"
	"github.com/Protocol-Lattice/go-compact/src/log"
	"github.com/Protocol-Lattice/go-compact/src/models"
	"github.com/Protocol-Lattice/go-compact/src/summarize"
)

// NewCompactor builds a Compactor from the configuration.
func (c Config) NewCompactor(logger log.Logger) (*compact.Compactor, error) {
	return compact.New(compact.Options{
		CacheSize:          c.CacheSize,
		MaxChars:           c.MaxChars,
		Instructions:       c.Instructions,
		CacheDeterministic: c.CacheDeterministic,
		Logger:             logger,
	})
}

// Capability returns the summarization capability of the configured
// provider, or nil when no provider is set.
func (c Config) Capability(ctx context.Context) (*summarize.Capability, error) {
	if c.Provider == "" {
		return nil, nil
	}
	agent, err := models.NewLLMProvider(ctx, c.Provider, c.Model, "")
	if err != nil {
		return nil, err
	}
	if b, ok := agent.(models.Budgeted); ok {
		b.SetSummaryBudget(c.MaxChars)
	}
	return summarize.CapabilityOf(agent), nil
}
