package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	compact "github.com/Protocol-Lattice/go-compact"
	"github.com/Protocol-Lattice/go-compact/src/log"
)

var (
	maxChars int
	userID   string
	showStat bool
)

// summarizeCmd compacts a JSON response read from a file or stdin.
var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a JSON response",
	Long: `Read a JSON response from file (or stdin when omitted or "-"), compact
it and print the summary. With a memory backend configured the summary is
stored as a fact about --user.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().IntVarP(&maxChars, "max-chars", "m", 0,
		"Maximum summary length (default: COMPACT_MAX_CHARS)")
	summarizeCmd.Flags().StringVarP(&userID, "user", "u", "",
		"User the summary is remembered for")
	summarizeCmd.Flags().BoolVar(&showStat, "stats", false,
		"Print compaction counters to stderr")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	logger := log.Named("compact")
	compactor, err := cfg.NewCompactor(logger)
	if err != nil {
		return err
	}
	capability, err := cfg.Capability(ctx)
	if err != nil {
		return fmt.Errorf("model provider: %w", err)
	}
	memStore, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("memory backend: %w", err)
	}
	defer closeStore()

	opts := []compact.FetcherOption{
		compact.WithCapability(capability),
		compact.WithMaxChars(maxChars),
		compact.WithTopics(cfg.Topics...),
		compact.WithLogger(logger),
	}
	if memStore != nil {
		opts = append(opts, compact.WithMemory(memStore))
	}

	fetcher, err := compact.NewPersistingFetcher(compact.FetcherFunc(
		func(context.Context, map[string]any) (any, error) {
			return json.RawMessage(raw), nil
		}), compactor, opts...)
	if err != nil {
		return err
	}

	summary, err := fetcher.FetchAndCompact(ctx, userID, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	if showStat {
		s := compactor.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(),
			"compactions=%d cache_hits=%d model=%d deterministic=%d persisted=%d persist_failures=%d\n",
			s.Compactions, s.CacheHits, s.ModelSummaries, s.DeterministicFallbacks,
			s.PersistedFacts, s.PersistFailures)
	}
	return nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}
