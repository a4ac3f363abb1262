package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/go-compact/src/memory/model"
)

var (
	factsLimit int
	factsTopic string
)

// factsCmd lists the facts remembered for a user.
var factsCmd = &cobra.Command{
	Use:   "facts <user>",
	Short: "List remembered summaries for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacts,
}

func init() {
	factsCmd.Flags().IntVarP(&factsLimit, "limit", "n", 20,
		"Maximum number of facts")
	factsCmd.Flags().StringVarP(&factsTopic, "topic", "t", "",
		"Only show facts tagged with this topic")
}

func runFacts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	memStore, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("memory backend: %w", err)
	}
	defer closeStore()
	if memStore == nil {
		return errors.New("no memory backend configured (set COMPACT_MEMORY_BACKEND or --memory)")
	}

	facts, err := memStore.Facts(ctx, model.SubjectFor(args[0]), factsLimit)
	if err != nil {
		return fmt.Errorf("list facts: %w", err)
	}
	if topic := strings.TrimSpace(factsTopic); topic != "" {
		kept := facts[:0]
		for _, f := range facts {
			if f.HasTopic(topic) {
				kept = append(kept, f)
			}
		}
		facts = kept
	}
	if len(facts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No facts for %q.\n", args[0])
		return nil
	}
	for _, f := range facts {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s]\n%s\n\n",
			f.CreatedAt.Format(time.RFC3339), strings.Join(f.Topics, ", "), f.Content)
	}
	return nil
}
