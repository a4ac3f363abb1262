package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/go-compact/src/config"
	"github.com/Protocol-Lattice/go-compact/src/log"
)

var (
	// envFile is an optional dotenv file read before the environment.
	envFile string

	// provider overrides COMPACT_PROVIDER.
	provider string

	// modelName overrides COMPACT_MODEL.
	modelName string

	// backend overrides COMPACT_MEMORY_BACKEND.
	backend string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact large tool responses into short summaries",
	Long: `compact flattens a JSON tool or network response into text and reduces
it to a bounded summary, using a language model when one is configured and a
deterministic sentence-aware summarizer otherwise.

Settings come from COMPACT_* environment variables and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env",
		"Dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "",
		"Model provider: openai, anthropic, gemini, ollama, dummy (default: deterministic only)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "",
		"Model name passed to the provider")
	rootCmd.PersistentFlags().StringVar(&backend, "memory", "",
		"Memory backend: none, postgres, mongo, neo4j (the in-process memory backend is not available to the CLI)")

	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(factsCmd)
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if provider != "" {
		cfg.Provider = provider
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if backend != "" {
		cfg.MemoryBackend = backend
	}
	if cfg.MemoryBackend == config.BackendMemory {
		return config.Config{}, fmt.Errorf("memory backend %q does not outlive the process; use postgres, mongo or neo4j", cfg.MemoryBackend)
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}
