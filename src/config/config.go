// Package config loads compaction settings from the environment and builds
// the components they describe.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/Protocol-Lattice/go-compact/src/cache"
	"github.com/Protocol-Lattice/go-compact/src/helpers"
	"github.com/Protocol-Lattice/go-compact/src/memory/model"
	"github.com/Protocol-Lattice/go-compact/src/memory/store"
)

// Memory backends accepted by COMPACT_MEMORY_BACKEND.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendNeo4j    = "neo4j"
)

const (
	defaultMaxChars        = 800
	defaultMongoDatabase   = "compact"
	defaultMongoCollection = "facts"
	defaultNeo4jDatabase   = "neo4j"
)

// Config holds every setting read from the environment.
type Config struct {
	MaxChars           int
	CacheSize          int
	CacheDeterministic bool
	Instructions       string

	Provider string
	Model    string

	MemoryBackend   string
	PostgresDSN     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	Neo4jURI        string
	Neo4jUser       string
	Neo4jPassword   string
	Neo4jDatabase   string
	Topics          []string

	LogLevel string
}

// Load reads the optional dotenv files (".env" when none are given) and then
// the process environment. Missing dotenv files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which reports a variable's value
// and whether it is set.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	maxChars, err := cast.ToIntE(get("COMPACT_MAX_CHARS", cast.ToString(defaultMaxChars)))
	if err != nil {
		return Config{}, fmt.Errorf("COMPACT_MAX_CHARS: %w", err)
	}
	cacheSize, err := cast.ToIntE(get("COMPACT_CACHE_SIZE", cast.ToString(cache.DefaultCapacity)))
	if err != nil {
		return Config{}, fmt.Errorf("COMPACT_CACHE_SIZE: %w", err)
	}
	if cacheSize <= 0 {
		return Config{}, fmt.Errorf("COMPACT_CACHE_SIZE: %w", cache.ErrInvalidCapacity)
	}
	cacheDeterministic, err := cast.ToBoolE(get("COMPACT_CACHE_DETERMINISTIC", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("COMPACT_CACHE_DETERMINISTIC: %w", err)
	}

	cfg := Config{
		MaxChars:           maxChars,
		CacheSize:          cacheSize,
		CacheDeterministic: cacheDeterministic,
		Instructions:       get("COMPACT_INSTRUCTIONS", ""),
		Provider:           strings.ToLower(get("COMPACT_PROVIDER", "")),
		Model:              get("COMPACT_MODEL", ""),
		MemoryBackend:      strings.ToLower(get("COMPACT_MEMORY_BACKEND", BackendNone)),
		PostgresDSN:        get("COMPACT_POSTGRES_DSN", ""),
		MongoURI:           get("COMPACT_MONGO_URI", ""),
		MongoDatabase:      get("COMPACT_MONGO_DATABASE", defaultMongoDatabase),
		MongoCollection:    get("COMPACT_MONGO_COLLECTION", defaultMongoCollection),
		Neo4jURI:           get("COMPACT_NEO4J_URI", ""),
		Neo4jUser:          get("COMPACT_NEO4J_USER", "neo4j"),
		Neo4jPassword:      get("COMPACT_NEO4J_PASSWORD", ""),
		Neo4jDatabase:      get("COMPACT_NEO4J_DATABASE", defaultNeo4jDatabase),
		Topics:             model.NormalizeTopics(helpers.ParseCSVList(get("COMPACT_TOPICS", model.DefaultTopic))),
		LogLevel:           strings.ToLower(get("COMPACT_LOG_LEVEL", "info")),
	}
	if cfg.Topics == nil {
		cfg.Topics = []string{model.DefaultTopic}
	}
	return cfg, nil
}

// OpenStore connects the configured memory backend and creates its schema.
// It returns a nil store for BackendNone. The returned close function is
// never nil.
func (c Config) OpenStore(ctx context.Context) (store.FactStore, func() error, error) {
	noop := func() error { return nil }
	switch c.MemoryBackend {
	case "", BackendNone:
		return nil, noop, nil
	case BackendMemory:
		return store.NewInMemoryStore(), noop, nil
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return nil, noop, errors.New("COMPACT_POSTGRES_DSN is required for the postgres backend")
		}
		ps, err := store.NewPostgresStore(ctx, c.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() error { ps.Close(); return nil }
		return withSchema(ctx, ps, closeFn)
	case BackendMongo:
		ms, err := store.NewMongoStore(ctx, c.MongoURI, c.MongoDatabase, c.MongoCollection)
		if err != nil {
			return nil, noop, err
		}
		return withSchema(ctx, ms, ms.Close)
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return nil, noop, errors.New("COMPACT_NEO4J_URI is required for the neo4j backend")
		}
		ns, err := store.NewNeo4jStoreFromURI(ctx, c.Neo4jURI, c.Neo4jUser, c.Neo4jPassword, c.Neo4jDatabase)
		if err != nil {
			return nil, noop, err
		}
		return withSchema(ctx, ns, ns.Close)
	default:
		return nil, noop, fmt.Errorf("unknown memory backend: %s", c.MemoryBackend)
	}
}

type schemaStore interface {
	store.FactStore
	store.SchemaInitializer
}

func withSchema(ctx context.Context, s schemaStore, closeFn func() error) (store.FactStore, func() error, error) {
	if err := s.CreateSchema(ctx); err != nil {
		_ = closeFn()
		return nil, func() error { return nil }, fmt.Errorf("create schema: %w", err)
	}
	return s, closeFn, nil
}
