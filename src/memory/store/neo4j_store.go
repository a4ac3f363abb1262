package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Protocol-Lattice/go-compact/src/memory/model"
)

// Neo4jAccessMode controls whether a session is opened for read or write operations.
type Neo4jAccessMode string

const (
	// AccessModeWrite opens a session with write access.
	AccessModeWrite Neo4jAccessMode = "write"
	// AccessModeRead opens a session with read access.
	AccessModeRead Neo4jAccessMode = "read"
)

// Neo4jSessionConfig mirrors the minimal subset of Neo4j session configuration we require.
type Neo4jSessionConfig struct {
	AccessMode   Neo4jAccessMode
	DatabaseName string
}

// neo4jDriver abstracts the Neo4j driver capabilities used by the store so
// tests can provide lightweight fakes.
type neo4jDriver interface {
	NewSession(ctx context.Context, config Neo4jSessionConfig) (neo4jSession, error)
	Close(ctx context.Context) error
}

type neo4jSession interface {
	BeginTransaction(ctx context.Context) (neo4jTransaction, error)
	Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error)
	Close(ctx context.Context) error
}

type neo4jTransaction interface {
	Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

type neo4jResult interface {
	Next(ctx context.Context) bool
	Record() neo4jRecord
	Err() error
	Close(ctx context.Context) error
}

type neo4jRecord interface {
	Get(key string) (any, bool)
}

// Neo4jStore keeps facts as a graph: each Subject node points at its Fact
// nodes, and facts link to the Topic nodes they are tagged with.
type Neo4jStore struct {
	driver   neo4jDriver
	database string
	nowFn    func() time.Time
}

var (
	_ FactStore         = (*Neo4jStore)(nil)
	_ SchemaInitializer = (*Neo4jStore)(nil)
)

// ErrNeo4jUnavailable is returned when graph operations are attempted without a configured driver.
var ErrNeo4jUnavailable = errors.New("neo4j driver not configured")

// NewNeo4jStore constructs a store on top of the provided Neo4j driver.
func NewNeo4jStore(driver neo4jDriver, database string) (*Neo4jStore, error) {
	if driver == nil {
		return nil, errors.New("neo4j driver is nil")
	}
	return &Neo4jStore{driver: driver, database: database, nowFn: time.Now}, nil
}

// CreateSchema ensures the uniqueness constraints and lookup indexes exist.
func (s *Neo4jStore) CreateSchema(ctx context.Context) error {
	if s.driver == nil {
		return ErrNeo4jUnavailable
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	queries := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Subject) REQUIRE s.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (f:Fact) REQUIRE f.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (t:Topic) REQUIRE t.name IS UNIQUE",
		"CREATE INDEX IF NOT EXISTS FOR (f:Fact) ON (f.created_at)",
	}
	for _, query := range queries {
		res, runErr := session.Run(ctx, query, nil)
		if runErr != nil {
			return fmt.Errorf("neo4j schema query: %w", runErr)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	return nil
}

// AddFact creates a Fact node under subject in a single write transaction.
func (s *Neo4jStore) AddFact(ctx context.Context, subject, content string, topics []string) error {
	if err := validateSubject(subject); err != nil {
		return err
	}
	if s.driver == nil {
		return ErrNeo4jUnavailable
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("neo4j begin tx: %w", err)
	}
	defer tx.Close(ctx)

	topics = model.NormalizeTopics(topics)
	if topics == nil {
		topics = []string{}
	}
	params := map[string]any{
		"subject":    subject,
		"content":    content,
		"topics":     topics,
		"created_at": s.now().Format(time.RFC3339Nano),
	}
	res, err := tx.Run(ctx, neo4jAddFactCypher, params)
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j add fact: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	if err := tx.Commit(ctx); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j commit: %w", err)
	}
	return nil
}

// Facts returns the most recent facts recorded for subject.
func (s *Neo4jStore) Facts(ctx context.Context, subject string, limit int) ([]model.Fact, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if s.driver == nil {
		return nil, ErrNeo4jUnavailable
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeRead, DatabaseName: s.database})
	if err != nil {
		return nil, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)

	limit = clampLimit(limit)
	result, err := session.Run(ctx, neo4jFactsQuery, map[string]any{"subject": subject, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("neo4j facts: %w", err)
	}
	defer result.Close(ctx)

	facts := make([]model.Fact, 0, limit)
	for result.Next(ctx) {
		fact, recErr := mapNeo4jFact(result.Record())
		if recErr != nil {
			return nil, recErr
		}
		facts = append(facts, fact)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}

// Close releases the Neo4j driver.
func (s *Neo4jStore) Close() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn().UTC()
}

const (
	neo4jAddFactCypher = `
MERGE (s:Subject {id: $subject})
CREATE (f:Fact {id: randomUUID(), subject: $subject, content: $content, topics: $topics, created_at: $created_at})
CREATE (s)-[:STATED]->(f)
FOREACH (name IN $topics |
    MERGE (t:Topic {name: name})
    MERGE (f)-[:TAGGED]->(t))
`
	neo4jFactsQuery = `
MATCH (:Subject {id: $subject})-[:STATED]->(f:Fact)
RETURN f.id AS id, f.subject AS subject, f.content AS content, f.topics AS topics, f.created_at AS created_at
ORDER BY f.created_at DESC
LIMIT $limit
`
)

func mapNeo4jFact(rec neo4jRecord) (model.Fact, error) {
	if rec == nil {
		return model.Fact{}, errors.New("neo4j: nil record")
	}
	var out model.Fact
	if v, ok := rec.Get("id"); ok {
		out.ID = toString(v)
	}
	if v, ok := rec.Get("subject"); ok {
		out.Subject = toString(v)
	}
	if v, ok := rec.Get("content"); ok {
		out.Content = toString(v)
	}
	if v, ok := rec.Get("topics"); ok {
		out.Topics = model.NormalizeTopics(toStrings(v))
	}
	if v, ok := rec.Get("created_at"); ok {
		out.CreatedAt = parseTime(toString(v))
	}
	return out, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprintf("%v", v)
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, toString(item))
		}
		return out
	}
	return nil
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
