package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Protocol-Lattice/go-compact/src/memory/model"
)

// pgxConn is the subset of *pgxpool.Pool the store relies on.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore implements FactStore on a Postgres table.
type PostgresStore struct {
	DB    pgxConn
	pool  *pgxpool.Pool
	nowFn func() time.Time
}

var (
	_ FactStore         = (*PostgresStore)(nil)
	_ SchemaInitializer = (*PostgresStore)(nil)
)

const (
	postgresSchema = `
        CREATE TABLE IF NOT EXISTS memory_facts (
                id BIGSERIAL PRIMARY KEY,
                subject TEXT NOT NULL,
                content TEXT NOT NULL,
                topics TEXT[] NOT NULL DEFAULT '{}',
                created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );
        CREATE INDEX IF NOT EXISTS memory_facts_subject_created_at
                ON memory_facts (subject, created_at DESC);
        `
	postgresInsertFact = `
                INSERT INTO memory_facts (subject, content, topics, created_at)
                VALUES ($1, $2, $3, $4)
        `
	postgresSelectFacts = `
        SELECT id, subject, content, topics, created_at
        FROM memory_facts
        WHERE subject = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
        `
)

// NewPostgresStore connects to Postgres and returns a Postgres-backed FactStore implementation.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{DB: pool, pool: pool, nowFn: time.Now}, nil
}

// CreateSchema creates the facts table and its subject index.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	if _, err := ps.DB.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

// AddFact inserts one fact row.
func (ps *PostgresStore) AddFact(ctx context.Context, subject, content string, topics []string) error {
	if err := validateSubject(subject); err != nil {
		return err
	}
	if ps == nil || ps.DB == nil {
		return nil
	}
	topics = model.NormalizeTopics(topics)
	if topics == nil {
		topics = []string{}
	}
	if _, err := ps.DB.Exec(ctx, postgresInsertFact, subject, content, topics, ps.now()); err != nil {
		return fmt.Errorf("postgres insert fact: %w", err)
	}
	return nil
}

// Facts returns the most recent facts stored for subject.
func (ps *PostgresStore) Facts(ctx context.Context, subject string, limit int) ([]model.Fact, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, postgresSelectFacts, subject, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres select facts: %w", err)
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var (
			id   int64
			fact model.Fact
		)
		if err := rows.Scan(&id, &fact.Subject, &fact.Content, &fact.Topics, &fact.CreatedAt); err != nil {
			return nil, err
		}
		fact.ID = fmt.Sprint(id)
		fact.Topics = model.NormalizeTopics(fact.Topics)
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() {
	if ps != nil && ps.pool != nil {
		ps.pool.Close()
	}
}

func (ps *PostgresStore) now() time.Time {
	if ps.nowFn == nil {
		return time.Now().UTC()
	}
	return ps.nowFn().UTC()
}
