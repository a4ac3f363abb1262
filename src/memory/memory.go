// Package memory exposes the long-term fact stores used to persist compacted
// summaries.
package memory

import (
	"github.com/Protocol-Lattice/go-compact/src/memory/model"
	storepkg "github.com/Protocol-Lattice/go-compact/src/memory/store"
)

// Type aliases keeping callers on a single import.
type (
	Fact = model.Fact

	FactStore         = storepkg.FactStore
	SchemaInitializer = storepkg.SchemaInitializer

	InMemoryStore = storepkg.InMemoryStore
	PostgresStore = storepkg.PostgresStore
	MongoStore    = storepkg.MongoStore
	Neo4jStore    = storepkg.Neo4jStore
)

const (
	DefaultTopic     = model.DefaultTopic
	DefaultFactLimit = storepkg.DefaultFactLimit
)

var (
	ErrSubjectRequired  = storepkg.ErrSubjectRequired
	ErrNeo4jUnavailable = storepkg.ErrNeo4jUnavailable

	SubjectFor = model.SubjectFor

	NewInMemoryStore     = storepkg.NewInMemoryStore
	NewPostgresStore     = storepkg.NewPostgresStore
	NewMongoStore        = storepkg.NewMongoStore
	NewNeo4jStoreFromURI = storepkg.NewNeo4jStoreFromURI
	WrapNeo4jDriver      = storepkg.WrapNeo4jDriver
)
