package store

import (
	"context"
	"errors"
	"strings"

	"github.com/Protocol-Lattice/go-compact/src/memory/model"
)

// DefaultFactLimit bounds Facts when the caller passes a non-positive limit.
const DefaultFactLimit = 50

// ErrSubjectRequired is returned when a fact is written or read without a subject.
var ErrSubjectRequired = errors.New("store: subject is required")

// FactStore defines the contract for long-term memory backends.
type FactStore interface {
	AddFact(ctx context.Context, subject, content string, topics []string) error
	// Facts returns up to limit facts for subject, most recent first.
	Facts(ctx context.Context, subject string, limit int) ([]model.Fact, error)
}

// SchemaInitializer allows stores to expose optional schema/bootstrap routines.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context) error
}

func validateSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return ErrSubjectRequired
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFactLimit
	}
	return limit
}
