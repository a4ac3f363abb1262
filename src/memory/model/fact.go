// Package model holds the records persisted by the long-term memory stores.
package model

import (
	"strings"
	"time"
)

// SubjectPrefix namespaces subjects derived from user identifiers.
const SubjectPrefix = "user:"

// DefaultTopic tags facts produced by the persisting fetch wrapper.
const DefaultTopic = "crawl_summary"

// Fact is a single piece of text remembered about a subject.
type Fact struct {
	ID        string
	Subject   string
	Content   string
	Topics    []string
	CreatedAt time.Time
}

// SubjectFor returns the memory subject for a user identifier.
func SubjectFor(userID string) string {
	return SubjectPrefix + userID
}

// NormalizeTopics trims topics, drops blanks and duplicates, and keeps the
// first-seen order. A nil or empty result becomes nil.
func NormalizeTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// HasTopic reports whether the fact is tagged with topic.
func (f Fact) HasTopic(topic string) bool {
	for _, t := range f.Topics {
		if t == topic {
			return true
		}
	}
	return false
}
