// Package query holds the canonical query and result model shared by the
// Prometheus client: normalization of heterogeneous inputs into Query values
// and construction of Result values from API responses.
package query

import (
	"fmt"
	"time"
)

const displayNameLimit = 50

// Query is the canonical representation of a single PromQL request. A Query
// is a range query iff both Start and End are set; range queries additionally
// require a non-empty Step. Queries are constructed once by Normalize and
// treated as immutable afterwards.
type Query struct {
	Name        string
	Text        string
	Description string
	Category    string
	Timeout     string

	// Range query fields. Zero Start/End mean an instant query.
	Start time.Time
	End   time.Time
	Step  string
}

// IsRange reports whether the query covers a time window.
func (q Query) IsRange() bool {
	return !q.Start.IsZero() && !q.End.IsZero()
}

// Type returns "range" or "instant".
func (q Query) Type() string {
	if q.IsRange() {
		return TypeRange
	}
	return TypeInstant
}

// DisplayName returns the query name, or the query text truncated for display.
func (q Query) DisplayName() string {
	if q.Name != "" {
		return q.Name
	}
	return truncate(q.Text)
}

func (q Query) String() string {
	name := "no_name"
	if q.Name != "" {
		name = fmt.Sprintf("name=%q", q.Name)
	}
	return fmt.Sprintf("Query(%s, query=%q, type=%s)", name, q.Text, q.Type())
}

func truncate(s string) string {
	if len(s) <= displayNameLimit {
		return s
	}
	return s[:displayNameLimit] + "..."
}

// Query type tags used on Query and Result values.
const (
	TypeInstant = "instant"
	TypeRange   = "range"
)
