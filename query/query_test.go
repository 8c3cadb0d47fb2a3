package query

import (
	"strings"
	"testing"
	"time"
)

func TestQueryType(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"instant", Query{Text: "up"}, TypeInstant},
		{"range", Query{Text: "up", Start: now.Add(-time.Hour), End: now, Step: "1m"}, TypeRange},
		{"start only", Query{Text: "up", Start: now.Add(-time.Hour)}, TypeInstant},
		{"end only", Query{Text: "up", End: now}, TypeInstant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Type(); got != tt.want {
				t.Fatalf("Type() = %q, want %q", got, tt.want)
			}
			if want := tt.want == TypeRange; tt.q.IsRange() != want {
				t.Fatalf("IsRange() = %v, want %v", tt.q.IsRange(), want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	long := strings.Repeat("x", 80)

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"named", Query{Name: "cpu", Text: "up"}, "cpu"},
		{"short text", Query{Text: "up"}, "up"},
		{"long text truncated", Query{Text: long}, strings.Repeat("x", 50) + "..."},
		{"exactly at limit", Query{Text: strings.Repeat("y", 50)}, strings.Repeat("y", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.DisplayName(); got != tt.want {
				t.Fatalf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
