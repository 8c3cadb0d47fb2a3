package query

import (
	"fmt"
	"time"

	"github.com/xscopehub/promtools/apierr"
)

// Normalize converts a batch of heterogeneous query inputs into canonical
// Query values. Each input may be a plain string, a Query (or *Query), or a
// loose map with at least a "query" key and optionally "name", "description",
// "category", "timeout", "start", "end" and "step". Validation is eager: the
// first invalid input aborts the whole batch before any network activity.
func Normalize(inputs []any) ([]Query, error) {
	queries := make([]Query, 0, len(inputs))
	for _, in := range inputs {
		q, err := normalizeOne(in)
		if err != nil {
			return nil, err
		}
		if q.IsRange() && q.Step == "" {
			return nil, &apierr.ValidationError{Query: q.Text, Reason: "range query requires step"}
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func normalizeOne(in any) (Query, error) {
	switch v := in.(type) {
	case string:
		return Query{Text: v}, nil
	case Query:
		return v, nil
	case *Query:
		if v == nil {
			return Query{}, &apierr.UnsupportedInputError{Type: "nil *Query"}
		}
		return *v, nil
	case map[string]any:
		return fromMap(v)
	default:
		return Query{}, &apierr.UnsupportedInputError{Type: fmt.Sprintf("%T", in)}
	}
}

func fromMap(m map[string]any) (Query, error) {
	text, ok := m["query"].(string)
	if !ok || text == "" {
		return Query{}, &apierr.ValidationError{Reason: "query key is required"}
	}

	q := Query{
		Text:        text,
		Name:        stringKey(m, "name"),
		Description: stringKey(m, "description"),
		Category:    stringKey(m, "category"),
		Timeout:     stringKey(m, "timeout"),
		Step:        stringKey(m, "step"),
	}

	var err error
	if q.Start, err = timeKey(m, "start"); err != nil {
		return Query{}, &apierr.ValidationError{Query: text, Reason: err.Error()}
	}
	if q.End, err = timeKey(m, "end"); err != nil {
		return Query{}, &apierr.ValidationError{Query: text, Reason: err.Error()}
	}
	return q, nil
}

func stringKey(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// timeKey accepts time.Time values or RFC3339 strings, which is what YAML
// and JSON-decoded batch files produce.
func timeKey(m map[string]any, key string) (time.Time, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s is not an RFC3339 timestamp", key)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("%s must be a time or RFC3339 string", key)
	}
}
