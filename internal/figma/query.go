package figma

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type queryParam struct {
	key   string
	value string
}

// Query is an ordered query string. Setters ignore absent (nil) values so
// optional tool arguments can be passed straight through.
type Query struct {
	params []queryParam
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) add(key, value string) *Query {
	q.params = append(q.params, queryParam{key: key, value: value})
	return q
}

func (q *Query) Text(key string, v *string) *Query {
	if v == nil {
		return q
	}
	return q.add(key, *v)
}

func (q *Query) Int(key string, v *int64) *Query {
	if v == nil {
		return q
	}
	return q.add(key, strconv.FormatInt(*v, 10))
}

func (q *Query) Float(key string, v *float64) *Query {
	if v == nil {
		return q
	}
	return q.add(key, strconv.FormatFloat(*v, 'f', -1, 64))
}

func (q *Query) Bool(key string, v *bool) *Query {
	if v == nil {
		return q
	}
	return q.add(key, strconv.FormatBool(*v))
}

// List joins values with commas. Blank values are dropped and a nil slice
// adds nothing.
func (q *Query) List(key string, values []string) *Query {
	if values == nil {
		return q
	}
	kept := lo.FilterMap(values, func(v string, _ int) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	})
	return q.add(key, strings.Join(kept, ","))
}

// Encode renders "?k=v&..." in insertion order, or "" when empty.
func (q *Query) Encode() string {
	if q == nil || len(q.params) == 0 {
		return ""
	}
	parts := lo.Map(q.params, func(p queryParam, _ int) string {
		return url.QueryEscape(p.key) + "=" + escapeValue(p.value)
	})
	return "?" + strings.Join(parts, "&")
}

// escapeValue query-escapes v but leaves the separators Figma uses inside
// node ids readable.
func escapeValue(v string) string {
	escaped := url.QueryEscape(v)
	return strings.NewReplacer("%2C", ",", "%3A", ":").Replace(escaped)
}
