package collection

import (
	"net/url"
	"strconv"
	"strings"
)

// Pagination bounds. A query is always fully specified before a request is
// issued: absent values take these defaults, out-of-range values are
// clamped, and malformed optional filters are dropped rather than rejected.
const (
	DefaultPage    = 1
	DefaultLimit   = 20
	MaxLimit       = 100
	DefaultOrderBy = "createdAt"
	DefaultOrder   = "desc"
)

// Query is the fully-specified intent for the next page-mode fetch.
type Query struct {
	Page     int
	Limit    int
	OrderBy  string
	Order    string
	Q        string // search text; empty = no search
	Tags     string // comma-separated; empty = no tag filter
	AuthorID int64  // 0 = no author filter
}

// DefaultQuery returns the initial query state.
func DefaultQuery() Query {
	return Query{
		Page:    DefaultPage,
		Limit:   DefaultLimit,
		OrderBy: DefaultOrderBy,
		Order:   DefaultOrder,
	}
}

// Params is a partial query: nil fields keep their previous value.
type Params struct {
	Page     *int
	Limit    *int
	OrderBy  *string
	Order    *string
	Q        *string
	Tags     *string
	AuthorID *int64
}

// merge lays p over q and normalises the result.
func (q Query) merge(p Params) Query {
	out := q
	if p.Page != nil {
		out.Page = *p.Page
	}
	if p.Limit != nil {
		out.Limit = *p.Limit
	}
	if p.OrderBy != nil {
		out.OrderBy = *p.OrderBy
	}
	if p.Order != nil {
		out.Order = *p.Order
	}
	if p.Q != nil {
		out.Q = *p.Q
	}
	if p.Tags != nil {
		out.Tags = *p.Tags
	}
	if p.AuthorID != nil {
		out.AuthorID = *p.AuthorID
	}
	return out.normalized()
}

// normalized clamps and scrubs a query so it is always safe to send:
// page ≥ 1, limit in [1,MaxLimit], text filters trimmed and dropped when
// empty, authorId dropped unless positive. Malformed input silently degrades
// to defaults rather than failing the request.
func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.OrderBy == "" {
		q.OrderBy = DefaultOrderBy
	}
	if q.Order == "" {
		q.Order = DefaultOrder
	}
	q.Q = strings.TrimSpace(q.Q)
	q.Tags = strings.TrimSpace(q.Tags)
	if q.AuthorID < 0 {
		q.AuthorID = 0
	}
	return q
}

// Values renders the query as request parameters. Every value is a string;
// optional filters are present only when set.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("orderBy", q.OrderBy)
	v.Set("order", q.Order)
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Tags != "" {
		v.Set("tags", q.Tags)
	}
	if q.AuthorID > 0 {
		v.Set("authorId", strconv.FormatInt(q.AuthorID, 10))
	}
	return v
}

// ParamsFromValues parses request parameters into a partial query.
// Non-numeric page/limit/authorId are dropped (the previous or default
// value applies); empty strings are dropped too.
func ParamsFromValues(v url.Values) Params {
	var p Params
	if raw := v.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			p.Page = &n
		}
	}
	if raw := v.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			p.Limit = &n
		}
	}
	if raw := v.Get("orderBy"); raw != "" {
		p.OrderBy = &raw
	}
	if raw := v.Get("order"); raw != "" {
		p.Order = &raw
	}
	if raw := v.Get("q"); raw != "" {
		p.Q = &raw
	}
	if raw := v.Get("tags"); raw != "" {
		p.Tags = &raw
	}
	if raw := v.Get("authorId"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			p.AuthorID = &n
		}
	}
	return p
}
