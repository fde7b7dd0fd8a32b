package collection

import (
	"net/url"
	"testing"
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }
func int64p(n int64) *int64 { return &n }

func TestQuery_MergeAndNormalize(t *testing.T) {
	tests := []struct {
		name string
		base Query
		p    Params
		want Query
	}{
		{
			name: "empty params keep the base",
			base: DefaultQuery(),
			p:    Params{},
			want: DefaultQuery(),
		},
		{
			name: "page below one clamps to default",
			base: DefaultQuery(),
			p:    Params{Page: intp(0)},
			want: DefaultQuery(),
		},
		{
			name: "negative page clamps to default",
			base: DefaultQuery(),
			p:    Params{Page: intp(-3)},
			want: DefaultQuery(),
		},
		{
			name: "limit above max clamps to max",
			base: DefaultQuery(),
			p:    Params{Limit: intp(500)},
			want: Query{Page: 1, Limit: MaxLimit, OrderBy: "createdAt", Order: "desc"},
		},
		{
			name: "limit below one clamps to default",
			base: DefaultQuery(),
			p:    Params{Limit: intp(0)},
			want: DefaultQuery(),
		},
		{
			name: "search text is trimmed",
			base: DefaultQuery(),
			p:    Params{Q: strp("  golang  ")},
			want: Query{Page: 1, Limit: 20, OrderBy: "createdAt", Order: "desc", Q: "golang"},
		},
		{
			name: "all-space search text drops to empty",
			base: Query{Page: 2, Limit: 20, OrderBy: "createdAt", Order: "desc", Q: "old"},
			p:    Params{Q: strp("   ")},
			want: Query{Page: 2, Limit: 20, OrderBy: "createdAt", Order: "desc"},
		},
		{
			name: "negative author id is dropped",
			base: DefaultQuery(),
			p:    Params{AuthorID: int64p(-1)},
			want: DefaultQuery(),
		},
		{
			name: "empty order strings restore defaults",
			base: Query{Page: 1, Limit: 20, OrderBy: "title", Order: "asc"},
			p:    Params{OrderBy: strp(""), Order: strp("")},
			want: DefaultQuery(),
		},
		{
			name: "unset fields keep previous values",
			base: Query{Page: 3, Limit: 50, OrderBy: "title", Order: "asc", Q: "go", Tags: "dev", AuthorID: 7},
			p:    Params{Page: intp(4)},
			want: Query{Page: 4, Limit: 50, OrderBy: "title", Order: "asc", Q: "go", Tags: "dev", AuthorID: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.base.merge(tt.p); got != tt.want {
				t.Errorf("merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQuery_Values(t *testing.T) {
	q := Query{Page: 2, Limit: 50, OrderBy: "title", Order: "asc", Q: "golang", Tags: "dev,web", AuthorID: 7}
	v := q.Values()

	want := map[string]string{
		"page":     "2",
		"limit":    "50",
		"orderBy":  "title",
		"order":    "asc",
		"q":        "golang",
		"tags":     "dev,web",
		"authorId": "7",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Errorf("Values()[%q] = %q, want %q", k, got, w)
		}
	}
}

func TestQuery_ValuesOmitsUnsetFilters(t *testing.T) {
	v := DefaultQuery().Values()

	for _, k := range []string{"q", "tags", "authorId"} {
		if v.Has(k) {
			t.Errorf("Values() includes %q for an unset filter", k)
		}
	}
	if got := v.Get("page"); got != "1" {
		t.Errorf("page = %q, want %q", got, "1")
	}
	if got := v.Get("limit"); got != "20" {
		t.Errorf("limit = %q, want %q", got, "20")
	}
}

func TestParamsFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("page", "3")
	v.Set("limit", "abc") // malformed, dropped
	v.Set("q", "golang")
	v.Set("authorId", "-5") // non-positive, dropped

	p := ParamsFromValues(v)

	if p.Page == nil || *p.Page != 3 {
		t.Errorf("Page = %v, want 3", p.Page)
	}
	if p.Limit != nil {
		t.Errorf("Limit = %v, want nil for malformed input", *p.Limit)
	}
	if p.Q == nil || *p.Q != "golang" {
		t.Errorf("Q = %v, want golang", p.Q)
	}
	if p.AuthorID != nil {
		t.Errorf("AuthorID = %v, want nil for non-positive input", *p.AuthorID)
	}
	if p.OrderBy != nil || p.Order != nil || p.Tags != nil {
		t.Error("absent parameters must stay nil")
	}
}
