// Package collection holds the reactive query state for a paginated post
// collection: the current page/filter/sort intent, the last fetched items,
// and derived view state (loading, error, pagination metadata).
//
// Two pagination models coexist and must not be conflated:
//
//   - page mode (Load): page/totalPages from the server, hasMore derived
//     client-side as currentPage < totalPages;
//   - feed mode (LoadFeed/LoadMore): running offset, hasMore reported by
//     the server, LoadMore appends instead of replacing.
//
// Callers switching between modes on one State must Clear in between.
//
// Every fetch carries a generation number. A response whose generation is
// no longer the latest is discarded, so overlapping loads can never let the
// later-arriving (rather than later-issued) response win.
package collection

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sakif/blog-edge/internal/api"
	"github.com/sakif/blog-edge/internal/apperror"
	"github.com/sakif/blog-edge/internal/model"
	"github.com/sakif/blog-edge/internal/reactive"
)

// State is the collection query state for one session. Methods are safe
// for concurrent use.
type State struct {
	client *api.Client
	logger *slog.Logger

	mu    sync.Mutex // guards query
	query Query

	gen atomic.Uint64

	items       *reactive.Cell[[]model.Post]
	loading     *reactive.Cell[bool]
	errMsg      *reactive.Cell[string]
	total       *reactive.Cell[int]
	currentPage *reactive.Cell[int]
	totalPages  *reactive.Cell[int]
	limit       *reactive.Cell[int]
	hasMore     *reactive.Cell[bool]
}

// New creates an empty State issuing requests through client — normally the
// session's authenticated API client.
func New(client *api.Client, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		client:      client,
		logger:      logger,
		query:       DefaultQuery(),
		items:       reactive.NewCell([]model.Post{}),
		loading:     reactive.NewCell(false),
		errMsg:      reactive.NewCell(""),
		total:       reactive.NewCell(0),
		currentPage: reactive.NewCell(DefaultPage),
		totalPages:  reactive.NewCell(0),
		limit:       reactive.NewCell(DefaultLimit),
		hasMore:     reactive.NewCell(false),
	}
}

// Snapshot is a consistent-enough view of the collection for rendering.
type Snapshot struct {
	Items       []model.Post `json:"items"`
	Total       int          `json:"total"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
	Limit       int          `json:"limit"`
	HasMore     bool         `json:"hasMore"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
}

// Snapshot returns the current view state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Items:       s.items.Get(),
		Total:       s.total.Get(),
		CurrentPage: s.currentPage.Get(),
		TotalPages:  s.totalPages.Get(),
		Limit:       s.limit.Get(),
		HasMore:     s.hasMore.Get(),
		Loading:     s.loading.Get(),
		Error:       s.errMsg.Get(),
	}
}

// Query returns the current fully-specified query.
func (s *State) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Items returns the current item list.
func (s *State) Items() []model.Post { return s.items.Get() }

// Total returns the server-reported total item count.
func (s *State) Total() int { return s.total.Get() }

// HasMore reports whether another page (or feed chunk) exists.
func (s *State) HasMore() bool { return s.hasMore.Get() }

// Loading reports whether a fetch is in flight.
func (s *State) Loading() bool { return s.loading.Get() }

// Error returns the current error message, "" when none.
func (s *State) Error() string { return s.errMsg.Get() }

// Load merges p over the previous query and fetches that page. On success
// the whole result set replaces the current one and hasMore is recomputed
// as currentPage < totalPages. On failure the error signal carries a
// human-readable message and the result set is emptied. Loading always
// clears, whatever the outcome. The error is also returned so edge
// handlers can map it to a status code.
func (s *State) Load(ctx context.Context, p Params) error {
	s.mu.Lock()
	s.query = s.query.merge(p)
	q := s.query
	s.mu.Unlock()

	gen := s.gen.Add(1)
	s.loading.Set(true)
	s.errMsg.Set("")

	page, err := s.client.ListPosts(ctx, q.Values())

	if gen != s.gen.Load() {
		// A newer load was issued while this one was in flight; its result
		// owns the state now.
		s.logger.Debug("collection: discarding stale load response")
		return nil
	}

	if err != nil {
		s.failLoad(err, "Failed to load posts")
		s.loading.Set(false)
		return err
	}

	s.items.Set(page.Items)
	s.total.Set(page.Meta.Total)
	s.currentPage.Set(page.Meta.Page)
	s.totalPages.Set(page.Meta.TotalPages)
	s.limit.Set(page.Meta.Limit)
	s.hasMore.Set(page.Meta.Page < page.Meta.TotalPages)
	s.loading.Set(false)
	return nil
}

// LoadFeed fetches the feed from offset, replacing the current items.
// hasMore comes from the server in this mode.
func (s *State) LoadFeed(ctx context.Context, offset, limit int) error {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	gen := s.gen.Add(1)
	s.loading.Set(true)
	s.errMsg.Set("")

	feed, err := s.client.Feed(ctx, offset, limit)

	if gen != s.gen.Load() {
		s.logger.Debug("collection: discarding stale feed response")
		return nil
	}

	if err != nil {
		s.failLoad(err, "Failed to load feed")
		s.loading.Set(false)
		return err
	}

	s.items.Set(feed.Items)
	s.total.Set(feed.Meta.Total)
	s.limit.Set(feed.Meta.Limit)
	s.hasMore.Set(feed.Meta.HasMore)
	s.loading.Set(false)
	return nil
}

// LoadMore fetches the next feed chunk (offset = current item count) and
// appends it. Server-reported hasMore and total are trusted as-is.
func (s *State) LoadMore(ctx context.Context) error {
	offset := len(s.items.Get())
	limit := s.limit.Get()
	if limit < 1 {
		limit = DefaultLimit
	}

	gen := s.gen.Add(1)
	s.loading.Set(true)

	feed, err := s.client.Feed(ctx, offset, limit)

	if gen != s.gen.Load() {
		s.logger.Debug("collection: discarding stale load-more response")
		return nil
	}

	if err != nil {
		s.setError(err, "Failed to load more posts")
		s.loading.Set(false)
		return err
	}

	s.items.Update(func(cur []model.Post) []model.Post {
		return append(append([]model.Post{}, cur...), feed.Items...)
	})
	s.total.Set(feed.Meta.Total)
	s.hasMore.Set(feed.Meta.HasMore)
	s.loading.Set(false)
	return nil
}

// Search loads page 1 with the given search text. Empty (or all-space)
// text is a full filter reset instead.
func (s *State) Search(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.ResetFilters(ctx)
	}
	page := DefaultPage
	return s.Load(ctx, Params{Q: &text, Page: &page})
}

// FilterByTags loads page 1 filtered to the given tags.
func (s *State) FilterByTags(ctx context.Context, tags []string) error {
	joined := strings.Join(tags, ",")
	page := DefaultPage
	return s.Load(ctx, Params{Tags: &joined, Page: &page})
}

// FilterByAuthor loads page 1 filtered to one author.
func (s *State) FilterByAuthor(ctx context.Context, authorID int64) error {
	page := DefaultPage
	return s.Load(ctx, Params{AuthorID: &authorID, Page: &page})
}

// MyPosts is FilterByAuthor with extra parameters layered in.
func (s *State) MyPosts(ctx context.Context, userID int64, p Params) error {
	p.AuthorID = &userID
	return s.Load(ctx, p)
}

// SortBy reloads with a new sort order, keeping the current page.
func (s *State) SortBy(ctx context.Context, orderBy, order string) error {
	return s.Load(ctx, Params{OrderBy: &orderBy, Order: &order})
}

// GoToPage loads a specific page of the current query.
func (s *State) GoToPage(ctx context.Context, page int) error {
	return s.Load(ctx, Params{Page: &page})
}

// ChangePageSize reloads from page 1 with a new page size.
func (s *State) ChangePageSize(ctx context.Context, limit int) error {
	page := DefaultPage
	return s.Load(ctx, Params{Limit: &limit, Page: &page})
}

// ResetFilters restores the default query and reloads.
func (s *State) ResetFilters(ctx context.Context) error {
	s.mu.Lock()
	s.query = DefaultQuery()
	s.mu.Unlock()
	return s.Load(ctx, Params{})
}

// Clear empties the collection without issuing a request. Any in-flight
// fetch is invalidated — its response will be discarded. Required when
// switching between page mode and feed mode.
func (s *State) Clear() {
	s.gen.Add(1)
	s.items.Set([]model.Post{})
	s.total.Set(0)
	s.currentPage.Set(DefaultPage)
	s.totalPages.Set(0)
	s.hasMore.Set(false)
	s.errMsg.Set("")
}

// GetBySlug fetches one post, with loading/error bookkeeping on this state.
func (s *State) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	s.loading.Set(true)
	s.errMsg.Set("")

	post, err := s.client.GetPost(ctx, slug)
	if err != nil {
		s.setError(err, "Failed to load post")
		s.loading.Set(false)
		return nil, err
	}
	s.loading.Set(false)
	return post, nil
}

// CreatePost publishes a post. Once the server confirms, the new post is
// prepended and total incremented — no list refetch. The patch happens
// strictly after confirmation, never optimistically before it.
func (s *State) CreatePost(ctx context.Context, input model.PostInput) (*model.Post, error) {
	s.loading.Set(true)
	s.errMsg.Set("")

	post, err := s.client.CreatePost(ctx, input)
	if err != nil {
		s.setError(err, "Failed to create post")
		s.loading.Set(false)
		return nil, err
	}

	s.items.Update(func(cur []model.Post) []model.Post {
		return append([]model.Post{*post}, cur...)
	})
	s.total.Update(func(t int) int { return t + 1 })
	s.loading.Set(false)
	return post, nil
}

// UpdatePost applies a partial update and swaps the confirmed record into
// the item list in place.
func (s *State) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	s.loading.Set(true)
	s.errMsg.Set("")

	post, err := s.client.UpdatePost(ctx, id, patch)
	if err != nil {
		s.setError(err, "Failed to update post")
		s.loading.Set(false)
		return nil, err
	}

	s.items.Update(func(cur []model.Post) []model.Post {
		out := make([]model.Post, len(cur))
		for i, p := range cur {
			if p.ID == id {
				out[i] = *post
			} else {
				out[i] = p
			}
		}
		return out
	})
	s.loading.Set(false)
	return post, nil
}

// DeletePost removes a post. Total is decremented whenever the server
// confirms the delete, even when the id was not in the local items — the
// count then disagrees with the visible list, which is surfaced to the
// caller as-is rather than silently reconciled.
func (s *State) DeletePost(ctx context.Context, id int64) error {
	s.loading.Set(true)
	s.errMsg.Set("")

	if _, err := s.client.DeletePost(ctx, id); err != nil {
		s.setError(err, "Failed to delete post")
		s.loading.Set(false)
		return err
	}

	s.items.Update(func(cur []model.Post) []model.Post {
		out := cur[:0:0]
		for _, p := range cur {
			if p.ID != id {
				out = append(out, p)
			}
		}
		return out
	})
	s.total.Update(func(t int) int {
		if t <= 0 {
			return 0
		}
		return t - 1
	})
	s.loading.Set(false)
	return nil
}

// failLoad records a load failure: error message set, result set emptied.
func (s *State) failLoad(err error, fallback string) {
	s.setError(err, fallback)
	s.items.Set([]model.Post{})
	s.total.Set(0)
	s.currentPage.Set(DefaultPage)
	s.totalPages.Set(0)
	s.hasMore.Set(false)
}

// setError extracts the human-readable message (upstream messages are
// already array-joined by the api layer) or falls back to the canned
// per-operation default.
func (s *State) setError(err error, fallback string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		s.errMsg.Set(appErr.Message)
		return
	}
	s.errMsg.Set(fallback)
}
