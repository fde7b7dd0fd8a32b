package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-edge/internal/apperror"
	"github.com/sakif/blog-edge/internal/collection"
	"github.com/sakif/blog-edge/internal/middleware"
	"github.com/sakif/blog-edge/internal/model"
	"github.com/sakif/blog-edge/internal/session"
)

// PostsHandler serves the post collection routes. Each session has its own
// collection state, so pagination position and filters survive across
// requests from the same browser — that is what lets a server-rendered
// page pick up where the last one left off.
type PostsHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewPostsHandler creates a PostsHandler.
func NewPostsHandler(sessions *session.Manager, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{sessions: sessions, logger: logger}
}

func (h *PostsHandler) posts(r *http.Request) *collection.State {
	return h.sessions.Get(middleware.SID(r.Context())).Posts
}

// HandleList loads a page of posts. Query parameters merge over the
// session's previous query, so `GET /posts?page=2` keeps the active search
// and filters.
// GET /posts?page&limit&orderBy&order&q&tags&authorId
func (h *PostsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts := h.posts(r)
	if err := posts.Load(r.Context(), collection.ParamsFromValues(r.URL.Query())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts.Snapshot())
}

// HandleFeed loads the feed from an offset, replacing the session's items.
// GET /posts/feed?offset&limit
func (h *PostsHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts := h.posts(r)
	if err := posts.LoadFeed(r.Context(), offset, limit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts.Snapshot())
}

// HandleFeedMore appends the next feed chunk to the session's items.
// GET /posts/feed/more
func (h *PostsHandler) HandleFeedMore(w http.ResponseWriter, r *http.Request) {
	posts := h.posts(r)
	if err := posts.LoadMore(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts.Snapshot())
}

// HandleGet fetches one post by slug.
// GET /posts/{slug}
func (h *PostsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, apperror.ValidationFailed("slug", "post slug is required"))
		return
	}

	post, err := h.posts(r).GetBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleCreate publishes a post and patches it into the session's list.
// POST /posts
func (h *PostsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input model.PostInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if input.Title == "" || input.Slug == "" {
		writeError(w, apperror.ValidationFailed("post", "title and slug are required"))
		return
	}

	post, err := h.posts(r).CreatePost(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate applies a partial update to a post.
// PATCH /posts/{id}
func (h *PostsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.PostPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.posts(r).UpdatePost(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete deletes a post.
// DELETE /posts/{id}
func (h *PostsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts(r).DeletePost(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func postID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "post id must be a positive integer")
	}
	return id, nil
}
