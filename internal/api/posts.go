package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/blog-edge/internal/model"
)

// ListPosts fetches a page of posts. query carries the already-validated
// page/limit/orderBy/order/q/tags/authorId parameters as strings — the
// collection layer owns defaulting and clamping.
func (c *Client) ListPosts(ctx context.Context, query url.Values) (*model.PostPage, error) {
	var out model.PostPage
	if err := c.do(ctx, http.MethodGet, "/posts", query, nil, &out, "Failed to load posts"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Feed fetches posts with offset pagination. hasMore in the response is
// server-authoritative.
func (c *Client) Feed(ctx context.Context, offset, limit int) (*model.FeedPage, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var out model.FeedPage
	if err := c.do(ctx, http.MethodGet, "/posts/feed", query, nil, &out, "Failed to load feed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPost fetches one post by slug.
func (c *Client) GetPost(ctx context.Context, slug string) (*model.Post, error) {
	var out model.Post
	path := "/posts/" + url.PathEscape(slug)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out, "Failed to load post"); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost publishes a new post and returns the server-assigned record.
func (c *Client) CreatePost(ctx context.Context, input model.PostInput) (*model.Post, error) {
	var out model.Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, input, &out, "Failed to create post"); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost applies a partial update and returns the full updated record.
func (c *Client) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	var out model.Post
	path := fmt.Sprintf("/posts/%d", id)
	if err := c.do(ctx, http.MethodPatch, path, nil, patch, &out, "Failed to update post"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost deletes a post. The platform echoes the deleted record back.
func (c *Client) DeletePost(ctx context.Context, id int64) (*model.Post, error) {
	var out model.Post
	path := fmt.Sprintf("/posts/%d", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &out, "Failed to delete post"); err != nil {
		return nil, err
	}
	return &out, nil
}
