package model

// Author is the embedded author summary on a Post.
type Author struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Nickname *string `json:"nickname"`
	Image    *string `json:"image"`
}

// Post is a published article. Server-owned: the client holds a cached copy
// that can go stale after a concurrent edit elsewhere — there is no
// versioning or etag to detect that.
type Post struct {
	ID         int64    `json:"id"`
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CoverImage *string  `json:"coverImage"`
	Tags       []string `json:"tags"`
	AuthorID   int64    `json:"authorId"`
	Author     Author   `json:"author"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

// PostInput is the body for creating a post.
type PostInput struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CoverImage *string  `json:"coverImage,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// PostPatch is a partial post update; nil fields are left untouched.
type PostPatch struct {
	Slug       *string   `json:"slug,omitempty"`
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	CoverImage *string   `json:"coverImage,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// PageMeta describes page-number pagination (GET /posts).
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// PostPage is the page-mode list response.
type PostPage struct {
	Items []Post   `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// FeedMeta describes offset pagination (GET /posts/feed). HasMore is
// server-authoritative in this mode — it is never derived client-side.
type FeedMeta struct {
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// FeedPage is the offset-mode list response.
type FeedPage struct {
	Items []Post   `json:"items"`
	Meta  FeedMeta `json:"meta"`
}
