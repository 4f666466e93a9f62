// Package models contains the wire types exchanged with the community API.
package models

import "time"

// User is the in-memory session identity. AuthHeader is opaque credential
// material sent verbatim as the Authorization header on every request.
type User struct {
	Username   string `json:"username"`
	IsStaff    bool   `json:"is_staff"`
	AuthHeader string `json:"-"`
}

// AuthorSummary is the public projection of a user embedded in posts and comments.
type AuthorSummary struct {
	Username string `json:"username"`
}

// Post represents a feed entry. Comments is only populated by the detail endpoint.
type Post struct {
	ID            int64         `json:"id"`
	Author        AuthorSummary `json:"author"`
	Content       string        `json:"content"`
	CreatedAt     time.Time     `json:"created_at"`
	LikesCount    int           `json:"likes_count"`
	IsLiked       bool          `json:"is_liked"`
	CommentsCount int           `json:"comments_count"`
	Comments      []Comment     `json:"comments,omitempty"`
}

// Comment is a node in a post's comment tree. A non-nil Parent marks a reply.
type Comment struct {
	ID         int64         `json:"id"`
	Author     AuthorSummary `json:"author"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"created_at"`
	LikesCount int           `json:"likes_count"`
	IsLiked    bool          `json:"is_liked"`
	Parent     *int64        `json:"parent"`
	Replies    []Comment     `json:"replies"`
}

// LeaderboardEntry is one ranked row. Ranking is computed server-side; the
// position in the returned slice is the rank.
type LeaderboardEntry struct {
	Username     string `json:"username"`
	Karma        int    `json:"karma"`
	PostLikes    int    `json:"post_likes"`
	CommentLikes int    `json:"comment_likes"`
}

// GuestLoginResponse is returned by the guest name claim endpoint.
type GuestLoginResponse struct {
	Username  string `json:"username"`
	IsStaff   bool   `json:"is_staff"`
	AuthToken string `json:"auth_token"`
}

// MeResponse is the caller's own profile.
type MeResponse struct {
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// CreatePostRequest is the body of POST /posts/.
type CreatePostRequest struct {
	Content string `json:"content"`
}

// CreateCommentRequest is the body of POST /posts/{id}/comments/.
// Parent is serialized as null for top-level comments.
type CreateCommentRequest struct {
	Content string `json:"content"`
	Parent  *int64 `json:"parent"`
}

// GuestLoginRequest is the body of POST /guest-login/.
type GuestLoginRequest struct {
	Username string `json:"username"`
}
