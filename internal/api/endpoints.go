package api

import (
	"context"
	"fmt"
	"net/http"

	"agora/internal/models"
)

// ListPosts returns the feed in API order. authHeader may be empty.
func (c *Client) ListPosts(ctx context.Context, authHeader string) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/", "/posts/", authHeader, nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// CreatePost publishes content as the authenticated user.
func (c *Client) CreatePost(ctx context.Context, authHeader, content string) (*models.Post, error) {
	var post models.Post
	req := models.CreatePostRequest{Content: content}
	if err := c.do(ctx, http.MethodPost, "/posts/", "/posts/", authHeader, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post. The server decides whether the caller may.
func (c *Client) DeletePost(ctx context.Context, authHeader string, postID int64) error {
	return c.do(ctx, http.MethodDelete, "/posts/{id}/", fmt.Sprintf("/posts/%d/", postID), authHeader, nil, nil)
}

// GetPost returns a post with its full comment tree.
func (c *Client) GetPost(ctx context.Context, authHeader string, postID int64) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/{id}/", fmt.Sprintf("/posts/%d/", postID), authHeader, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreateComment adds a comment to a post. A nil parent creates a top-level comment.
func (c *Client) CreateComment(ctx context.Context, authHeader string, postID int64, content string, parent *int64) (*models.Comment, error) {
	var comment models.Comment
	req := models.CreateCommentRequest{Content: content, Parent: parent}
	path := fmt.Sprintf("/posts/%d/comments/", postID)
	if err := c.do(ctx, http.MethodPost, "/posts/{id}/comments/", path, authHeader, req, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// LikePost toggles the caller's like on a post.
func (c *Client) LikePost(ctx context.Context, authHeader string, postID int64) error {
	return c.do(ctx, http.MethodPost, "/posts/{id}/like/", fmt.Sprintf("/posts/%d/like/", postID), authHeader, nil, nil)
}

// LikeComment toggles the caller's like on a comment.
func (c *Client) LikeComment(ctx context.Context, authHeader string, commentID int64) error {
	return c.do(ctx, http.MethodPost, "/comments/{id}/like/", fmt.Sprintf("/comments/%d/like/", commentID), authHeader, nil, nil)
}

// GuestLogin registers or re-claims a display name.
func (c *Client) GuestLogin(ctx context.Context, username string) (*models.GuestLoginResponse, error) {
	var out models.GuestLoginResponse
	req := models.GuestLoginRequest{Username: username}
	if err := c.do(ctx, http.MethodPost, "/guest-login/", "/guest-login/", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile the credential belongs to.
func (c *Client) Me(ctx context.Context, authHeader string) (*models.MeResponse, error) {
	var out models.MeResponse
	if err := c.do(ctx, http.MethodGet, "/me/", "/me/", authHeader, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns users ranked by karma, highest first.
func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/leaderboard/", "/leaderboard/", "", nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}
