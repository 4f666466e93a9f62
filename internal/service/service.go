// Package service sits between the terminal UI and the remote API. It applies
// client-side validation, serves stale reads from the read cache, and maps
// transport failures onto the errors the UI reports.
package service

import (
	"context"

	"agora/internal/models"
)

// PostsAPI is the subset of the API client used for feed content.
type PostsAPI interface {
	ListPosts(ctx context.Context, authHeader string) ([]models.Post, error)
	GetPost(ctx context.Context, authHeader string, postID int64) (*models.Post, error)
	CreatePost(ctx context.Context, authHeader, content string) (*models.Post, error)
	DeletePost(ctx context.Context, authHeader string, postID int64) error
	CreateComment(ctx context.Context, authHeader string, postID int64, content string, parent *int64) (*models.Comment, error)
	LikePost(ctx context.Context, authHeader string, postID int64) error
	LikeComment(ctx context.Context, authHeader string, commentID int64) error
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// AuthAPI is the subset of the API client used to obtain a session.
type AuthAPI interface {
	GuestLogin(ctx context.Context, username string) (*models.GuestLoginResponse, error)
	Me(ctx context.Context, authHeader string) (*models.MeResponse, error)
}

func authOf(user *models.User) (header, username string) {
	if user == nil {
		return "", ""
	}
	return user.AuthHeader, user.Username
}
