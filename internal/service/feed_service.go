package service

import (
	"context"
	"fmt"
	"log/slog"

	"agora/internal/cache"
	"agora/internal/feed"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/validation"
)

// FeedService reads and mutates posts, comments, and likes.
type FeedService struct {
	api   PostsAPI
	cache *cache.ReadCache
}

// NewFeedService creates a FeedService. rc may be nil to disable stale reads.
func NewFeedService(api PostsAPI, rc *cache.ReadCache) *FeedService {
	return &FeedService{api: api, cache: rc}
}

// ListPosts returns the feed as seen by user (nil for anonymous). When the
// request fails and a cached copy exists, that copy is returned with stale
// set and a nil error.
func (s *FeedService) ListPosts(ctx context.Context, user *models.User) ([]models.Post, bool, error) {
	auth, username := authOf(user)

	var posts []models.Post
	stale, err := s.cache.FetchWithFallback(ctx, cache.PostsKey(username), &posts, func() error {
		var err error
		posts, err = s.api.ListPosts(ctx, auth)
		return err
	})
	if err != nil {
		observability.LogReadFailure(ctx, "posts", err, stale)
		if stale {
			return posts, true, nil
		}
		return nil, false, fmt.Errorf("list posts: %w", err)
	}
	return posts, false, nil
}

// Leaderboard returns the karma ranking, falling back to the cache like ListPosts.
func (s *FeedService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool, error) {
	var entries []models.LeaderboardEntry
	stale, err := s.cache.FetchWithFallback(ctx, cache.LeaderboardKey, &entries, func() error {
		var err error
		entries, err = s.api.Leaderboard(ctx)
		return err
	})
	if err != nil {
		observability.LogReadFailure(ctx, "leaderboard", err, stale)
		if stale {
			return entries, true, nil
		}
		return nil, false, fmt.Errorf("leaderboard: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, false, nil
}

// GetPost fetches one post with its full comment tree.
func (s *FeedService) GetPost(ctx context.Context, user *models.User, postID int64) (*models.Post, error) {
	auth, _ := authOf(user)
	post, err := s.api.GetPost(ctx, auth, postID)
	if err != nil {
		observability.LogReadFailure(ctx, "post", err, false)
		return nil, fmt.Errorf("get post %d: %w", postID, err)
	}
	return post, nil
}

// CreatePost publishes content as user.
func (s *FeedService) CreatePost(ctx context.Context, user models.User, content string) (*models.Post, error) {
	if err := validation.ValidateContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	post, err := s.api.CreatePost(ctx, user.AuthHeader, content)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// DeletePost removes post. Users who may not delete it get an
// unauthorized error without a request being sent. On success the user's
// cached feed is dropped so it cannot bring the post back.
func (s *FeedService) DeletePost(ctx context.Context, user models.User, post models.Post) error {
	if !feed.CanDelete(&user, post) {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	if err := s.api.DeletePost(ctx, user.AuthHeader, post.ID); err != nil {
		return fmt.Errorf("delete post %d: %w", post.ID, err)
	}
	if err := s.cache.Forget(ctx, cache.PostsKey(user.Username)); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to drop cached feed",
			slog.String("username", user.Username), slog.String("error", err.Error()))
	}
	return nil
}

// SubmitReply comments on postID under parent (nil for top level). Blank
// content is rejected before any request.
func (s *FeedService) SubmitReply(ctx context.Context, user models.User, postID int64, parent *int64, content string) (*models.Comment, error) {
	if err := validation.ValidateContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	c, err := s.api.CreateComment(ctx, user.AuthHeader, postID, content, parent)
	if err != nil {
		return nil, fmt.Errorf("reply to post %d: %w", postID, err)
	}
	return c, nil
}

// LikePost toggles user's like on a post.
func (s *FeedService) LikePost(ctx context.Context, user models.User, postID int64) error {
	if err := s.api.LikePost(ctx, user.AuthHeader, postID); err != nil {
		return fmt.Errorf("like post %d: %w", postID, err)
	}
	return nil
}

// LikeComment toggles user's like on a comment.
func (s *FeedService) LikeComment(ctx context.Context, user models.User, commentID int64) error {
	if err := s.api.LikeComment(ctx, user.AuthHeader, commentID); err != nil {
		return fmt.Errorf("like comment %d: %w", commentID, err)
	}
	return nil
}
