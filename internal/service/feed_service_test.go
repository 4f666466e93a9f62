package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/internal/cache"
	"agora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostsAPI is a mock of the PostsAPI interface
type MockPostsAPI struct {
	mock.Mock
}

func (m *MockPostsAPI) ListPosts(ctx context.Context, authHeader string) ([]models.Post, error) {
	args := m.Called(ctx, authHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockPostsAPI) GetPost(ctx context.Context, authHeader string, postID int64) (*models.Post, error) {
	args := m.Called(ctx, authHeader, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostsAPI) CreatePost(ctx context.Context, authHeader, content string) (*models.Post, error) {
	args := m.Called(ctx, authHeader, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostsAPI) DeletePost(ctx context.Context, authHeader string, postID int64) error {
	args := m.Called(ctx, authHeader, postID)
	return args.Error(0)
}

func (m *MockPostsAPI) CreateComment(ctx context.Context, authHeader string, postID int64, content string, parent *int64) (*models.Comment, error) {
	args := m.Called(ctx, authHeader, postID, content, parent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockPostsAPI) LikePost(ctx context.Context, authHeader string, postID int64) error {
	args := m.Called(ctx, authHeader, postID)
	return args.Error(0)
}

func (m *MockPostsAPI) LikeComment(ctx context.Context, authHeader string, commentID int64) error {
	args := m.Called(ctx, authHeader, commentID)
	return args.Error(0)
}

func (m *MockPostsAPI) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

var errDown = errors.New("connection refused")

func newReadCache(t *testing.T) *cache.ReadCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewReadCache(client, time.Minute)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeValidation), "expected validation error, got %v", err)
}

func TestFeedService_ListPosts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	nova := &models.User{Username: "nova", AuthHeader: "Bearer n"}

	t.Run("anonymous sends no credential", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		m.On("ListPosts", ctx, "").Return([]models.Post{{ID: 1}}, nil)

		posts, stale, err := NewFeedService(m, nil).ListPosts(ctx, nil)
		require.NoError(t, err)
		assert.False(t, stale)
		assert.Len(t, posts, 1)
		m.AssertExpectations(t)
	})

	t.Run("failure without cache", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		m.On("ListPosts", ctx, "Bearer n").Return(nil, errDown)

		posts, stale, err := NewFeedService(m, nil).ListPosts(ctx, nova)
		assert.ErrorIs(t, err, errDown)
		assert.False(t, stale)
		assert.Nil(t, posts)
	})

	t.Run("failure served from cache", func(t *testing.T) {
		t.Parallel()
		rc := newReadCache(t)
		m := new(MockPostsAPI)
		m.On("ListPosts", ctx, "Bearer n").Return([]models.Post{{ID: 7, Content: "cached"}}, nil).Once()
		m.On("ListPosts", ctx, "Bearer n").Return(nil, errDown).Once()
		svc := NewFeedService(m, rc)

		_, _, err := svc.ListPosts(ctx, nova)
		require.NoError(t, err)

		posts, stale, err := svc.ListPosts(ctx, nova)
		require.NoError(t, err)
		assert.True(t, stale)
		require.Len(t, posts, 1)
		assert.Equal(t, "cached", posts[0].Content)
		m.AssertExpectations(t)
	})

	t.Run("cache is per user", func(t *testing.T) {
		t.Parallel()
		rc := newReadCache(t)
		m := new(MockPostsAPI)
		m.On("ListPosts", ctx, "Bearer n").Return([]models.Post{{ID: 7}}, nil).Once()
		m.On("ListPosts", ctx, "").Return(nil, errDown).Once()
		svc := NewFeedService(m, rc)

		_, _, err := svc.ListPosts(ctx, nova)
		require.NoError(t, err)

		_, stale, err := svc.ListPosts(ctx, nil)
		assert.Error(t, err)
		assert.False(t, stale)
	})
}

func TestFeedService_Leaderboard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rc := newReadCache(t)
	m := new(MockPostsAPI)
	m.On("Leaderboard", ctx).Return([]models.LeaderboardEntry{{Username: "nova", Karma: 3}}, nil).Once()
	m.On("Leaderboard", ctx).Return(nil, errDown).Once()
	svc := NewFeedService(m, rc)

	entries, stale, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.False(t, stale)
	require.Len(t, entries, 1)

	entries, stale, err = svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, 3, entries[0].Karma)
}

func TestFeedService_CreatePost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := models.User{Username: "nova", AuthHeader: "Bearer n"}

	t.Run("blank content never reaches the API", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		_, err := NewFeedService(m, nil).CreatePost(ctx, user, " \n\t")
		assertValidationError(t, err)
		m.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("content is sent unmodified", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		m.On("CreatePost", ctx, "Bearer n", "  hi  ").Return(&models.Post{ID: 3}, nil)
		p, err := NewFeedService(m, nil).CreatePost(ctx, user, "  hi  ")
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.ID)
		m.AssertExpectations(t)
	})

	t.Run("api failure propagates", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		m.On("CreatePost", ctx, "Bearer n", "hi").Return(nil, errDown)
		_, err := NewFeedService(m, nil).CreatePost(ctx, user, "hi")
		assert.ErrorIs(t, err, errDown)
	})
}

func TestFeedService_DeletePost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	post := models.Post{ID: 5, Author: models.AuthorSummary{Username: "alice"}}

	t.Run("non-author non-staff is refused locally", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		err := NewFeedService(m, nil).DeletePost(ctx, models.User{Username: "bob"}, post)
		assert.True(t, models.HasCode(err, models.CodeUnauthorized))
		m.AssertNotCalled(t, "DeletePost", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("staff", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		m.On("DeletePost", ctx, "Basic x", int64(5)).Return(nil)
		err := NewFeedService(m, nil).DeletePost(ctx, models.User{Username: "mod", IsStaff: true, AuthHeader: "Basic x"}, post)
		require.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("deleted post is not served from cache", func(t *testing.T) {
		t.Parallel()
		rc := newReadCache(t)
		alice := models.User{Username: "alice", AuthHeader: "Bearer a"}
		m := new(MockPostsAPI)
		m.On("ListPosts", ctx, "Bearer a").Return([]models.Post{post}, nil).Once()
		m.On("DeletePost", ctx, "Bearer a", int64(5)).Return(nil)
		m.On("ListPosts", ctx, "Bearer a").Return(nil, errDown).Once()
		svc := NewFeedService(m, rc)

		_, _, err := svc.ListPosts(ctx, &alice)
		require.NoError(t, err)
		require.NoError(t, svc.DeletePost(ctx, alice, post))

		posts, stale, err := svc.ListPosts(ctx, &alice)
		assert.ErrorIs(t, err, errDown)
		assert.False(t, stale)
		assert.Empty(t, posts)
		m.AssertExpectations(t)
	})
}

func TestFeedService_SubmitReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := models.User{Username: "nova", AuthHeader: "Bearer n"}

	t.Run("blank reply", func(t *testing.T) {
		t.Parallel()
		m := new(MockPostsAPI)
		_, err := NewFeedService(m, nil).SubmitReply(ctx, user, 1, nil, "   ")
		assertValidationError(t, err)
		m.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nested reply carries parent", func(t *testing.T) {
		t.Parallel()
		parent := int64(12)
		m := new(MockPostsAPI)
		m.On("CreateComment", ctx, "Bearer n", int64(1), "yes", &parent).Return(&models.Comment{ID: 13, Parent: &parent}, nil)
		c, err := NewFeedService(m, nil).SubmitReply(ctx, user, 1, &parent, "yes")
		require.NoError(t, err)
		assert.Equal(t, int64(13), c.ID)
		m.AssertExpectations(t)
	})
}

func TestFeedService_Likes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := models.User{Username: "nova", AuthHeader: "Bearer n"}
	m := new(MockPostsAPI)
	m.On("LikePost", ctx, "Bearer n", int64(1)).Return(nil)
	m.On("LikeComment", ctx, "Bearer n", int64(2)).Return(errDown)
	svc := NewFeedService(m, nil)

	require.NoError(t, svc.LikePost(ctx, user, 1))
	assert.ErrorIs(t, svc.LikeComment(ctx, user, 2), errDown)
	m.AssertExpectations(t)
}
