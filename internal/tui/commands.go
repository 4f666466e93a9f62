package tui

import (
	"context"

	"agora/internal/feed"
	"agora/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

// FeedBackend is the feed service as seen by the UI.
type FeedBackend interface {
	ListPosts(ctx context.Context, user *models.User) ([]models.Post, bool, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool, error)
	GetPost(ctx context.Context, user *models.User, postID int64) (*models.Post, error)
	CreatePost(ctx context.Context, user models.User, content string) (*models.Post, error)
	DeletePost(ctx context.Context, user models.User, post models.Post) error
	SubmitReply(ctx context.Context, user models.User, postID int64, parent *int64, content string) (*models.Comment, error)
	LikePost(ctx context.Context, user models.User, postID int64) error
	LikeComment(ctx context.Context, user models.User, commentID int64) error
}

// AuthBackend is the auth service as seen by the UI.
type AuthBackend interface {
	Claim(ctx context.Context, username string) (models.User, error)
	Login(ctx context.Context, username, password string) (models.User, error)
}

type postsLoadedMsg struct {
	seq   uint64
	posts []models.Post
	stale bool
	err   error
}

type postLoadedMsg struct {
	seq  uint64
	post *models.Post
	err  error
}

type leaderboardLoadedMsg struct {
	seq     uint64
	entries []models.LeaderboardEntry
	stale   bool
	err     error
}

type likeTarget int

const (
	likeFeedPost likeTarget = iota
	likeDetailPost
	likeComment
)

func (t likeTarget) entity() string {
	if t == likeComment {
		return "comment"
	}
	return "post"
}

type likeSettledMsg struct {
	target likeTarget
	id     int64
	toggle feed.Toggle
	// tracked is false when no optimistic change was applied.
	tracked bool
	err     error
}

type postCreatedMsg struct {
	post *models.Post
	err  error
}

type postDeletedMsg struct {
	id  int64
	err error
}

type replySubmittedMsg struct {
	postID int64
	err    error
}

type authMethod string

const (
	authGuest    authMethod = "guest"
	authPassword authMethod = "password"
)

type sessionAcquiredMsg struct {
	user models.User
	via  authMethod
}

type sessionFailedMsg struct {
	via authMethod
	err error
}

func loadPostsCmd(ctx context.Context, svc FeedBackend, user *models.User, seq uint64) tea.Cmd {
	return func() tea.Msg {
		posts, stale, err := svc.ListPosts(ctx, user)
		return postsLoadedMsg{seq: seq, posts: posts, stale: stale, err: err}
	}
}

func loadPostCmd(ctx context.Context, svc FeedBackend, user *models.User, postID int64, seq uint64) tea.Cmd {
	return func() tea.Msg {
		post, err := svc.GetPost(ctx, user, postID)
		return postLoadedMsg{seq: seq, post: post, err: err}
	}
}

func loadLeaderboardCmd(ctx context.Context, svc FeedBackend, seq uint64) tea.Cmd {
	return func() tea.Msg {
		entries, stale, err := svc.Leaderboard(ctx)
		return leaderboardLoadedMsg{seq: seq, entries: entries, stale: stale, err: err}
	}
}

func likeCmd(ctx context.Context, svc FeedBackend, user models.User, settled likeSettledMsg) tea.Cmd {
	return func() tea.Msg {
		if settled.target == likeComment {
			settled.err = svc.LikeComment(ctx, user, settled.id)
		} else {
			settled.err = svc.LikePost(ctx, user, settled.id)
		}
		return settled
	}
}

func createPostCmd(ctx context.Context, svc FeedBackend, user models.User, content string) tea.Cmd {
	return func() tea.Msg {
		post, err := svc.CreatePost(ctx, user, content)
		return postCreatedMsg{post: post, err: err}
	}
}

func deletePostCmd(ctx context.Context, svc FeedBackend, user models.User, post models.Post) tea.Cmd {
	return func() tea.Msg {
		return postDeletedMsg{id: post.ID, err: svc.DeletePost(ctx, user, post)}
	}
}

func submitReplyCmd(ctx context.Context, svc FeedBackend, user models.User, in feed.Intent) tea.Cmd {
	return func() tea.Msg {
		_, err := svc.SubmitReply(ctx, user, in.PostID, in.ParentID, in.Content)
		return replySubmittedMsg{postID: in.PostID, err: err}
	}
}

func claimCmd(ctx context.Context, svc AuthBackend, username string) tea.Cmd {
	return func() tea.Msg {
		user, err := svc.Claim(ctx, username)
		if err != nil {
			return sessionFailedMsg{via: authGuest, err: err}
		}
		return sessionAcquiredMsg{user: user, via: authGuest}
	}
}

func loginCmd(ctx context.Context, svc AuthBackend, username, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := svc.Login(ctx, username, password)
		if err != nil {
			return sessionFailedMsg{via: authPassword, err: err}
		}
		return sessionAcquiredMsg{user: user, via: authPassword}
	}
}
