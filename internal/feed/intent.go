package feed

import (
	"fmt"

	"agora/internal/models"
)

// IntentKind names a deferrable action.
type IntentKind string

const (
	IntentLikePost    IntentKind = "like_post"
	IntentLikeComment IntentKind = "like_comment"
	IntentReply       IntentKind = "reply"
	IntentCreatePost  IntentKind = "create_post"
)

// Intent is an action captured while no session exists. It carries every
// parameter needed to replay the action unchanged once a user is obtained.
type Intent struct {
	Kind      IntentKind
	PostID    int64
	CommentID int64
	// ParentID is the comment being replied to; nil for a top-level comment.
	ParentID *int64
	Content  string
}

// LikePost builds the intent to toggle a like on a post.
func LikePost(postID int64) Intent {
	return Intent{Kind: IntentLikePost, PostID: postID}
}

// LikeComment builds the intent to toggle a like on a comment of postID.
func LikeComment(postID, commentID int64) Intent {
	return Intent{Kind: IntentLikeComment, PostID: postID, CommentID: commentID}
}

// Reply builds the intent to comment on postID under parentID (nil = top level).
func Reply(postID int64, parentID *int64, content string) Intent {
	return Intent{Kind: IntentReply, PostID: postID, ParentID: cloneID(parentID), Content: content}
}

// CreatePost builds the intent to publish content.
func CreatePost(content string) Intent {
	return Intent{Kind: IntentCreatePost, Content: content}
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentLikePost:
		return fmt.Sprintf("like post %d", i.PostID)
	case IntentLikeComment:
		return fmt.Sprintf("like comment %d", i.CommentID)
	case IntentReply:
		if i.ParentID == nil {
			return fmt.Sprintf("comment on post %d", i.PostID)
		}
		return fmt.Sprintf("reply to comment %d", *i.ParentID)
	case IntentCreatePost:
		return "create post"
	}
	return string(i.Kind)
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Gate runs actions that need a session. Without one it holds a single
// pending intent; a newer intent replaces an older one.
type Gate struct {
	session *Session
	pending *Intent
}

// NewGate returns a gate bound to session.
func NewGate(session *Session) *Gate {
	return &Gate{session: session}
}

// Require returns the active user and true when the intent can run now.
// Otherwise the intent is stored and false is returned; the caller should
// start session acquisition.
func (g *Gate) Require(in Intent) (models.User, bool) {
	if u, ok := g.session.User(); ok {
		return u, true
	}
	in.ParentID = cloneID(in.ParentID)
	g.pending = &in
	return models.User{}, false
}

// Pending returns the stored intent without consuming it.
func (g *Gate) Pending() (Intent, bool) {
	if g.pending == nil {
		return Intent{}, false
	}
	return *g.pending, true
}

// Resolve activates u and hands back the pending intent exactly once.
func (g *Gate) Resolve(u models.User) (Intent, bool) {
	g.session.Set(u)
	return g.Discard()
}

// Discard drops the pending intent, returning it if there was one.
func (g *Gate) Discard() (Intent, bool) {
	in, ok := g.Pending()
	g.pending = nil
	return in, ok
}
