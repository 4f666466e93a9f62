package feed

import (
	"fmt"

	"agora/internal/models"
)

// LikeState is the visible like data of a post or comment.
type LikeState struct {
	Count int
	Liked bool
}

// Toggled returns the state after one user toggle. The count never drops
// below zero.
func (s LikeState) Toggled() LikeState {
	if s.Liked {
		s.Count--
		if s.Count < 0 {
			s.Count = 0
		}
	} else {
		s.Count++
	}
	s.Liked = !s.Liked
	return s
}

func (s LikeState) flipped(n int) LikeState {
	for ; n > 0; n-- {
		s = s.Toggled()
	}
	return s
}

// Accessor reads and writes the like fields of an entity, so posts and
// comments share one toggle routine.
type Accessor[T any] struct {
	Get func(*T) LikeState
	Set func(*T, LikeState)
}

// PostLikes exposes the like fields of a post.
var PostLikes = Accessor[models.Post]{
	Get: func(p *models.Post) LikeState { return LikeState{Count: p.LikesCount, Liked: p.IsLiked} },
	Set: func(p *models.Post, s LikeState) { p.LikesCount, p.IsLiked = s.Count, s.Liked },
}

// CommentLikes exposes the like fields of a comment.
var CommentLikes = Accessor[models.Comment]{
	Get: func(c *models.Comment) LikeState { return LikeState{Count: c.LikesCount, Liked: c.IsLiked} },
	Set: func(c *models.Comment, s LikeState) { c.LikesCount, c.IsLiked = s.Count, s.Liked },
}

// PostKey identifies a post in a Ledger.
func PostKey(id int64) string { return fmt.Sprintf("post:%d", id) }

// CommentKey identifies a comment in a Ledger.
func CommentKey(id int64) string { return fmt.Sprintf("comment:%d", id) }

// Toggle is the receipt of one optimistic toggle, handed back to SettleLike
// when the server answers.
type Toggle struct {
	Key string
	gen uint64
}

type ledgerEntry struct {
	confirmed LikeState
	inFlight  int
}

// Ledger tracks, per entity, the last server-confirmed like state and the
// number of toggles still awaiting an answer. A failed toggle restores the
// confirmed state with the remaining in-flight toggles re-applied, so
// overlapping toggles on one entity roll back consistently.
type Ledger struct {
	entries map[string]*ledgerEntry
	gen     uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*ledgerEntry)}
}

// InFlight returns the number of unanswered toggles for key.
func (l *Ledger) InFlight(key string) int {
	if e, ok := l.entries[key]; ok {
		return e.inFlight
	}
	return 0
}

// Reset forgets every entry. Call it when entities are replaced by a fresh
// load; toggles issued before the reset settle as no-ops.
func (l *Ledger) Reset() {
	l.entries = make(map[string]*ledgerEntry)
	l.gen++
}

// ToggleLike flips the visible like state of entity immediately and records
// the toggle under key.
func ToggleLike[T any](l *Ledger, key string, entity *T, acc Accessor[T]) Toggle {
	cur := acc.Get(entity)
	e, ok := l.entries[key]
	if !ok {
		e = &ledgerEntry{confirmed: cur}
		l.entries[key] = e
	}
	e.inFlight++
	acc.Set(entity, cur.Toggled())
	return Toggle{Key: key, gen: l.gen}
}

// SettleLike records the server's answer to t. On failure the entity is
// rolled back and true is returned. entity may be nil when it is no longer
// displayed; the ledger is still updated.
func SettleLike[T any](l *Ledger, t Toggle, entity *T, acc Accessor[T], err error) bool {
	if t.gen != l.gen {
		return false
	}
	e, ok := l.entries[t.Key]
	if !ok {
		return false
	}
	e.inFlight--
	rolledBack := false
	if err == nil {
		e.confirmed = e.confirmed.Toggled()
	} else if entity != nil {
		acc.Set(entity, e.confirmed.flipped(e.inFlight))
		rolledBack = true
	}
	if e.inFlight <= 0 {
		delete(l.entries, t.Key)
	}
	return rolledBack
}
