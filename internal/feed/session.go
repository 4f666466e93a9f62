// Package feed holds the client-side state rules of the community feed:
// the process-wide session, deferred intents, optimistic like bookkeeping,
// comment thread folding, and delete permissions. It performs no I/O.
package feed

import "agora/internal/models"

// Session is the single process-wide login state. It moves from none to
// active on guest claim or password login and back to none on logout.
// Generation changes on every transition so views know to re-derive.
type Session struct {
	user       *models.User
	generation uint64
}

// NewSession returns an empty (logged out) session.
func NewSession() *Session {
	return &Session{}
}

// User returns the active user, if any.
func (s *Session) User() (models.User, bool) {
	if s == nil || s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Current returns the active user or nil.
func (s *Session) Current() *models.User {
	if s == nil || s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Active reports whether a user is logged in.
func (s *Session) Active() bool {
	return s != nil && s.user != nil
}

// Set activates u, replacing any previous user.
func (s *Session) Set(u models.User) {
	s.user = &u
	s.generation++
}

// Clear logs out. Clearing an empty session is a no-op.
func (s *Session) Clear() {
	if s.user == nil {
		return
	}
	s.user = nil
	s.generation++
}

// Generation identifies the current session state.
func (s *Session) Generation() uint64 {
	return s.generation
}

// AuthHeader returns the active credential or "" when logged out.
func (s *Session) AuthHeader() string {
	if u, ok := s.User(); ok {
		return u.AuthHeader
	}
	return ""
}
