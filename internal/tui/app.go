// Package tui is the terminal front end: a bubbletea program with a feed,
// a post detail screen with its comment thread, a leaderboard, and the
// modals that acquire a session.
package tui

import (
	"context"
	"log/slog"

	"agora/internal/feed"
	"agora/internal/models"
	"agora/internal/observability"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type screen int

const (
	screenFeed screen = iota
	screenDetail
	screenLeaderboard
)

const (
	alertClaimFailed  = "Try a different name."
	alertLoginFailed  = "Invalid Credentials"
	alertPostFailed   = "Failed to post"
	alertReplyFailed  = "Failed to reply"
	alertDeleteFailed = "Failed to delete"
)

// App is the root model. It owns the session, the post list, and the modal
// lifecycle, and routes deferred intents once a session exists.
type App struct {
	ctx  context.Context
	feed FeedBackend
	auth AuthBackend

	session *feed.Session
	gate    *feed.Gate
	likes   *feed.Ledger

	width  int
	height int
	screen screen

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	posts        []models.Post
	cursor       int
	postsSeq     uint64
	loadingPosts bool
	stalePosts   bool

	detail detailView
	board  leaderboardView

	modal        modalKind
	alert        string
	alertReturn  modalKind
	nameInput    textinput.Model
	userInput    textinput.Model
	passInput    textinput.Model
	loginFocus   int
	postComposer textarea.Model
	deleteID     int64
	submitting   bool
}

// New builds the root model. ctx bounds every request the UI issues.
func New(ctx context.Context, feedSvc FeedBackend, authSvc AuthBackend) *App {
	session := feed.NewSession()
	m := &App{
		ctx:     ctx,
		feed:    feedSvc,
		auth:    authSvc,
		session: session,
		gate:    feed.NewGate(session),
		likes:   feed.NewLedger(),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		detail:  newDetailView(),
	}

	m.nameInput = textinput.New()
	m.nameInput.Placeholder = "Display name"
	m.nameInput.CharLimit = 150
	m.nameInput.Width = 40

	m.userInput = textinput.New()
	m.userInput.Placeholder = "Username"
	m.userInput.Width = 40

	m.passInput = textinput.New()
	m.passInput.Placeholder = "Password"
	m.passInput.EchoMode = textinput.EchoPassword
	m.passInput.EchoCharacter = '•'
	m.passInput.Width = 40

	m.postComposer = textarea.New()
	m.postComposer.Placeholder = "What's happening?"
	m.postComposer.CharLimit = 0
	m.postComposer.ShowLineNumbers = false
	m.postComposer.SetWidth(60)
	m.postComposer.SetHeight(5)

	return m
}

// Session exposes the current login state.
func (m *App) Session() *feed.Session {
	return m.session
}

func (m *App) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.reloadPosts())
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		w := contentWidth(msg.Width) - 8
		m.postComposer.SetWidth(w)
		m.detail.composer.SetWidth(w)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case postsLoadedMsg:
		m.onPostsLoaded(msg)
		return m, nil

	case postLoadedMsg:
		m.onPostLoaded(msg)
		return m, nil

	case leaderboardLoadedMsg:
		m.onLeaderboardLoaded(msg)
		return m, nil

	case likeSettledMsg:
		return m, m.onLikeSettled(msg)

	case postCreatedMsg:
		if msg.err != nil {
			observability.LogUserFailure(m.ctx, "create post", msg.err)
			m.showAlert(alertPostFailed, modalNone)
			return m, nil
		}
		return m, m.reloadPosts()

	case postDeletedMsg:
		if msg.err != nil {
			observability.LogUserFailure(m.ctx, "delete post", msg.err)
			m.showAlert(alertDeleteFailed, modalNone)
			return m, nil
		}
		m.removePost(msg.id)
		return m, nil

	case replySubmittedMsg:
		if msg.err != nil {
			observability.LogUserFailure(m.ctx, "reply", msg.err)
			m.showAlert(alertReplyFailed, modalNone)
		}
		if m.detail.showing(msg.postID) {
			return m, m.reloadDetail()
		}
		return m, nil

	case sessionAcquiredMsg:
		return m, m.onSessionAcquired(msg)

	case sessionFailedMsg:
		m.onSessionFailed(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.modal != modalNone {
			return m, m.updateModal(msg)
		}
		switch m.screen {
		case screenDetail:
			return m, m.updateDetail(msg)
		case screenLeaderboard:
			return m, m.updateLeaderboard(msg)
		}
		return m, m.updateFeed(msg)
	}

	return m, m.updateInputs(msg)
}

// updateInputs forwards non-key messages, such as cursor blinks, to
// whichever text field has focus.
func (m *App) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.modal == modalGuest:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case m.modal == modalLogin && m.loginFocus == 0:
		m.userInput, cmd = m.userInput.Update(msg)
	case m.modal == modalLogin:
		m.passInput, cmd = m.passInput.Update(msg)
	case m.modal == modalCompose:
		m.postComposer, cmd = m.postComposer.Update(msg)
	case m.modal == modalNone && m.detail.composing:
		m.detail.composer, cmd = m.detail.composer.Update(msg)
	}
	return cmd
}

func (m *App) reloadPosts() tea.Cmd {
	m.postsSeq++
	m.loadingPosts = true
	return loadPostsCmd(m.ctx, m.feed, m.session.Current(), m.postsSeq)
}

func (m *App) onPostsLoaded(msg postsLoadedMsg) {
	if msg.seq != m.postsSeq {
		return
	}
	m.loadingPosts = false
	if msg.err != nil {
		// keep whatever is on screen
		m.stalePosts = len(m.posts) > 0
		return
	}
	m.posts = msg.posts
	m.stalePosts = msg.stale
	m.likes.Reset()
	m.clampCursor()
}

func (m *App) findPost(id int64) *models.Post {
	for i := range m.posts {
		if m.posts[i].ID == id {
			return &m.posts[i]
		}
	}
	return nil
}

func (m *App) selectedPost() *models.Post {
	if m.cursor < 0 || m.cursor >= len(m.posts) {
		return nil
	}
	return &m.posts[m.cursor]
}

func (m *App) removePost(id int64) {
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			break
		}
	}
	m.clampCursor()
}

func (m *App) clampCursor() {
	if m.cursor >= len(m.posts) {
		m.cursor = len(m.posts) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// request runs in now when a session exists; otherwise it is kept as the
// pending intent and the guest modal opens.
func (m *App) request(in feed.Intent) tea.Cmd {
	user, ok := m.gate.Require(in)
	if !ok {
		observability.LogIntent(m.ctx, string(in.Kind), "deferred")
		return m.openModal(modalGuest)
	}
	return m.dispatch(in, user)
}

// dispatch is the single place intents turn into actions.
func (m *App) dispatch(in feed.Intent, user models.User) tea.Cmd {
	switch in.Kind {
	case feed.IntentLikePost:
		return m.likePost(in.PostID, user)
	case feed.IntentLikeComment:
		return m.likeComment(in.CommentID, user)
	case feed.IntentReply:
		return submitReplyCmd(m.ctx, m.feed, user, in)
	case feed.IntentCreatePost:
		return createPostCmd(m.ctx, m.feed, user, in.Content)
	}
	observability.GlobalLogger.WarnContext(m.ctx, "unknown intent", slog.String("kind", string(in.Kind)))
	return nil
}

func (m *App) likePost(id int64, user models.User) tea.Cmd {
	settled := likeSettledMsg{target: likeFeedPost, id: id}
	if m.screen == screenDetail && m.detail.showing(id) && m.detail.post != nil {
		settled.target = likeDetailPost
		settled.toggle = feed.ToggleLike(m.detail.likes, feed.PostKey(id), m.detail.post, feed.PostLikes)
		settled.tracked = true
	} else if p := m.findPost(id); p != nil {
		settled.toggle = feed.ToggleLike(m.likes, feed.PostKey(id), p, feed.PostLikes)
		settled.tracked = true
	}
	return likeCmd(m.ctx, m.feed, user, settled)
}

func (m *App) likeComment(id int64, user models.User) tea.Cmd {
	settled := likeSettledMsg{target: likeComment, id: id}
	if c := m.detail.findComment(id); c != nil {
		settled.toggle = feed.ToggleLike(m.detail.likes, feed.CommentKey(id), c, feed.CommentLikes)
		settled.tracked = true
	}
	return likeCmd(m.ctx, m.feed, user, settled)
}

func (m *App) onLikeSettled(msg likeSettledMsg) tea.Cmd {
	if !msg.tracked {
		if msg.err != nil {
			observability.GlobalLogger.DebugContext(m.ctx, "like failed",
				slog.String("entity", msg.target.entity()),
				slog.Int64("id", msg.id),
				slog.String("error", msg.err.Error()),
			)
		}
		return nil
	}

	var rolledBack bool
	switch msg.target {
	case likeFeedPost:
		rolledBack = feed.SettleLike(m.likes, msg.toggle, m.findPost(msg.id), feed.PostLikes, msg.err)
	case likeDetailPost:
		var p *models.Post
		if m.detail.showing(msg.id) {
			p = m.detail.post
		}
		rolledBack = feed.SettleLike(m.detail.likes, msg.toggle, p, feed.PostLikes, msg.err)
	case likeComment:
		rolledBack = feed.SettleLike(m.detail.likes, msg.toggle, m.detail.findComment(msg.id), feed.CommentLikes, msg.err)
	}
	if rolledBack {
		observability.LogRollback(m.ctx, msg.target.entity(), msg.id, msg.err)
	}

	if msg.err != nil && msg.target == likeDetailPost && m.detail.showing(msg.id) {
		return m.reloadDetail()
	}
	return nil
}

func (m *App) onSessionAcquired(msg sessionAcquiredMsg) tea.Cmd {
	m.submitting = false
	m.closeModal()

	in, pending := m.gate.Resolve(msg.user)
	observability.GlobalLogger.InfoContext(m.ctx, "session started",
		slog.String("username", msg.user.Username),
		slog.String("via", string(msg.via)),
		slog.Bool("staff", msg.user.IsStaff),
	)

	var cmds []tea.Cmd
	if pending {
		observability.LogIntent(m.ctx, string(in.Kind), "replayed")
		if cmd := m.dispatch(in, msg.user); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, m.reloadForSession())
	return tea.Sequence(cmds...)
}

func (m *App) onSessionFailed(msg sessionFailedMsg) {
	m.submitting = false
	// a dismissed form stays dismissed
	if (msg.via == authGuest && m.modal != modalGuest) || (msg.via == authPassword && m.modal != modalLogin) {
		observability.LogUserFailure(m.ctx, "abandoned "+string(msg.via)+" sign-in", msg.err)
		return
	}
	if msg.via == authGuest {
		observability.LogUserFailure(m.ctx, "guest claim", msg.err)
		m.showAlert(alertClaimFailed, modalGuest)
		return
	}
	observability.LogUserFailure(m.ctx, "login", msg.err)
	m.passInput.Reset()
	m.showAlert(alertLoginFailed, modalLogin)
}

// reloadForSession re-derives everything that depends on who is signed in.
func (m *App) reloadForSession() tea.Cmd {
	cmds := []tea.Cmd{m.reloadPosts()}
	if m.screen == screenDetail {
		cmds = append(cmds, m.reloadDetail())
	}
	return tea.Batch(cmds...)
}

func (m *App) logout() tea.Cmd {
	if !m.session.Active() {
		return nil
	}
	u, _ := m.session.User()
	m.session.Clear()
	m.gate.Discard()
	m.detail.closeComposer()
	observability.GlobalLogger.InfoContext(m.ctx, "session ended", slog.String("username", u.Username))
	return m.reloadForSession()
}
