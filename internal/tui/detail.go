package tui

import (
	"fmt"
	"strings"

	"agora/internal/feed"
	"agora/internal/models"
	"agora/internal/validation"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// detailView shows one post and its thread. cursor 0 is the post itself;
// cursor i > 0 is the i-th flattened comment.
type detailView struct {
	postID  int64
	post    *models.Post
	loading bool
	failed  bool
	seq     uint64
	cursor  int

	composing bool
	parent    *int64
	composer  textarea.Model

	likes *feed.Ledger
}

func newDetailView() detailView {
	ta := textarea.New()
	ta.Placeholder = "Write a reply…"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(3)
	return detailView{composer: ta, likes: feed.NewLedger()}
}

// showing reports whether postID is on screen or being loaded.
func (d *detailView) showing(postID int64) bool {
	if d.post != nil {
		return d.post.ID == postID
	}
	return d.loading && d.postID == postID
}

func (d *detailView) findComment(id int64) *models.Comment {
	if d.post == nil {
		return nil
	}
	return feed.FindComment(d.post.Comments, id)
}

func (d *detailView) rows() []feed.Row {
	if d.post == nil {
		return nil
	}
	return feed.Flatten(d.post.Comments)
}

func (d *detailView) closeComposer() {
	d.composing = false
	d.parent = nil
	d.composer.Reset()
	d.composer.Blur()
}

func (m *App) openDetail(postID int64) tea.Cmd {
	m.screen = screenDetail
	m.detail.closeComposer()
	m.detail.postID = postID
	m.detail.post = nil
	m.detail.failed = false
	m.detail.cursor = 0
	m.detail.likes.Reset()
	return m.reloadDetail()
}

func (m *App) reloadDetail() tea.Cmd {
	m.detail.seq++
	m.detail.loading = true
	return loadPostCmd(m.ctx, m.feed, m.session.Current(), m.detail.postID, m.detail.seq)
}

func (m *App) onPostLoaded(msg postLoadedMsg) {
	if m.screen != screenDetail || msg.seq != m.detail.seq {
		return
	}
	m.detail.loading = false
	if msg.err != nil {
		m.detail.failed = m.detail.post == nil
		return
	}
	m.detail.post = msg.post
	m.detail.likes.Reset()
	if n := len(m.detail.rows()); m.detail.cursor > n {
		m.detail.cursor = n
	}
}

func (m *App) closeDetail() tea.Cmd {
	m.detail.closeComposer()
	m.detail.post = nil
	m.detail.loading = false
	m.screen = screenFeed
	return m.reloadPosts()
}

// openComposer opens the single reply composer under parent (nil for the
// post itself), discarding any other draft.
func (m *App) openComposer(parent *int64) tea.Cmd {
	if m.detail.post == nil {
		return nil
	}
	m.detail.closeComposer()
	m.detail.composing = true
	if parent != nil {
		id := *parent
		m.detail.parent = &id
	}
	return m.detail.composer.Focus()
}

func (m *App) submitReply() tea.Cmd {
	content := m.detail.composer.Value()
	if validation.ValidateContent(content) != nil {
		return nil
	}
	in := feed.Reply(m.detail.post.ID, m.detail.parent, content)
	m.detail.closeComposer()
	return m.request(in)
}

func (m *App) updateDetail(msg tea.KeyMsg) tea.Cmd {
	if m.detail.composing {
		switch {
		case msg.Type == tea.KeyEsc:
			m.detail.closeComposer()
			return nil
		case key.Matches(msg, m.keys.Submit):
			return m.submitReply()
		}
		var cmd tea.Cmd
		m.detail.composer, cmd = m.detail.composer.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Back):
		return m.closeDetail()
	}

	// the thread is replaced wholesale once the fetch lands
	if m.detail.post == nil || m.detail.loading {
		return nil
	}
	rows := m.detail.rows()

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.detail.cursor < len(rows) {
			m.detail.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.detail.cursor > 0 {
			m.detail.cursor--
		}
	case key.Matches(msg, m.keys.Like):
		if m.detail.cursor == 0 {
			return m.request(feed.LikePost(m.detail.post.ID))
		}
		c := rows[m.detail.cursor-1].Comment
		return m.request(feed.LikeComment(m.detail.post.ID, c.ID))
	case key.Matches(msg, m.keys.Comment):
		return m.openComposer(nil)
	case key.Matches(msg, m.keys.Reply):
		if m.detail.cursor > 0 {
			id := rows[m.detail.cursor-1].Comment.ID
			return m.openComposer(&id)
		}
		return m.openComposer(nil)
	}
	return nil
}

func (m *App) viewDetail(w, h int) string {
	d := &m.detail
	if d.post == nil {
		if d.failed {
			return mutedStyle.Render("Could not load this post. Press esc to go back.")
		}
		return m.spinner.View() + " Loading post…"
	}

	p := *d.post
	head := authorStyle.Render(clean(p.Author.Username))
	if when := ago(p.CreatedAt); when != "" {
		head += mutedStyle.Render(" · " + when)
	}
	body := lipgloss.NewStyle().Width(w - 3).Render(clean(p.Content))
	if d.loading {
		return unselectedStyle.Render(head+"\n"+body+"\n") + "\n" + m.spinner.View() + " Loading thread…"
	}

	replies := feed.CountReplies(p.Comments)
	foot := likeLabel(p.LikesCount, p.IsLiked) + mutedStyle.Render(fmt.Sprintf("   %d replies", replies))
	postBlock := head + "\n" + body + "\n" + foot + "\n"
	if d.cursor == 0 {
		postBlock = selectedStyle.Render(postBlock)
	} else {
		postBlock = unselectedStyle.Render(postBlock)
	}
	if d.composing && d.parent == nil {
		postBlock += "\n" + m.viewComposer(0)
	}

	blocks := []string{postBlock}
	for i, row := range d.rows() {
		blocks = append(blocks, m.viewComment(row, d.cursor == i+1, w))
	}
	return window(blocks, d.cursor, h)
}

func (m *App) viewComment(row feed.Row, selected bool, w int) string {
	c := row.Comment
	indent := row.Depth * 2
	bodyW := w - 3 - indent
	if bodyW < 10 {
		bodyW = 10
	}

	head := authorStyle.Render(clean(c.Author.Username))
	if when := ago(c.CreatedAt); when != "" {
		head += mutedStyle.Render(" · " + when)
	}
	body := lipgloss.NewStyle().Width(bodyW).Render(clean(c.Content))
	block := head + "\n" + body + "\n" + likeLabel(c.LikesCount, c.IsLiked) + "\n"
	if selected {
		block = selectedStyle.Render(block)
	} else {
		block = unselectedStyle.Render(block)
	}
	block = lipgloss.NewStyle().MarginLeft(indent).Render(block)

	if m.detail.composing && m.detail.parent != nil && *m.detail.parent == c.ID {
		block += "\n" + m.viewComposer(indent+2)
	}
	return block
}

func (m *App) viewComposer(indent int) string {
	hint := mutedStyle.Render("ctrl+s: send   esc: cancel")
	if strings.TrimSpace(m.detail.composer.Value()) == "" {
		hint = mutedStyle.Render("write something to send   esc: cancel")
	}
	return lipgloss.NewStyle().MarginLeft(indent).Render(m.detail.composer.View() + "\n" + hint)
}
