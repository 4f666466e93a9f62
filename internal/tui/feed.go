package tui

import (
	"fmt"
	"strings"

	"agora/internal/feed"
	"agora/internal/models"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m *App) updateFeed(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Open):
		if p := m.selectedPost(); p != nil {
			return m.openDetail(p.ID)
		}
	case key.Matches(msg, m.keys.Like):
		if p := m.selectedPost(); p != nil {
			return m.request(feed.LikePost(p.ID))
		}
	case key.Matches(msg, m.keys.NewPost):
		return m.openModal(modalCompose)
	case key.Matches(msg, m.keys.Delete):
		if p := m.selectedPost(); p != nil && feed.CanDelete(m.session.Current(), *p) {
			m.deleteID = p.ID
			m.modal = modalConfirmDelete
		}
	case key.Matches(msg, m.keys.Leaderboard):
		return m.openLeaderboard()
	case key.Matches(msg, m.keys.Guest):
		if !m.session.Active() {
			return m.openModal(modalGuest)
		}
	case key.Matches(msg, m.keys.Login):
		if !m.session.Active() {
			return m.openModal(modalLogin)
		}
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Reload):
		return m.reloadPosts()
	}
	return nil
}

func (m *App) viewFeed(w, h int) string {
	if len(m.posts) == 0 {
		if m.loadingPosts {
			return m.spinner.View() + " Loading posts…"
		}
		return mutedStyle.Render("No posts yet. Press n to write the first one.")
	}

	user := m.session.Current()
	blocks := make([]string, len(m.posts))
	for i, p := range m.posts {
		blocks[i] = renderPost(p, i == m.cursor, feed.CanDelete(user, p), w)
	}
	return window(blocks, m.cursor, h)
}

func renderPost(p models.Post, selected, deletable bool, w int) string {
	head := authorStyle.Render(clean(p.Author.Username))
	if when := ago(p.CreatedAt); when != "" {
		head += mutedStyle.Render(" · " + when)
	}
	body := lipgloss.NewStyle().Width(w - 3).Render(clean(p.Content))

	foot := likeLabel(p.LikesCount, p.IsLiked) + mutedStyle.Render(fmt.Sprintf("   %d comments", p.CommentsCount))
	if deletable && selected {
		foot += mutedStyle.Render("   d: delete")
	}

	block := head + "\n" + body + "\n" + foot + "\n"
	if selected {
		return selectedStyle.Render(block)
	}
	return unselectedStyle.Render(block)
}

// window joins blocks so that the selected one is visible within h lines.
func window(blocks []string, selected, h int) string {
	if h <= 0 || len(blocks) == 0 {
		return strings.Join(blocks, "\n")
	}
	if selected < 0 || selected >= len(blocks) {
		selected = 0
	}

	used := lipgloss.Height(blocks[selected])
	start, end := selected, selected+1
	for end < len(blocks) && used+lipgloss.Height(blocks[end]) <= h {
		used += lipgloss.Height(blocks[end])
		end++
	}
	for start > 0 && used+lipgloss.Height(blocks[start-1]) <= h {
		start--
		used += lipgloss.Height(blocks[start])
	}
	return strings.Join(blocks[start:end], "\n")
}
