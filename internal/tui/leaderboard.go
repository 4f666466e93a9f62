package tui

import (
	"fmt"
	"strings"

	"agora/internal/models"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type leaderboardView struct {
	entries []models.LeaderboardEntry
	loading bool
	stale   bool
	seq     uint64
}

// openLeaderboard mounts the tab; each mount fetches once.
func (m *App) openLeaderboard() tea.Cmd {
	m.screen = screenLeaderboard
	m.board.entries = nil
	m.board.stale = false
	m.board.loading = true
	m.board.seq++
	return loadLeaderboardCmd(m.ctx, m.feed, m.board.seq)
}

func (m *App) onLeaderboardLoaded(msg leaderboardLoadedMsg) {
	if m.screen != screenLeaderboard || msg.seq != m.board.seq {
		return
	}
	m.board.loading = false
	if msg.err != nil {
		return
	}
	m.board.entries = msg.entries
	m.board.stale = msg.stale
}

func (m *App) updateLeaderboard(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Leaderboard):
		m.screen = screenFeed
	}
	return nil
}

func (m *App) viewLeaderboard() string {
	if m.board.loading {
		return m.spinner.View() + " Loading leaderboard…"
	}
	if len(m.board.entries) == 0 {
		return mutedStyle.Render("Nobody has any karma yet.")
	}

	var b strings.Builder
	for i, e := range m.board.entries {
		rank := fmt.Sprintf("%3d.", i+1)
		if i < len(badgeStyles) {
			rank = badgeStyles[i].Render("★" + rank)
		} else {
			rank = " " + rank
		}
		name := authorStyle.Render(clean(e.Username))
		detail := mutedStyle.Render(fmt.Sprintf("(%d from posts, %d from comments)", e.PostLikes, e.CommentLikes))
		fmt.Fprintf(&b, "%s %s  %d karma  %s\n", rank, name, e.Karma, detail)
	}
	if m.board.stale {
		b.WriteString(staleStyle.Render("showing saved results; the server could not be reached") + "\n")
	}
	return b.String()
}
