package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

func (m *App) View() string {
	w := contentWidth(m.width)
	header := m.viewHeader()
	footer := m.help.View(m.currentHelp())

	bodyH := 0
	if m.height > 0 {
		bodyH = m.height - lipgloss.Height(header) - lipgloss.Height(footer) - 2
	}

	var body string
	switch {
	case m.modal != modalNone:
		box := m.viewModal()
		if m.width > 0 && bodyH > 0 {
			box = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, box)
		}
		body = box
	case m.screen == screenDetail:
		body = m.viewDetail(w, bodyH)
	case m.screen == screenLeaderboard:
		body = m.viewLeaderboard()
	default:
		body = m.viewFeed(w, bodyH)
	}

	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *App) viewHeader() string {
	tabs := []string{"Feed", "Leaderboard"}
	active := 0
	if m.screen == screenLeaderboard {
		active = 1
	}
	for i, t := range tabs {
		if i == active {
			tabs[i] = titleStyle.Render(t)
		} else {
			tabs[i] = mutedStyle.Render(t)
		}
	}

	who := mutedStyle.Render("not signed in")
	if u := m.session.Current(); u != nil {
		if u.IsStaff {
			who = staffStyle.Render(clean(u.Username) + " (staff)")
		} else {
			who = authorStyle.Render(clean(u.Username))
		}
	}

	line := titleStyle.Render("agora") + "  " + strings.Join(tabs, mutedStyle.Render(" | ")) + "  " + who
	if m.screen == screenFeed && m.stalePosts {
		line += "  " + staleStyle.Render("(offline copy)")
	}
	return line + "\n"
}

func (m *App) currentHelp() help.KeyMap {
	switch {
	case m.modal != modalNone:
		return helpKeys{}
	case m.screen == screenDetail && m.detail.composing:
		return m.keys.composerHelp()
	case m.screen == screenDetail:
		return m.keys.detailHelp()
	case m.screen == screenLeaderboard:
		return m.keys.leaderboardHelp()
	}
	return m.keys.feedHelp(m.session.Active())
}
