package tui

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"
)

const maxContentW = 96

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	authorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	staffStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	likedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	selectedStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("62")).PaddingLeft(1)
	unselectedStyle = lipgloss.NewStyle().PaddingLeft(2)
	staleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Italic(true)

	badgeStyles = []lipgloss.Style{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")), // gold
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")), // silver
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("173")), // bronze
	}
)

var stripHTML = bluemonday.StrictPolicy()

// clean makes remote text safe to print: markup and terminal escape
// sequences are removed, as are control characters other than newline and tab.
func clean(s string) string {
	s = xansi.Strip(s)
	s = html.UnescapeString(stripHTML.Sanitize(s))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func contentWidth(screen int) int {
	w := screen - 4
	if w > maxContentW {
		w = maxContentW
	}
	if w < 20 {
		w = 20
	}
	return w
}

func likeLabel(count int, liked bool) string {
	if liked {
		return likedStyle.Render(fmt.Sprintf("♥ %d", count))
	}
	return mutedStyle.Render(fmt.Sprintf("♡ %d", count))
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Format("Jan 2")
}

func renderModalBox(screenWidth int, title, body string) string {
	w := screenWidth - 12
	if w < 20 {
		w = 20
	}
	if w > 72 {
		w = 72
	}

	header := lipgloss.NewStyle().Bold(true).Render(title)
	content := header + "\n\n" + body

	box := lipgloss.NewStyle().
		Width(w).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62"))
	return box.Render(content)
}
