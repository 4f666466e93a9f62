package tui

import (
	"strings"

	"agora/internal/feed"
	"agora/internal/observability"
	"agora/internal/validation"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalGuest
	modalLogin
	modalCompose
	modalConfirmDelete
	modalAlert
)

func (m *App) openModal(kind modalKind) tea.Cmd {
	m.modal = kind
	switch kind {
	case modalGuest:
		return m.nameInput.Focus()
	case modalLogin:
		m.loginFocus = 0
		m.passInput.Blur()
		return m.userInput.Focus()
	case modalCompose:
		return m.postComposer.Focus()
	}
	return nil
}

func (m *App) closeModal() {
	m.modal = modalNone
	m.alert = ""
	m.alertReturn = modalNone
	m.deleteID = 0
	m.loginFocus = 0
	m.nameInput.Reset()
	m.nameInput.Blur()
	m.userInput.Reset()
	m.userInput.Blur()
	m.passInput.Reset()
	m.passInput.Blur()
	m.postComposer.Reset()
	m.postComposer.Blur()
}

// dismissAuth closes a session modal without signing in; the pending
// intent, if any, is dropped.
func (m *App) dismissAuth() {
	m.closeModal()
	m.submitting = false
	if in, ok := m.gate.Discard(); ok {
		observability.LogIntent(m.ctx, string(in.Kind), "discarded")
	}
}

// showAlert blocks the UI with text until dismissed, then returns to back.
func (m *App) showAlert(text string, back modalKind) {
	m.alert = text
	m.alertReturn = back
	m.modal = modalAlert
}

func (m *App) updateModal(msg tea.KeyMsg) tea.Cmd {
	switch m.modal {
	case modalAlert:
		switch msg.String() {
		case "enter", "esc", " ":
			back := m.alertReturn
			m.alert = ""
			m.alertReturn = modalNone
			if back == modalNone {
				m.closeModal()
				return nil
			}
			m.modal = back
			if back == modalLogin {
				m.loginFocus = 1
				m.userInput.Blur()
				return m.passInput.Focus()
			}
			return m.nameInput.Focus()
		}
		return nil

	case modalConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			id := m.deleteID
			m.closeModal()
			user, ok := m.session.User()
			post := m.findPost(id)
			if !ok || post == nil {
				return nil
			}
			return deletePostCmd(m.ctx, m.feed, user, *post)
		case "n", "esc":
			m.closeModal()
		}
		return nil

	case modalGuest:
		switch msg.String() {
		case "esc":
			m.dismissAuth()
			return nil
		case "ctrl+p":
			m.nameInput.Blur()
			return m.openModal(modalLogin)
		case "enter":
			if m.submitting {
				return nil
			}
			name := strings.TrimSpace(m.nameInput.Value())
			if name == "" {
				return nil
			}
			m.submitting = true
			return claimCmd(m.ctx, m.auth, name)
		}
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return cmd

	case modalLogin:
		switch msg.String() {
		case "esc":
			m.dismissAuth()
			return nil
		case "tab", "shift+tab", "up", "down":
			return m.switchLoginFocus()
		case "enter":
			if m.submitting {
				return nil
			}
			if m.loginFocus == 0 {
				return m.switchLoginFocus()
			}
			m.submitting = true
			return loginCmd(m.ctx, m.auth, strings.TrimSpace(m.userInput.Value()), m.passInput.Value())
		}
		var cmd tea.Cmd
		if m.loginFocus == 0 {
			m.userInput, cmd = m.userInput.Update(msg)
		} else {
			m.passInput, cmd = m.passInput.Update(msg)
		}
		return cmd

	case modalCompose:
		switch {
		case msg.Type == tea.KeyEsc:
			m.closeModal()
			return nil
		case key.Matches(msg, m.keys.Submit):
			content := m.postComposer.Value()
			if validation.ValidateContent(content) != nil {
				return nil
			}
			m.closeModal()
			return m.request(feed.CreatePost(content))
		}
		var cmd tea.Cmd
		m.postComposer, cmd = m.postComposer.Update(msg)
		return cmd
	}
	return nil
}

func (m *App) switchLoginFocus() tea.Cmd {
	if m.loginFocus == 0 {
		m.loginFocus = 1
		m.userInput.Blur()
		return m.passInput.Focus()
	}
	m.loginFocus = 0
	m.passInput.Blur()
	return m.userInput.Focus()
}

func (m *App) viewModal() string {
	switch m.modal {
	case modalAlert:
		return renderModalBox(m.width, "Something went wrong", m.alert+"\n\nenter: ok")

	case modalConfirmDelete:
		body := "Delete this post?"
		if p := m.findPost(m.deleteID); p != nil {
			excerpt := clean(p.Content)
			if len([]rune(excerpt)) > 60 {
				excerpt = string([]rune(excerpt)[:60]) + "…"
			}
			body += "\n\n" + mutedStyle.Render(excerpt)
		}
		return renderModalBox(m.width, "Confirm", body+"\n\nenter/y: delete   esc/n: cancel")

	case modalGuest:
		body := m.nameInput.View()
		if in, ok := m.gate.Pending(); ok {
			body = mutedStyle.Render("Pick a name to "+in.String()+".") + "\n\n" + body
		}
		footer := "enter: continue   ctrl+p: password login   esc: cancel"
		if m.submitting {
			footer = m.spinner.View() + " claiming…"
		}
		return renderModalBox(m.width, "Join as a guest", body+"\n\n"+footer)

	case modalLogin:
		body := m.userInput.View() + "\n" + m.passInput.View()
		footer := "tab: next field   enter: sign in   esc: cancel"
		if m.submitting {
			footer = m.spinner.View() + " signing in…"
		}
		return renderModalBox(m.width, "Sign in", body+"\n\n"+footer)

	case modalCompose:
		hint := "ctrl+s: post   esc: cancel"
		if strings.TrimSpace(m.postComposer.Value()) == "" {
			hint = "write something to post   esc: cancel"
		}
		return renderModalBox(m.width, "New post", m.postComposer.View()+"\n\n"+hint)
	}
	return ""
}
