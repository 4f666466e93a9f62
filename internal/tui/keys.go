package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Open        key.Binding
	Back        key.Binding
	Like        key.Binding
	NewPost     key.Binding
	Delete      key.Binding
	Comment     key.Binding
	Reply       key.Binding
	Leaderboard key.Binding
	Guest       key.Binding
	Login       key.Binding
	Logout      key.Binding
	Reload      key.Binding
	Submit      key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:        key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Like:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		NewPost:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new post")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Comment:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
		Reply:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reply")),
		Leaderboard: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "leaderboard")),
		Guest:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "guest")),
		Login:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "login")),
		Logout:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "logout")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Submit:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// helpKeys adapts the bindings relevant to one screen to help.KeyMap.
type helpKeys []key.Binding

func (h helpKeys) ShortHelp() []key.Binding  { return h }
func (h helpKeys) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (k keyMap) feedHelp(signedIn bool) helpKeys {
	h := helpKeys{k.Down, k.Up, k.Open, k.Like, k.NewPost, k.Delete, k.Leaderboard, k.Reload}
	if signedIn {
		h = append(h, k.Logout)
	} else {
		h = append(h, k.Guest, k.Login)
	}
	return append(h, k.Quit)
}

func (k keyMap) detailHelp() helpKeys {
	return helpKeys{k.Down, k.Up, k.Like, k.Comment, k.Reply, k.Back}
}

func (k keyMap) composerHelp() helpKeys {
	return helpKeys{k.Submit, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))}
}

func (k keyMap) leaderboardHelp() helpKeys {
	return helpKeys{k.Back, k.Quit}
}
