package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Save       key.Binding
	NextImage  key.Binding
	PrevImage  key.Binding
	Up         key.Binding
	Down       key.Binding
	Delete     key.Binding
	AddMode    key.Binding
	Corner     key.Binding
	NudgeLeft  key.Binding
	NudgeRight key.Binding
	NudgeUp    key.Binding
	NudgeDown  key.Binding
	Search     key.Binding
	Cancel     key.Binding
	Help       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "save & quit")),
		Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		NextImage:  key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next image")),
		PrevImage:  key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev image")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev box")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next box")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete", "backspace"), key.WithHelp("d", "delete box")),
		AddMode:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add mode")),
		Corner:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "switch corner")),
		NudgeLeft:  key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("H", "corner ←")),
		NudgeRight: key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("L", "corner →")),
		NudgeUp:    key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "corner ↑")),
		NudgeDown:  key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "corner ↓")),
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter images")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevImage, k.NextImage, k.Down, k.AddMode, k.Delete, k.Save, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevImage, k.NextImage, k.Search},
		{k.Up, k.Down, k.Delete, k.AddMode},
		{k.Corner, k.NudgeLeft, k.NudgeRight, k.NudgeUp, k.NudgeDown},
		{k.Cancel, k.Save, k.Quit, k.Help},
	}
}
