package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Idea     key.Binding
	Create   key.Binding
	Revise   key.Binding
	Document key.Binding
	Audio    key.Binding
	Copy     key.Binding
	Focus    key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Idea:     key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "idea")),
		Create:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "crear")),
		Revise:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "revisar")),
		Document: key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", ".doc")),
		Audio:    key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", ".wav")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copiar")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "cambiar campo")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "salir")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Idea, k.Create, k.Revise, k.Document, k.Audio, k.Copy, k.Focus, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
