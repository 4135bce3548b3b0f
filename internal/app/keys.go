package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Down         key.Binding
	Up           key.Binding
	NextRegion   key.Binding
	PrevRegion   key.Binding
	KeepCurrent  key.Binding
	KeepIncoming key.Binding
	KeepBoth     key.Binding
	AllCurrent   key.Binding
	AllIncoming  key.Binding
	AllBoth      key.Binding
	Undo         key.Binding
	Write        key.Binding
	Edit         key.Binding
	Refresh      key.Binding
	Preview      key.Binding
	Diagnostics  key.Binding
	Help         key.Binding
	Back         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next file")),
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "previous file")),
		NextRegion:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next region")),
		PrevRegion:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous region")),
		KeepCurrent:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "keep current")),
		KeepIncoming: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "keep incoming")),
		KeepBoth:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "keep both")),
		AllCurrent:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "file: current")),
		AllIncoming:  key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "file: incoming")),
		AllBoth:      key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "file: both")),
		Undo:         key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Write:        key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "write")),
		Edit:         key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Preview:      key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "merge preview")),
		Diagnostics:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "diagnostics")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.NextRegion, k.KeepCurrent, k.KeepIncoming, k.KeepBoth, k.Write, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.NextRegion, k.PrevRegion},
		{k.KeepCurrent, k.KeepIncoming, k.KeepBoth, k.Undo},
		{k.AllCurrent, k.AllIncoming, k.AllBoth, k.Write},
		{k.Edit, k.Refresh, k.Preview, k.Diagnostics},
		{k.Help, k.Back, k.Quit},
	}
}
