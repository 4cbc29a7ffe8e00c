package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys is the keymap of the connect terminal. Up and Down scroll in
// normal mode and walk the send history in insert mode.
type ConnectKeys struct {
	// Normal mode
	Quit        key.Binding
	Help        key.Binding
	InsertMode  key.Binding
	Clear       key.Binding
	ToggleHex   key.Binding
	ToggleASCII key.Binding
	Up          key.Binding
	Down        key.Binding
	GotoTop     key.Binding
	GotoBottom  key.Binding

	// Insert mode
	Escape         key.Binding
	Enter          key.Binding
	ToggleSendMode key.Binding
	HistoryUp      key.Binding
	HistoryDown    key.Binding
}

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q/ctrl+c", "quit")),
		Help:        binding("toggle help", "?"),
		InsertMode:  binding("insert mode", "i"),
		Clear:       binding("clear buffer", "c"),
		ToggleHex:   binding("toggle hex", "h"),
		ToggleASCII: binding("toggle ascii", "a"),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		GotoTop:     binding("goto top", "g"),
		GotoBottom:  binding("goto bottom", "G"),

		Escape:         binding("normal mode", "esc"),
		Enter:          binding("send message", "enter"),
		ToggleSendMode: binding("toggle ascii/hex", "tab"),
		HistoryUp:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous message")),
		HistoryDown:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next message")),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Enter, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.InsertMode, k.Escape, k.Enter, k.ToggleSendMode},
		{k.Clear, k.ToggleHex, k.ToggleASCII},
		{k.Up, k.Down, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}
