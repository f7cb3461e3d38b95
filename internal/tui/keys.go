package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the key bindings. Option toggles use alt so that plain
// letters still reach the URL field.
type KeyMap struct {
	Start    key.Binding
	Cancel   key.Binding
	Quit     key.Binding
	Restart  key.Binding
	Naming   key.Binding
	Format   key.Binding
	Playlist key.Binding
	Verbose  key.Binding
	Abort    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Restart:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new download")),
		Naming:   key.NewBinding(key.WithKeys("alt+n"), key.WithHelp("alt+n", "naming")),
		Format:   key.NewBinding(key.WithKeys("alt+e"), key.WithHelp("alt+e", "format")),
		Playlist: key.NewBinding(key.WithKeys("alt+p"), key.WithHelp("alt+p", "playlist")),
		Verbose:  key.NewBinding(key.WithKeys("alt+v"), key.WithHelp("alt+v", "verbose")),
		Abort:    key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// helpLine renders bindings as "key: desc • key: desc".
func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
