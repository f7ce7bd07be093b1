package ui

import "strings"

// Browse-mode keys. Cursor movement (up/down, pgup/pgdown, home/end) is
// handled by the table.
const (
	keyQuit       = "q"
	keyInterrupt  = "ctrl+c"
	keyOpen       = "enter"
	keyBack       = "backspace"
	keyEscape     = "esc"
	keyLeft       = "left"
	keyRight      = "right"
	keySort       = "s"
	keyFilter     = "/"
	keyHide       = "h"
	keyShowAll    = "H"
	keyEdit       = "e"
	keyExportCSV  = "c"
	keyExportXLSX = "x"
	keyReload     = "r"
)

type binding struct {
	key  string
	help string
}

var helpBindings = []binding{
	{"↑/↓", "move"},
	{"←/→", "column"},
	{"enter", "open"},
	{"⌫", "back"},
	{"s", "sort"},
	{"/", "filter"},
	{"h/H", "hide/show"},
	{"e", "edit"},
	{"c/x", "csv/xlsx"},
	{"r", "reload"},
	{"q", "quit"},
}

// HelpLine is the one-line key reference shown under the table.
func HelpLine() string {
	parts := make([]string, len(helpBindings))
	for i, b := range helpBindings {
		parts[i] = b.key + " " + b.help
	}
	return strings.Join(parts, " • ")
}
