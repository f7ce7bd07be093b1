package tui

import (
	"github.com/oakwood-commons/jtv/internal/config"
)

// Theme holds the colors of the table and the viewer.
type Theme = config.ThemeConfig

// Config holds host-provided settings for running the viewer.
type Config struct {
	Width  int
	Height int
	// NoColor renders without colors or borders.
	NoColor bool
	Theme   Theme
	// MaxColumnWidth truncates wider cells. Zero leaves them whole.
	MaxColumnWidth int
	// StartPath is the path opened first, e.g. "people[0]".
	StartPath string
	// ExportDir receives exported files. Empty keeps exports in memory.
	ExportDir string
	// Indent is the indent width of edited documents.
	Indent int
}

// DefaultConfig returns a baseline config with the same defaults as the CLI.
func DefaultConfig() Config {
	cfg, err := config.Default()
	if err != nil {
		return Config{Width: defaultFallbackTermWidth, Height: defaultFallbackTermHeight}
	}
	return Config{
		Width:          defaultFallbackTermWidth,
		Height:         defaultFallbackTermHeight,
		Theme:          cfg.Display.Theme,
		MaxColumnWidth: cfg.Display.MaxColumnWidth,
		ExportDir:      cfg.Export.Dir,
		Indent:         cfg.Document.Indent,
	}
}
