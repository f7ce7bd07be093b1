package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// FileName is the name of the user configuration file inside the config dir.
const FileName = "config.yaml"

// AppDir is the directory under $XDG_CONFIG_HOME holding the config file.
const AppDir = "jtv"

// Config is the full configuration. Zero-valued fields in a user file keep
// the embedded defaults.
type Config struct {
	Document DocumentConfig `yaml:"document"`
	Export   ExportConfig   `yaml:"export"`
	Display  DisplayConfig  `yaml:"display"`
	Server   ServerConfig   `yaml:"server"`
}

// DocumentConfig controls how edited documents are written back.
type DocumentConfig struct {
	Indent int `yaml:"indent"`
}

// ExportConfig controls CSV and workbook exports.
type ExportConfig struct {
	Dir               string `yaml:"dir"`
	CSVLineTerminator string `yaml:"csv_line_terminator"`
	MainSheet         string `yaml:"main_sheet"`
	RowIDColumn       string `yaml:"row_id_column"`
}

// LineTerminator expands the named terminators lf and crlf.
func (e ExportConfig) LineTerminator() string {
	switch strings.ToLower(e.CSVLineTerminator) {
	case "", "lf":
		return "\n"
	case "crlf":
		return "\r\n"
	case "cr":
		return "\r"
	}
	return e.CSVLineTerminator
}

// DisplayConfig controls table rendering.
type DisplayConfig struct {
	MaxColumnWidth int         `yaml:"max_column_width"`
	Locale         string      `yaml:"locale"`
	Theme          ThemeConfig `yaml:"theme"`
}

// Language parses Locale, falling back to the root locale.
func (d DisplayConfig) Language() language.Tag {
	tag, err := language.Parse(d.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// ThemeConfig holds the colors of the table and TUI.
type ThemeConfig struct {
	HeaderFG   string `yaml:"header_fg"`
	HeaderBG   string `yaml:"header_bg"`
	SelectedFG string `yaml:"selected_fg"`
	SelectedBG string `yaml:"selected_bg"`
	BorderFG   string `yaml:"border_fg"`
	MutedFG    string `yaml:"muted_fg"`
}

// ServerConfig controls `jtv serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultYAML returns a copy of the embedded default config.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Default returns the embedded default configuration.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, errors.New("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults merged with the file at path. An empty path
// yields the defaults. Unknown keys in the file are an error.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := merge(&cfg, data); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// merge decodes data over cfg; keys absent from data leave cfg untouched.
func merge(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate reports settings no component can work with.
func (c Config) Validate() error {
	if c.Document.Indent < 1 || c.Document.Indent > 8 {
		return fmt.Errorf("document.indent must be between 1 and 8, got %d", c.Document.Indent)
	}
	if c.Display.MaxColumnWidth < 4 {
		return fmt.Errorf("display.max_column_width must be at least 4, got %d", c.Display.MaxColumnWidth)
	}
	if c.Export.RowIDColumn == "" {
		return errors.New("export.row_id_column must not be empty")
	}
	if c.Display.Locale != "" {
		if _, err := language.Parse(c.Display.Locale); err != nil {
			return fmt.Errorf("display.locale: %w", err)
		}
	}
	return nil
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResolvePath returns the explicit path if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/jtv/config.yaml) or ~/.config/jtv/config.yaml if present.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	candidate := ""
	if xdg != "" {
		candidate = filepath.Join(xdg, AppDir, FileName)
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", AppDir, FileName)
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}
