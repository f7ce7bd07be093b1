package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/jtv/internal/tree"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	// FormatYAMLStream is a YAML input holding several documents separated
	// by "---". It loads as an array with one element per document.
	FormatYAMLStream Format = "yaml-stream"
	FormatTOML       Format = "toml"
)

// ParseFormat maps a user supplied name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "yaml-stream":
		return FormatYAMLStream, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown format %q (expected json, ndjson, yaml or toml)", s)
}

// ErrEmptyInput is returned for input holding nothing but whitespace.
var ErrEmptyInput = errors.New("empty input")

// ParseError reports malformed input. Line and Offset are zero when the
// decoder does not report a position.
type ParseError struct {
	Format Format
	Line   int
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("invalid %s at line %d: %v", e.Format, e.Line, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("invalid %s at offset %d: %v", e.Format, e.Offset, e.Err)
	default:
		return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load parses input into a single root value, auto-detecting the format.
// Supports:
// - Single JSON object/array (strict)
// - Newline-delimited JSON (NDJSON): one JSON value per line
// - YAML: single document or multi-document (separated by ---)
// - TOML
//
// Object key order is kept for JSON and YAML. TOML tables come back with
// sorted keys.
func Load(input string) (tree.Value, Format, error) {
	format := Detect(input)
	if format == "" {
		return tree.Value{}, "", ErrEmptyInput
	}
	return load(input, format)
}

// load parses input as format. A YAML stream holding a single document is
// reported as plain YAML so that writing it back keeps its shape.
func load(input string, format Format) (tree.Value, Format, error) {
	if format == FormatYAMLStream {
		docs, err := loadYAMLStream(input)
		if err != nil {
			return tree.Value{}, format, err
		}
		if len(docs) == 1 {
			return docs[0], FormatYAML, nil
		}
		return tree.Array(docs...), format, nil
	}
	v, err := LoadAs(input, format)
	return v, format, err
}

// Detect guesses the format of input. It returns "" for empty input.
func Detect(input string) Format {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	// Multi-document YAML first (most restrictive)
	if strings.Contains(input, "\n---") || strings.HasPrefix(input, "---") {
		return FormatYAMLStream
	}

	// Several lines that each look like JSON
	if lines := strings.Split(input, "\n"); len(lines) > 1 && isLikelyNDJSON(lines) {
		if _, err := tree.ParseString(input); err != nil {
			return FormatNDJSON
		}
	}

	// TOML [section] headers look like JSON arrays, so check TOML first
	if isLikelyTOML(input) {
		return FormatTOML
	}

	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadAs parses input as format.
func LoadAs(input string, format Format) (tree.Value, error) {
	if strings.TrimSpace(input) == "" {
		return tree.Value{}, ErrEmptyInput
	}
	switch format {
	case FormatJSON:
		return loadJSON(input)
	case FormatNDJSON:
		return loadNDJSON(input)
	case FormatYAML:
		return loadYAML(input)
	case FormatYAMLStream:
		docs, err := loadYAMLStream(input)
		if err != nil {
			return tree.Value{}, err
		}
		return tree.Array(docs...), nil
	case FormatTOML:
		return loadTOML(input)
	}
	return tree.Value{}, fmt.Errorf("unknown format %q", format)
}

// LoadFile reads a file and parses it into a single root value. A known
// extension decides the format; anything else is auto-detected.
func LoadFile(path string) (tree.Value, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tree.Value{}, "", err
	}
	format, ok := FormatForPath(path)
	if !ok {
		return Load(string(data))
	}
	if format == FormatYAML && Detect(string(data)) == FormatYAMLStream {
		format = FormatYAMLStream
	}
	return load(string(data), format)
}

// FormatForPath maps a file extension onto a Format.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".ndjson", ".jsonl":
		return FormatNDJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	}
	return "", false
}

func loadJSON(input string) (tree.Value, error) {
	v, err := tree.ParseString(input)
	if err != nil {
		pe := &ParseError{Format: FormatJSON, Err: err}
		var se *tree.SyntaxError
		if errors.As(err, &se) {
			pe.Offset = se.Offset
			pe.Line = lineAt(input, se.Offset)
			pe.Err = errors.New(se.Msg)
		}
		return tree.Value{}, pe
	}
	return v, nil
}

// loadNDJSON parses newline-delimited JSON into an array.
// Lines that are not valid JSON are kept as plain strings. A bare carriage
// return also ends a line.
func loadNDJSON(input string) (tree.Value, error) {
	lines := strings.FieldsFunc(input, func(r rune) bool { return r == '\n' || r == '\r' })
	items := make([]tree.Value, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := tree.ParseString(line)
		if err != nil {
			items = append(items, tree.String(line))
			continue
		}
		items = append(items, v)
	}
	if len(items) == 0 {
		return tree.Value{}, &ParseError{Format: FormatNDJSON, Err: errors.New("no data found in input")}
	}
	return tree.Array(items...), nil
}

func loadYAML(input string) (tree.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(input), &doc); err != nil {
		return tree.Value{}, yamlError(FormatYAML, err)
	}
	v, err := fromNode(&doc)
	if err != nil {
		return tree.Value{}, &ParseError{Format: FormatYAML, Line: doc.Line, Err: err}
	}
	return v, nil
}

// loadYAMLStream parses several YAML documents into an array. Empty
// documents are skipped.
func loadYAMLStream(input string) ([]tree.Value, error) {
	dec := yaml.NewDecoder(strings.NewReader(input))
	var docs []tree.Value
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, yamlError(FormatYAMLStream, err)
		}
		if len(doc.Content) == 0 || isNullNode(doc.Content[0]) {
			continue
		}
		v, err := fromNode(&doc)
		if err != nil {
			return nil, &ParseError{Format: FormatYAMLStream, Line: doc.Line, Err: err}
		}
		docs = append(docs, v)
	}
	if len(docs) == 0 {
		return nil, &ParseError{Format: FormatYAMLStream, Err: errors.New("no documents found")}
	}
	return docs, nil
}

func loadTOML(input string) (tree.Value, error) {
	var data map[string]any
	if err := toml.Unmarshal([]byte(input), &data); err != nil {
		pe := &ParseError{Format: FormatTOML, Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, _ = de.Position()
		}
		return tree.Value{}, pe
	}
	v, err := tree.FromGo(normalizeTOML(data))
	if err != nil {
		return tree.Value{}, &ParseError{Format: FormatTOML, Err: err}
	}
	return v, nil
}

// normalizeTOML turns TOML local date and time values into their text form.
func normalizeTOML(x any) any {
	switch t := x.(type) {
	case map[string]any:
		for k, v := range t {
			t[k] = normalizeTOML(v)
		}
		return t
	case []any:
		for i, v := range t {
			t[i] = normalizeTOML(v)
		}
		return t
	case toml.LocalDate:
		return t.String()
	case toml.LocalTime:
		return t.String()
	case toml.LocalDateTime:
		return t.String()
	}
	return x
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlError(format Format, err error) error {
	pe := &ParseError{Format: format, Err: err}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

func lineAt(input string, offset int64) int {
	if offset > int64(len(input)) {
		offset = int64(len(input))
	}
	return bytes.Count([]byte(input[:offset]), []byte("\n")) + 1
}

// isLikelyNDJSON heuristic: returns true if the input looks like newline-delimited JSON.
// A majority of non-empty lines must start with '{' or '[' so that YAML files with
// many bare list items are not misclassified.
func isLikelyNDJSON(lines []string) bool {
	jsonCount := 0
	nonEmptyCount := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmptyCount++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonCount++
		}
	}

	return nonEmptyCount > 1 && jsonCount > nonEmptyCount/2
}

var (
	// [server], [[items]], ["table name"], [database.credentials], [server."host.name"]
	// but not JSON arrays like [1, 2, 3]
	tomlSection = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	// key = value (key: value is YAML)
	tomlKeyValue = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// isLikelyTOML heuristic: returns true if the input has section headers or
// mostly key = value lines.
func isLikelyTOML(input string) bool {
	sectionCount := 0
	keyValueCount := 0
	nonEmptyCount := 0

	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmptyCount++
		if tomlSection.MatchString(line) {
			sectionCount++
		}
		if tomlKeyValue.MatchString(line) {
			keyValueCount++
		}
	}

	if sectionCount > 0 {
		return true
	}
	return nonEmptyCount > 0 && keyValueCount > nonEmptyCount/2
}
