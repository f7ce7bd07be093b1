package loader

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/jtv/internal/tree"
)

// DefaultIndent is used when Marshal is given an indent below one.
const DefaultIndent = 2

// Marshal serializes v in format. JSON and YAML keep object key order; TOML
// requires an object root and writes keys sorted.
func Marshal(v tree.Value, format Format, indent int) ([]byte, error) {
	if indent < 1 {
		indent = DefaultIndent
	}
	switch format {
	case FormatJSON:
		return tree.Encode(v, indent), nil
	case FormatNDJSON:
		return marshalNDJSON(v), nil
	case FormatYAML:
		return marshalYAML([]tree.Value{v}, indent)
	case FormatYAMLStream:
		if v.Kind() != tree.KindArray {
			return marshalYAML([]tree.Value{v}, indent)
		}
		return marshalYAML(v.Items(), indent)
	case FormatTOML:
		if v.Kind() != tree.KindObject {
			return nil, fmt.Errorf("toml: root must be an object, got %s", v.Kind())
		}
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(v.ToGo()); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func marshalNDJSON(v tree.Value) []byte {
	var buf bytes.Buffer
	if v.Kind() != tree.KindArray {
		buf.WriteString(v.String())
		buf.WriteByte('\n')
		return buf.Bytes()
	}
	for _, item := range v.Items() {
		buf.WriteString(item.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func marshalYAML(docs []tree.Value, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	for _, d := range docs {
		if err := enc.Encode(toNode(d)); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return buf.Bytes(), nil
}
