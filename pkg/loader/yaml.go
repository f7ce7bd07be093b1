package loader

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/jtv/internal/tree"
)

const (
	tagNull  = "!!null"
	tagBool  = "!!bool"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagStr   = "!!str"
	tagMap   = "!!map"
	tagSeq   = "!!seq"
	mergeKey = "<<"
)

// fromNode converts a decoded YAML node, keeping mapping order. Aliases are
// expanded and merge keys fold the referenced mappings in.
func fromNode(n *yaml.Node) (tree.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tree.Null(), nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return tree.Value{}, fmt.Errorf("line %d: unresolved alias", n.Line)
		}
		return fromNode(n.Alias)
	case yaml.SequenceNode:
		items := make([]tree.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return tree.Value{}, err
			}
			items[i] = v
		}
		return tree.Array(items...), nil
	case yaml.MappingNode:
		return fromMapping(n)
	case yaml.ScalarNode:
		return fromScalar(n)
	}
	return tree.Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func fromMapping(n *yaml.Node) (tree.Value, error) {
	var merged, own []tree.Member
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, val := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.Value == mergeKey && k.ShortTag() == "!!merge" {
			members, err := mergeMembers(val)
			if err != nil {
				return tree.Value{}, err
			}
			merged = append(merged, members...)
			continue
		}
		key, err := keyText(k)
		if err != nil {
			return tree.Value{}, err
		}
		v, err := fromNode(val)
		if err != nil {
			return tree.Value{}, err
		}
		own = append(own, tree.Field(key, v))
	}
	if len(merged) == 0 {
		return tree.Object(own...), nil
	}
	// explicit keys override merged ones
	return tree.Object(append(merged, own...)...), nil
}

func mergeMembers(n *yaml.Node) ([]tree.Member, error) {
	if n.Kind == yaml.SequenceNode {
		var out []tree.Member
		for _, c := range n.Content {
			members, err := mergeMembers(c)
			if err != nil {
				return nil, err
			}
			out = append(out, members...)
		}
		return out, nil
	}
	v, err := fromNode(n)
	if err != nil {
		return nil, err
	}
	if v.Kind() != tree.KindObject {
		return nil, fmt.Errorf("line %d: merge value is not a mapping", n.Line)
	}
	return v.Members(), nil
}

func keyText(k *yaml.Node) (string, error) {
	if k.Kind == yaml.AliasNode && k.Alias != nil {
		k = k.Alias
	}
	if k.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
	}
	return k.Value, nil
}

func fromScalar(n *yaml.Node) (tree.Value, error) {
	switch n.ShortTag() {
	case tagNull:
		return tree.Null(), nil
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return tree.Value{}, err
		}
		return tree.Bool(b), nil
	case tagInt:
		var i int64
		if err := n.Decode(&i); err == nil {
			return tree.Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return tree.NumberLiteral(strconv.FormatUint(u, 10)), nil
		}
		return tree.String(n.Value), nil
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return tree.Value{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return tree.String(n.Value), nil
		}
		return tree.Number(f), nil
	default:
		// strings, timestamps, binary and custom tags keep their text
		return tree.String(n.Value), nil
	}
}

func isNullNode(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == tagNull
}

// toNode builds a YAML node for v, keeping object key order.
func toNode(v tree.Value) *yaml.Node {
	switch v.Kind() {
	case tree.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBool, Value: strconv.FormatBool(b)}
	case tree.KindNumber:
		tag := tagFloat
		if _, ok := v.Integer(); ok {
			tag = tagInt
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.Literal()}
	case tree.KindString:
		s, _ := v.AsString()
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
		return n
	case tree.KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
		for _, m := range v.Members() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: m.Key},
				toNode(m.Value))
		}
		if len(n.Content) == 0 {
			n.Style = yaml.FlowStyle
		}
		return n
	case tree.KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
		for _, item := range v.Items() {
			n.Content = append(n.Content, toNode(item))
		}
		if len(n.Content) == 0 {
			n.Style = yaml.FlowStyle
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}
	}
}
