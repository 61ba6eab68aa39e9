package golang

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v4"
)

var ErrUnsupportedLiteral = errors.New("value cannot be expressed as a Go literal")

// Literal renders an example value as a Go expression built from
// map[string]any, []any and scalar literals. Mapping keys keep their declared
// order. Nested elements are indented one tab deeper than depth and the
// closing brace is written at depth, so the literal can be placed on a line
// that is itself indented depth tabs.
func Literal(node *yaml.Node, depth int) (string, error) {
	var b strings.Builder
	if err := writeLiteral(&b, node, depth); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, node *yaml.Node, depth int) error {
	node = resolve(node)
	if node == nil {
		b.WriteString("nil")
		return nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		pairs, err := mappingPairs(node)
		if err != nil {
			return err
		}
		b.WriteString("map[string]any{")
		if len(pairs) == 0 {
			b.WriteString("}")
			return nil
		}
		b.WriteString("\n")
		for _, p := range pairs {
			indent(b, depth+1)
			b.WriteString(strconv.Quote(p.key))
			b.WriteString(": ")
			if err := writeLiteral(b, p.value, depth+1); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		indent(b, depth)
		b.WriteString("}")
	case yaml.SequenceNode:
		b.WriteString("[]any{")
		if len(node.Content) == 0 {
			b.WriteString("}")
			return nil
		}
		b.WriteString("\n")
		for _, item := range node.Content {
			indent(b, depth+1)
			if err := writeLiteral(b, item, depth+1); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		indent(b, depth)
		b.WriteString("}")
	case yaml.ScalarNode:
		s, err := scalarLiteral(node)
		if err != nil {
			return err
		}
		b.WriteString(s)
	default:
		return fmt.Errorf("%w: node kind %v at line %d", ErrUnsupportedLiteral, node.Kind, node.Line)
	}
	return nil
}

// Scalar returns the text of a scalar example, as used in a URL path.
func Scalar(node *yaml.Node) (string, bool) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return "", false
	}
	return node.Value, true
}

func scalarLiteral(node *yaml.Node) (string, error) {
	switch node.ShortTag() {
	case "!!null":
		return "nil", nil
	case "!!bool":
		var v bool
		if err := node.Decode(&v); err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnsupportedLiteral, err)
		}
		return strconv.FormatBool(v), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		// an untyped constant beyond int64 does not fit in any
		return floatLiteral(node)
	case "!!float":
		return floatLiteral(node)
	default:
		return strconv.Quote(node.Value), nil
	}
}

func floatLiteral(node *yaml.Node) (string, error) {
	var f float64
	if err := node.Decode(&f); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupportedLiteral, err)
	}
	switch {
	case math.IsNaN(f):
		return "math.NaN()", nil
	case math.IsInf(f, 1):
		return "math.Inf(1)", nil
	case math.IsInf(f, -1):
		return "math.Inf(-1)", nil
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

type literalPair struct {
	key   string
	value *yaml.Node
}

// mappingPairs flattens a mapping, applying merge keys. Explicit keys win over
// merged ones.
func mappingPairs(node *yaml.Node) ([]literalPair, error) {
	var pairs []literalPair
	seen := make(map[string]bool)
	var merges []*yaml.Node

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolve(node.Content[i])
		value := node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: non-scalar mapping key at line %d", ErrUnsupportedLiteral, key.Line)
		}
		if key.ShortTag() == "!!merge" {
			merges = append(merges, resolve(value))
			continue
		}
		if seen[key.Value] {
			continue
		}
		seen[key.Value] = true
		pairs = append(pairs, literalPair{key: key.Value, value: value})
	}

	for _, m := range merges {
		sources := []*yaml.Node{m}
		if m != nil && m.Kind == yaml.SequenceNode {
			sources = m.Content
		}
		for _, src := range sources {
			src = resolve(src)
			if src == nil || src.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: merge value is not a mapping", ErrUnsupportedLiteral)
			}
			inner, err := mappingPairs(src)
			if err != nil {
				return nil, err
			}
			for _, p := range inner {
				if seen[p.key] {
					continue
				}
				seen[p.key] = true
				pairs = append(pairs, p)
			}
		}
	}

	return pairs, nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil {
		switch node.Kind {
		case yaml.DocumentNode:
			if len(node.Content) == 0 {
				return nil
			}
			node = node.Content[0]
		case yaml.AliasNode:
			node = node.Alias
		default:
			return node
		}
	}
	return nil
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("\t", depth))
}
