package value

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML document, keeping mapping key order. JSON input is
// accepted too, YAML being a superset.
func DecodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return FromNode(&doc)
}

// FromNode converts a YAML node tree into the decoded value shape.
func FromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", key.Line)
			}
			v, err := FromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromNode(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool", "!!int", "!!float":
			var v any
			if err := n.Decode(&v); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return Normalize(v), nil
		}
		return n.Value, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

// Load decodes data as JSON when it parses as JSON and as YAML otherwise.
func Load(data []byte) (any, error) {
	if v, err := Decode(data); err == nil {
		return v, nil
	}
	return DecodeYAML(data)
}
