package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// attrMap decodes attributes from plain YAML scalars: booleans, integers,
// floats and strings keep their type, a three-element list is a vector,
// and a mapping is read as a full types.Attr.
type attrMap map[string]types.Attr

func (m *attrMap) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", n.Line)
	}
	out := attrMap{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		a, err := decodeAttr(n.Content[i+1])
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out[key] = a
	}
	*m = out
	return nil
}

func decodeAttr(n *yaml.Node) (types.Attr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return types.Attr{}, err
			}
			return world.Bool(b), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return types.Attr{}, err
			}
			return world.Int(i), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return types.Attr{}, err
			}
			return world.Float(f), nil
		}
		return world.String(n.Value), nil
	case yaml.SequenceNode:
		var v []float64
		if err := n.Decode(&v); err != nil {
			return types.Attr{}, err
		}
		if len(v) != 3 {
			return types.Attr{}, fmt.Errorf("line %d: vector needs 3 numbers, got %d", n.Line, len(v))
		}
		return types.Attr{Kind: types.AttrVec, Vec: [3]float64{v[0], v[1], v[2]}}, nil
	case yaml.MappingNode:
		var a types.Attr
		if err := n.Decode(&a); err != nil {
			return types.Attr{}, err
		}
		return a, nil
	}
	return types.Attr{}, fmt.Errorf("line %d: unsupported attribute value", n.Line)
}
