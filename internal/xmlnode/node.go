package xmlnode

import (
	"math"
	"strconv"
)

// Node is one decoded XML element. Attribute and text values hold a string,
// int64, float64 or bool depending on the decode options.
type Node struct {
	Name     string
	Attrs    map[string]any
	Text     any
	Elements []*Node
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, child := range n.Elements {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Children returns every direct child with the given name. A single element
// and a repeated one both come back as a slice.
func (n *Node) Children(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, child := range n.Elements {
		if child.Name == name {
			out = append(out, child)
		}
	}
	return out
}

// Attr returns the value of an attribute.
func (n *Node) Attr(name string) (any, bool) {
	if n == nil || n.Attrs == nil {
		return nil, false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Int returns the element text as an int.
func (n *Node) Int() (int, bool) {
	if n == nil {
		return 0, false
	}
	return Int(n.Text)
}

// String returns the element text as a string, formatting coerced values back.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	return String(n.Text)
}

// Int converts a decoded value to an int. Integral floats and numeric strings
// are accepted so callers work with and without ParseNumbers.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		i, err := strconv.Atoi(t)
		return i, err == nil
	default:
		return 0, false
	}
}

// String converts a decoded value back to text.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
