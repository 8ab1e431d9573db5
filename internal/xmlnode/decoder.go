// Package xmlnode decodes XML documents into a small generic node tree whose
// attribute and text values are coerced to numbers and booleans when they look
// like one.
package xmlnode

import (
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/Belphemur/AniBridge/internal/apperrors"
)

// Options controls how raw XML values are turned into node values.
type Options struct {
	// Normalize trims text, collapses internal whitespace runs to one space
	// and applies Unicode NFC.
	Normalize bool
	// StripPrefix drops namespace prefixes from attribute names (xml:lang -> lang).
	StripPrefix bool
	// ParseNumbers turns base-10 integers into int64 and finite decimals into float64.
	ParseNumbers bool
	// ParseBooleans turns "true"/"false" (any case) into bool.
	ParseBooleans bool
}

// DefaultOptions enables every transformation.
func DefaultOptions() Options {
	return Options{
		Normalize:     true,
		StripPrefix:   true,
		ParseNumbers:  true,
		ParseBooleans: true,
	}
}

// Decode reads one XML document from r. Documents in a non UTF-8 charset are
// converted according to their XML declaration.
func Decode(r io.Reader, opts Options) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, &apperrors.DecodeError{Source: "xml", Err: err}
	}

	root := doc.Root()
	if root == nil {
		return nil, apperrors.NewDecodeError("xml", "document has no root element")
	}

	return convert(root, opts), nil
}

// DecodeString is Decode for an in-memory document.
func DecodeString(xmlText string, opts Options) (*Node, error) {
	return Decode(strings.NewReader(xmlText), opts)
}

func convert(el *etree.Element, opts Options) *Node {
	node := &Node{
		Name: el.FullTag(),
		Text: coerce(normalize(el.Text(), opts), opts),
	}

	if len(el.Attr) > 0 {
		node.Attrs = make(map[string]any, len(el.Attr))
		for _, attr := range el.Attr {
			name := attr.Key
			if attr.Space != "" && !opts.StripPrefix {
				name = attr.Space + ":" + attr.Key
			}
			node.Attrs[name] = coerce(normalize(attr.Value, opts), opts)
		}
	}

	for _, child := range el.ChildElements() {
		node.Elements = append(node.Elements, convert(child, opts))
	}

	return node
}

func normalize(s string, opts Options) string {
	if !opts.Normalize {
		return s
	}
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
