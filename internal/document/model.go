package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrEmptyDocument is returned when the input holds no element at all.
var ErrEmptyDocument = errors.New("document has no root element")

// Document is a parsed markup document.
type Document struct {
	Root *Element
}

// Element is a node of the element tree. Text content is not retained.
type Element struct {
	Name     string
	Attrs    []xml.Attr
	Parent   *Element
	Children []*Element
}

// Parse reads an XML/SVG document into an element tree. The charset declared
// in the prolog is honoured and HTML entities are accepted.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	doc := &Document{}
	var cur *Element

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Name:   t.Name.Local,
				Attrs:  t.Copy().Attr,
				Parent: cur,
			}
			if cur == nil {
				if doc.Root != nil {
					// Content after the root element is ignored.
					return doc, nil
				}
				doc.Root = el
			} else {
				cur.Children = append(cur.Children, el)
			}
			cur = el

		case xml.EndElement:
			if cur != nil {
				cur = cur.Parent
			}
		}
	}

	if doc.Root == nil {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// ParseString parses a document held in memory.
func ParseString(text string) (*Document, error) {
	return Parse(strings.NewReader(text))
}

// ParseBytes parses a document held in memory.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// FindFirst returns the first element, in document order, with the given tag
// name, or nil.
func (d *Document) FindFirst(tag string) *Element {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.FindFirst(tag)
}

// Descendants returns every element in the document with the given tag name,
// in document order.
func (d *Document) Descendants(tag string) []*Element {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Descendants(tag)
}

// Attr looks up an attribute by its local name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// FindFirst searches the element and its descendants depth-first.
func (e *Element) FindFirst(tag string) *Element {
	if e.Name == tag {
		return e
	}
	for _, child := range e.Children {
		if found := child.FindFirst(tag); found != nil {
			return found
		}
	}
	return nil
}

// Descendants returns the element itself and all elements below it whose name
// matches tag, in document order.
func (e *Element) Descendants(tag string) []*Element {
	var out []*Element
	e.walk(func(el *Element) {
		if el.Name == tag {
			out = append(out, el)
		}
	})
	return out
}

func (e *Element) walk(fn func(*Element)) {
	fn(e)
	for _, child := range e.Children {
		child.walk(fn)
	}
}
