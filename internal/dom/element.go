package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a handle on one node of a Document. All methods accept a nil
// receiver and do nothing, so absent template elements need no checks.
type Element struct {
	node *html.Node
}

// NewElement creates a detached element, ready to be filled and appended.
func NewElement(tag string, classes ...string) *Element {
	e := &Element{node: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}}
	e.AddClass(classes...)
	return e
}

// Tag returns the element name.
func (e *Element) Tag() string {
	if e == nil {
		return ""
	}
	return e.node.Data
}

// Attr returns the value of key and whether it is set.
func (e *Element) Attr(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets key to val, replacing any previous value.
func (e *Element) SetAttr(key, val string) {
	if e == nil {
		return
	}
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			e.node.Attr[i].Val = val
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: val})
}

// SetText replaces all children with a single text node.
func (e *Element) SetText(text string) {
	if e == nil {
		return
	}
	e.RemoveChildren()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text of all descendants.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	collectText(e.node, &b)
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// Classes returns the class list in attribute order.
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether class is in the class list.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends classes that are not already present.
func (e *Element) AddClass(classes ...string) {
	if e == nil || len(classes) == 0 {
		return
	}
	list := e.Classes()
	for _, c := range classes {
		if c != "" && !contains(list, c) {
			list = append(list, c)
		}
	}
	e.SetAttr("class", strings.Join(list, " "))
}

// RemoveClass drops every listed class.
func (e *Element) RemoveClass(classes ...string) {
	if e == nil || len(classes) == 0 {
		return
	}
	list := e.Classes()
	kept := list[:0]
	for _, c := range list {
		if !contains(classes, c) {
			kept = append(kept, c)
		}
	}
	if _, ok := e.Attr("class"); ok {
		e.SetAttr("class", strings.Join(kept, " "))
	}
}

// RemoveChildren detaches every child node.
func (e *Element) RemoveChildren() {
	if e == nil {
		return
	}
	for c := e.node.FirstChild; c != nil; c = e.node.FirstChild {
		e.node.RemoveChild(c)
	}
}

// AppendChild attaches a detached element as the last child.
func (e *Element) AppendChild(child *Element) {
	if e == nil || child == nil || child.node.Parent != nil {
		return
	}
	e.node.AppendChild(child.node)
}

// Append attaches each child in order.
func (e *Element) Append(children ...*Element) {
	for _, c := range children {
		e.AppendChild(c)
	}
}

// Children returns the element children, skipping text and comments.
func (e *Element) Children() []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{node: c})
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
