package dom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Handler reacts to a trigger being activated.
type Handler func(ctx context.Context)

// Document is an HTML tree guarded by a single lock, plus a listener
// registry keyed by trigger attribute.
type Document struct {
	mutex sync.RWMutex
	root  *html.Node

	handlersMutex sync.RWMutex
	handlers      map[string][]Handler
}

// Root is the locked view of a document handed to View and Update callbacks.
// It must not be retained after the callback returns.
type Root struct {
	node *html.Node
}

// Parse reads an HTML page or fragment.
func Parse(r io.Reader) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return &Document{
		root:     node,
		handlers: make(map[string][]Handler),
	}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// View runs fn with shared access to the tree.
func (d *Document) View(fn func(Root)) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	fn(Root{node: d.root})
}

// Update runs fn with exclusive access to the tree. Everything fn changes
// becomes visible to readers at once.
func (d *Document) Update(fn func(Root)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	fn(Root{node: d.root})
}

// Has reports whether an element carrying attr is present.
func (d *Document) Has(attr string) bool {
	var found bool
	d.View(func(root Root) {
		found = root.Find(attr) != nil
	})
	return found
}

// On attaches h to the element carrying attr. Nothing is attached when the
// element is absent, and the return value says which case happened.
func (d *Document) On(attr string, h Handler) bool {
	if h == nil || !d.Has(attr) {
		return false
	}

	d.handlersMutex.Lock()
	defer d.handlersMutex.Unlock()
	d.handlers[attr] = append(d.handlers[attr], h)
	return true
}

// Click dispatches to every handler attached to attr, in attach order, on
// the calling goroutine. It returns the number of handlers run.
func (d *Document) Click(ctx context.Context, attr string) int {
	d.handlersMutex.RLock()
	hs := make([]Handler, len(d.handlers[attr]))
	copy(hs, d.handlers[attr])
	d.handlersMutex.RUnlock()

	for _, h := range hs {
		h(ctx)
	}
	return len(hs)
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	var err error
	d.View(func(root Root) {
		err = html.Render(w, root.node)
	})
	return err
}

// Find returns the first element, in document order, that carries attr.
func (r Root) Find(attr string) *Element {
	if n := findAttr(r.node, attr); n != nil {
		return &Element{node: n}
	}
	return nil
}

func findAttr(n *html.Node, attr string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == attr {
				return n
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAttr(c, attr); found != nil {
			return found
		}
	}
	return nil
}
