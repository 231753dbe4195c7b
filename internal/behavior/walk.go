package behavior

import (
	"fmt"
	"reflect"
	"strings"
)

// NodeLabel returns the display name of n: its NodeName when it implements
// [Named], otherwise its type name.
func NodeLabel(n Node) string {
	if n == nil {
		return "<nil>"
	}
	if named, ok := n.(Named); ok {
		return named.NodeName()
	}
	t := reflect.TypeOf(n)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// walk visits n and its descendants depth-first, parents before children,
// stopping early when visit returns false.
func walk(n Node, visit func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	if c, ok := n.(Composite); ok {
		for _, child := range c.Children() {
			if !walk(child, visit) {
				return false
			}
		}
	}
	return true
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from visit stops the walk.
func Walk(n Node, visit func(Node) bool) {
	walk(n, visit)
}

// FindNodes returns every node in the tree, roots and descendants, for
// which pred returns true, in depth-first order.
func (t *Tree) FindNodes(pred func(Node) bool) []Node {
	var out []Node
	for i := range t.count {
		walk(t.slots[i].node, func(n Node) bool {
			if pred(n) {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

// ActiveNodes returns the roots recorded as Running.
func (t *Tree) ActiveNodes() []Node {
	var out []Node
	for i := range t.count {
		if t.slots[i].last == Running {
			out = append(out, t.slots[i].node)
		}
	}
	return out
}

// Paths returns the distinct slash-separated label paths of every node.
func (t *Tree) Paths() []string {
	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	var visit func(n Node, prefix string)
	visit = func(n Node, prefix string) {
		p := joinPath(prefix, NodeLabel(n))
		add(p)
		if c, ok := n.(Composite); ok {
			for _, child := range c.Children() {
				visit(child, p)
			}
		}
	}
	for i := range t.count {
		visit(t.slots[i].node, "")
	}
	return paths
}

// ActivePaths returns, for each root recorded as Running, the path from
// the root down its chain of running descendants.
func (t *Tree) ActivePaths() []string {
	var paths []string
	seen := make(map[string]struct{})
	var follow func(n Node, prefix string)
	follow = func(n Node, prefix string) {
		p := joinPath(prefix, NodeLabel(n))
		var active []Node
		if c, ok := n.(Composite); ok {
			active = c.ActiveChildren()
		}
		if len(active) == 0 {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				paths = append(paths, p)
			}
			return
		}
		for _, child := range active {
			follow(child, p)
		}
	}
	for i := range t.count {
		if t.slots[i].last == Running {
			follow(t.slots[i].node, "")
		}
	}
	return paths
}

func joinPath(prefix, label string) string {
	if prefix == "" {
		return label
	}
	return prefix + "/" + label
}

func (t *Tree) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tree(%s, roots=%d, cursor=%d)\n", t.id, t.count, t.cursor)
	for _, p := range t.Paths() {
		b.WriteString("  ")
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}
