package radix

import (
	"fmt"
	"strings"

	"github.com/akmistry/go-radix/bitmap"
)

type node[V any] struct {
	// Edge label: the part of the key consumed between the parent and this
	// node. Only the root has an empty label.
	label string

	value    V
	hasValue bool

	// Children, sorted by the first byte of their labels. No two children
	// share a first byte, and childIndex has a bit set for each one present.
	childIndex bitmap.Bitmap256
	children   []*node[V]
}

func newLeaf[V any](label string, value V) *node[V] {
	return &node[V]{
		label:    label,
		value:    value,
		hasValue: true,
	}
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func (n *node[V]) setValue(value V) (V, bool) {
	old, had := n.value, n.hasValue
	n.value = value
	n.hasValue = true
	return old, had
}

func (n *node[V]) clearValue() (V, bool) {
	var zero V
	old, had := n.value, n.hasValue
	n.value = zero
	n.hasValue = false
	return old, had
}

// getChild returns the child whose label starts with index, and its slot in
// the children slice. If there is no such child, the slot is where it would
// be inserted.
func (n *node[V]) getChild(index uint8) (*node[V], int) {
	i := n.childIndex.CountLess(index)
	if n.childIndex.Get(index) {
		return n.children[i], i
	}
	return nil, i
}

// setChild stores child in the slot for index, as returned by getChild. A nil
// child removes the slot.
func (n *node[V]) setChild(index uint8, child *node[V], slot int) {
	i := slot
	if n.childIndex.Get(index) {
		if child != nil {
			n.children[i] = child
			return
		}
		n.childIndex.Clear(index)
		copy(n.children[i:], n.children[i+1:])
		// Nil out the last element so that the GC can free the subtree.
		n.children[len(n.children)-1] = nil
		n.children = n.children[:len(n.children)-1]

		if len(n.children) > 2 && len(n.children) < (cap(n.children)/3) {
			n.children = append([]*node[V](nil), n.children...)
		}
	} else if child != nil {
		n.childIndex.Set(index)

		if i < len(n.children) {
			n.children = append(n.children, nil)
			copy(n.children[i+1:], n.children[i:])
			n.children[i] = child
		} else {
			n.children = append(n.children, child)
		}
	}
}

func (n *node[V]) isLeaf() bool {
	return n.childIndex.Empty()
}

func (n *node[V]) addChild(child *node[V]) {
	index := child.label[0]
	_, slot := n.getChild(index)
	n.setChild(index, child, slot)
}

// findPrefix descends from n, consuming edge labels from s. n's own label is
// assumed to be consumed already.
//
// If s ends on a node boundary, that node is returned with an empty overhang.
// If s ends part way along an edge, the node below that edge is returned,
// along with the part of its label past the end of s. Returns nil if no path
// in this subtree starts with s.
func (n *node[V]) findPrefix(s string) (*node[V], string) {
	for {
		if len(s) == 0 {
			return n, ""
		}

		next, _ := n.getChild(s[0])
		if next == nil {
			return nil, ""
		}
		if len(s) < len(next.label) {
			if !strings.HasPrefix(next.label, s) {
				return nil, ""
			}
			return next, next.label[len(s):]
		}
		if !strings.HasPrefix(s, next.label) {
			return nil, ""
		}
		s = s[len(next.label):]
		n = next
	}
}

// insert stores value at key, relative to n. Returns the previous value, if
// key was already present.
func (n *node[V]) insert(key string, value V) (V, bool) {
	var zero V
	for {
		if len(key) == 0 {
			// The key ends exactly at n. Children are untouched.
			return n.setValue(value)
		}

		index := key[0]
		next, slot := n.getChild(index)
		if next == nil {
			// Nothing shares the first byte, so this is a new leaf.
			n.setChild(index, newLeaf(key, value), slot)
			return zero, false
		}

		common := commonPrefixLen(key, next.label)
		if common == len(next.label) {
			key = key[common:]
			n = next
			continue
		}

		// The key diverges from, or ends inside, next's label. Split the edge
		// at the common prefix, and hang next off the new node by the rest of
		// its label. common > 0, since both start with index.
		split := &node[V]{label: next.label[:common]}
		next.label = next.label[common:]
		split.addChild(next)
		if common == len(key) {
			split.setValue(value)
		} else {
			split.addChild(newLeaf(key[common:], value))
		}
		n.setChild(index, split, slot)
		return zero, false
	}
}

// delete removes the value at key, relative to n. Children left without a
// value are removed if they are leaves, or merged with their only child.
func (n *node[V]) delete(key string) (V, bool) {
	var zero V
	if len(key) == 0 {
		return n.clearValue()
	}

	index := key[0]
	next, slot := n.getChild(index)
	if next == nil || !strings.HasPrefix(key, next.label) {
		return zero, false
	}

	old, ok := next.delete(key[len(next.label):])
	if !ok {
		return zero, false
	}

	if !next.hasValue {
		switch len(next.children) {
		case 0:
			n.setChild(index, nil, slot)
		case 1:
			n.setChild(index, next.mergeChild(), slot)
		}
	}
	return old, true
}

// deletePrefix removes every value whose key, relative to n, starts with
// prefix. prefix must not be empty. Returns the number of values removed.
func (n *node[V]) deletePrefix(prefix string) int {
	index := prefix[0]
	next, slot := n.getChild(index)
	if next == nil {
		return 0
	}
	if len(prefix) <= len(next.label) {
		if !strings.HasPrefix(next.label, prefix) {
			return 0
		}
		removed := next.count()
		n.setChild(index, nil, slot)
		return removed
	}
	if !strings.HasPrefix(prefix, next.label) {
		return 0
	}

	removed := next.deletePrefix(prefix[len(next.label):])
	if removed > 0 && !next.hasValue {
		switch len(next.children) {
		case 0:
			n.setChild(index, nil, slot)
		case 1:
			n.setChild(index, next.mergeChild(), slot)
		}
	}
	return removed
}

// dump writes n and its subtree to b, one node per line, indented by depth.
func (n *node[V]) dump(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
	if depth == 0 {
		b.WriteString("<root>")
	} else {
		b.WriteString(n.label)
	}
	if n.hasValue {
		fmt.Fprintf(b, " = %v", n.value)
	}
	b.WriteByte('\n')
	for _, child := range n.children {
		child.dump(b, depth+1)
	}
}

// mergeChild collapses n into its only child, which takes over n's label as
// the head of its own. The child is returned to replace n in n's parent.
func (n *node[V]) mergeChild() *node[V] {
	child := n.children[0]
	child.label = n.label + child.label
	return child
}

// collect calls iter for each value in the subtree, in ascending key order.
// prefix is the absolute key of n's parent. Returns false if iter stopped
// the walk.
func (n *node[V]) collect(prefix string, iter IterFunc[V]) bool {
	key := prefix + n.label
	if n.hasValue && !iter(key, n.value) {
		return false
	}
	for _, child := range n.children {
		if !child.collect(key, iter) {
			return false
		}
	}
	return true
}

// copy returns a deep copy of the subtree rooted at n.
func (n *node[V]) copy() *node[V] {
	c := &node[V]{
		label:      n.label,
		value:      n.value,
		hasValue:   n.hasValue,
		childIndex: n.childIndex,
	}
	if len(n.children) > 0 {
		c.children = make([]*node[V], len(n.children))
		for i, child := range n.children {
			c.children[i] = child.copy()
		}
	}
	return c
}

func (n *node[V]) count() int {
	count := 0
	if n.hasValue {
		count++
	}
	for _, child := range n.children {
		count += child.count()
	}
	return count
}

func (n *node[V]) min() (string, *node[V]) {
	var key strings.Builder
	for {
		key.WriteString(n.label)
		if n.hasValue {
			return key.String(), n
		}
		if n.isLeaf() {
			return "", nil
		}
		n = n.children[0]
	}
}

func (n *node[V]) max() (string, *node[V]) {
	var key strings.Builder
	for {
		key.WriteString(n.label)
		if n.isLeaf() {
			if n.hasValue {
				return key.String(), n
			}
			return "", nil
		}
		n = n.children[len(n.children)-1]
	}
}
