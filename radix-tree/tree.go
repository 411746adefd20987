package radix

import (
	"errors"
	"reflect"
	"strings"
)

var (
	// ErrEmptyKey is returned when inserting the empty string. The empty key
	// is reserved for the root of the tree.
	ErrEmptyKey = errors.New("radix: empty key")

	// ErrNilValue is returned when inserting a nil pointer, map, slice,
	// channel, function or interface value.
	ErrNilValue = errors.New("radix: nil value")
)

// Tree implements a radix tree (https://en.wikipedia.org/wiki/Radix_tree)
// with string keys. Chains of single-child nodes are merged into one edge, so
// the number of nodes is bounded by the number of keys rather than the total
// length of the keys. Keys are ordered by byte value.
//
// Each node indexes its children by the first byte of their edge label, so
// descending one level costs a bitmap rank rather than a search of the
// children.
//
// The zero-value Tree is ready to use. A Tree is not safe for concurrent use
// if any goroutine modifies it. Concurrent readers are fine.
type Tree[V any] struct {
	root node[V]
	len  int
}

// Entry is a single key and value, as returned by Entries.
type Entry[V any] struct {
	Key   string
	Value V
}

// IterFunc allows callers to iterate over the tree with Ascend and
// WalkPrefix. Iteration will stop when this function returns false.
type IterFunc[V any] func(key string, value V) bool

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// Insert stores value under key, replacing any existing value. If key was
// already present, the previous value is returned with true.
func (t *Tree[V]) Insert(key string, value V) (V, bool, error) {
	var zero V
	if key == "" {
		return zero, false, ErrEmptyKey
	}
	if isNil(value) {
		return zero, false, ErrNilValue
	}

	old, ok := t.root.insert(key, value)
	if !ok {
		t.len++
	}
	return old, ok, nil
}

// Get returns the value stored under exactly key. A key that is only a
// prefix, or an extension, of stored keys is not found.
func (t *Tree[V]) Get(key string) (V, bool) {
	n, overhang := t.root.findPrefix(key)
	if n == nil || overhang != "" || !n.hasValue {
		var zero V
		return zero, false
	}
	return n.value, true
}

// Delete removes key from the tree, returning its value if it was present.
func (t *Tree[V]) Delete(key string) (V, bool) {
	old, ok := t.root.delete(key)
	if ok {
		t.len--
	}
	return old, ok
}

// DeletePrefix removes every key starting with prefix, and returns the
// number of keys removed. An empty prefix removes everything.
func (t *Tree[V]) DeletePrefix(prefix string) int {
	if prefix == "" {
		removed := t.len
		t.Clear()
		return removed
	}
	removed := t.root.deletePrefix(prefix)
	t.len -= removed
	return removed
}

func (t *Tree[V]) Len() int {
	return t.len
}

func (t *Tree[V]) Clear() {
	t.root = node[V]{}
	t.len = 0
}

// Ascend calls iter for every entry, in ascending key order.
func (t *Tree[V]) Ascend(iter IterFunc[V]) {
	t.root.collect("", iter)
}

// WalkPrefix calls iter, in ascending key order, for every entry whose key
// starts with prefix. Keys are passed to iter in full, including prefix.
func (t *Tree[V]) WalkPrefix(prefix string, iter IterFunc[V]) {
	n, overhang := t.root.findPrefix(prefix)
	if n == nil {
		return
	}
	// collect prepends n's label, which may extend past the end of prefix.
	parentKey := prefix[:len(prefix)-(len(n.label)-len(overhang))]
	n.collect(parentKey, iter)
}

// Keys returns all keys in ascending order.
func (t *Tree[V]) Keys() []string {
	keys := make([]string, 0, t.len)
	t.Ascend(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Entries returns all keys and their values in ascending key order.
func (t *Tree[V]) Entries() []Entry[V] {
	entries := make([]Entry[V], 0, t.len)
	t.Ascend(func(key string, value V) bool {
		entries = append(entries, Entry[V]{Key: key, Value: value})
		return true
	})
	return entries
}

// Subtree returns a new tree holding every entry whose key starts with
// prefix, keyed by the remainder of the key after prefix. If prefix itself is
// a key, its value is stored in the new tree under the empty key. The new
// tree is a copy and does not share nodes with t.
func (t *Tree[V]) Subtree(prefix string) *Tree[V] {
	sub := new(Tree[V])
	n, overhang := t.root.findPrefix(prefix)
	if n == nil {
		return sub
	}

	c := n.copy()
	if overhang == "" {
		c.label = ""
		sub.root = *c
	} else {
		c.label = overhang
		sub.root.addChild(c)
	}
	sub.len = sub.root.count()
	return sub
}

// Min returns the smallest key and its value.
func (t *Tree[V]) Min() (string, V, bool) {
	key, n := t.root.min()
	if n == nil {
		var zero V
		return "", zero, false
	}
	return key, n.value, true
}

// Max returns the largest key and its value.
func (t *Tree[V]) Max() (string, V, bool) {
	key, n := t.root.max()
	if n == nil {
		var zero V
		return "", zero, false
	}
	return key, n.value, true
}

// String returns the node structure of the tree, for debugging. Each line is
// an edge label, indented by depth, followed by the value if one is stored.
func (t *Tree[V]) String() string {
	var b strings.Builder
	t.root.dump(&b, 0)
	return b.String()
}
