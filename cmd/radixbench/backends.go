package main

import (
	"errors"
	"sort"
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/docker/libkv/store"
	"github.com/samber/lo"

	"github.com/akmistry/go-radix/badgerkv"
	radix "github.com/akmistry/go-radix/radix-tree"
	"github.com/akmistry/go-radix/radixkv"
)

// A backend is one of the containers being compared. Get may be called from
// several goroutines at once, but never concurrently with Insert.
type backend interface {
	Name() string
	Insert(key, value string) error
	Get(key string) (string, bool, error)
	// PrefixKeys returns the keys starting with prefix, in ascending order.
	PrefixKeys(prefix string) ([]string, error)
	Close()
}

type treeBackend struct {
	tree radix.Tree[string]
}

func (*treeBackend) Name() string { return "radix.Tree" }
func (*treeBackend) Close()       {}

func (b *treeBackend) Insert(key, value string) error {
	_, _, err := b.tree.Insert(key, value)
	return err
}

func (b *treeBackend) Get(key string) (string, bool, error) {
	v, ok := b.tree.Get(key)
	return v, ok, nil
}

func (b *treeBackend) PrefixKeys(prefix string) ([]string, error) {
	sub := b.tree.Subtree(prefix)
	keys := sub.Keys()
	for i, k := range keys {
		keys[i] = prefix + k
	}
	return keys, nil
}

// mapBackend answers prefix queries with a full scan.
type mapBackend struct {
	m map[string]string
}

func newMapBackend() *mapBackend {
	return &mapBackend{m: make(map[string]string)}
}

func (*mapBackend) Name() string { return "map" }
func (*mapBackend) Close()       {}

func (b *mapBackend) Insert(key, value string) error {
	b.m[key] = value
	return nil
}

func (b *mapBackend) Get(key string) (string, bool, error) {
	v, ok := b.m[key]
	return v, ok, nil
}

func (b *mapBackend) PrefixKeys(prefix string) ([]string, error) {
	keys := lo.Filter(lo.Keys(b.m), func(k string, _ int) bool {
		return strings.HasPrefix(k, prefix)
	})
	sort.Strings(keys)
	return keys, nil
}

// kvBackend adapts any libkv store.
type kvBackend struct {
	name string
	kv   store.Store
}

func newRadixKVBackend() *kvBackend {
	return &kvBackend{name: "radixkv", kv: radixkv.NewStore()}
}

func newBadgerKVBackend(dir string, logger badger.Logger) (*kvBackend, error) {
	kv, err := badgerkv.NewStore(dir, logger)
	if err != nil {
		return nil, err
	}
	return &kvBackend{name: "badgerkv", kv: kv}, nil
}

func (b *kvBackend) Name() string { return b.name }

func (b *kvBackend) Close() {
	b.kv.Close()
}

func (b *kvBackend) Insert(key, value string) error {
	return b.kv.Put(key, []byte(value), nil)
}

func (b *kvBackend) Get(key string) (string, bool, error) {
	kv, err := b.kv.Get(key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return string(kv.Value), true, nil
}

func (b *kvBackend) PrefixKeys(prefix string) ([]string, error) {
	kvs, err := b.kv.List(prefix)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return lo.Map(kvs, func(kv *store.KVPair, _ int) string {
		return kv.Key
	}), nil
}
