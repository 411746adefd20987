// Package radixkv provides an in-memory key-value store, backed by a radix
// tree, that is compatible with libkv's Store interface.
package radixkv

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/docker/libkv/store"

	radix "github.com/akmistry/go-radix/radix-tree"
)

type entry struct {
	value     []byte
	lastIndex uint64
}

func (e *entry) pair(key string) *store.KVPair {
	return &store.KVPair{
		Key:       key,
		Value:     append([]byte(nil), e.value...),
		LastIndex: e.lastIndex,
	}
}

// Store keeps all keys in a single radix tree. Reads may proceed in
// parallel, writes are serialised.
type Store struct {
	lock sync.RWMutex
	tree radix.Tree[*entry]

	// Index of the last write, stored in each entry as its LastIndex.
	index uint64
}

// Ensure Store satisfies store.Store interface
var _ = (store.Store)((*Store)(nil))

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tree.Clear()
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.tree.Len()
}

func (s *Store) Get(key string) (*store.KVPair, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	e, ok := s.tree.Get(key)
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return e.pair(key), nil
}

func (s *Store) Exists(key string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.tree.Get(key)
	return ok, nil
}

func (s *Store) put(key string, value []byte) (*entry, error) {
	e := &entry{
		value:     append([]byte(nil), value...),
		lastIndex: s.index + 1,
	}
	if _, _, err := s.tree.Insert(key, e); err != nil {
		return nil, fmt.Errorf("radixkv: put %q: %w", key, err)
	}
	s.index = e.lastIndex
	return e, nil
}

func (s *Store) Put(key string, value []byte, options *store.WriteOptions) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.put(key, value)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tree.Delete(key)
	return nil
}

// List returns every key starting with directory, in ascending key order.
// Keys are returned in full, not relative to directory.
func (s *Store) List(directory string) ([]*store.KVPair, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var kvs []*store.KVPair
	s.tree.WalkPrefix(directory, func(key string, e *entry) bool {
		kvs = append(kvs, e.pair(key))
		return true
	})
	if len(kvs) == 0 {
		return nil, store.ErrKeyNotFound
	}
	return kvs, nil
}

// DeleteTree removes every key starting with directory.
func (s *Store) DeleteTree(directory string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tree.DeletePrefix(directory)
	return nil
}

func (s *Store) AtomicPut(key string, value []byte, previous *store.KVPair, options *store.WriteOptions) (bool, *store.KVPair, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	old, ok := s.tree.Get(key)
	if !ok {
		if previous != nil {
			return false, nil, store.ErrKeyNotFound
		}
	} else if previous == nil {
		return false, nil, store.ErrKeyExists
	} else if !bytes.Equal(previous.Value, old.value) {
		return false, nil, store.ErrKeyModified
	}

	e, err := s.put(key, value)
	if err != nil {
		return false, nil, err
	}
	return true, e.pair(key), nil
}

func (s *Store) AtomicDelete(key string, previous *store.KVPair) (bool, error) {
	if previous == nil {
		return false, store.ErrPreviousNotSpecified
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	old, ok := s.tree.Get(key)
	if !ok {
		return false, store.ErrKeyNotFound
	}
	if !bytes.Equal(previous.Value, old.value) {
		return false, store.ErrKeyModified
	}
	s.tree.Delete(key)
	return true, nil
}

func (*Store) Watch(key string, stopCh <-chan struct{}) (<-chan *store.KVPair, error) {
	return nil, store.ErrCallNotSupported
}

func (*Store) WatchTree(directory string, stopCh <-chan struct{}) (<-chan []*store.KVPair, error) {
	return nil, store.ErrCallNotSupported
}

func (*Store) NewLock(key string, options *store.LockOptions) (store.Locker, error) {
	return nil, store.ErrCallNotSupported
}
