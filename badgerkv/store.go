// Package badgerkv provides an adapter to Badger's key-value store that is
// compatible with libkv's Store interface. Directory operations (List and
// DeleteTree) treat the directory as a plain key prefix, matching radixkv.
package badgerkv

import (
	"bytes"
	"runtime"

	"github.com/dgraph-io/badger"
	"github.com/docker/libkv/store"
)

const (
	MaxValueLogFileSize      = 256 << 20
	MaxDeleteTransactionSize = 65536
)

type Store struct {
	db *badger.DB
}

// Ensure Store satisfies store.Store interface
var _ = (store.Store)((*Store)(nil))

// NewStore opens, or creates, a Badger database in the directory name.
// Badger's own log messages are sent to logger, if not nil.
func NewStore(name string, logger badger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(name)
	opts.Dir = name
	opts.ValueDir = name
	opts.ValueLogFileSize = MaxValueLogFileSize
	if logger != nil {
		opts.Logger = logger
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (t *Store) DB() *badger.DB {
	return t.db
}

func (t *Store) Close() {
	t.db.Close()
}

func (t *Store) Get(key string) (*store.KVPair, error) {
	return t.GetInto(key, nil)
}

func (t *Store) GetInto(key string, buf []byte) (*store.KVPair, error) {
	var kv *store.KVPair
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(buf)
		if err != nil {
			return err
		}
		kv = &store.KVPair{Key: key, Value: val, LastIndex: item.Version()}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, store.ErrKeyNotFound
	} else if err != nil {
		return nil, err
	}
	return kv, nil
}

func (t *Store) Exists(key string) (bool, error) {
	err := t.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Store) Put(key string, value []byte, options *store.WriteOptions) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (t *Store) Delete(key string) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// List returns every key starting with directory, in ascending key order.
func (t *Store) List(directory string) ([]*store.KVPair, error) {
	prefix := []byte(directory)
	var kvs []*store.KVPair
	err := t.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			item := iter.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			kvs = append(kvs, &store.KVPair{
				Key:       string(item.Key()),
				Value:     val,
				LastIndex: item.Version(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(kvs) == 0 {
		return nil, store.ErrKeyNotFound
	}
	return kvs, nil
}

// deleteFrom deletes keys starting at start, in order, for as long as
// inRange returns true. Deletes are split across several transactions, so
// there are no guarantees which keys have been deleted on error.
func (t *Store) deleteFrom(start []byte, inRange func(key []byte) bool) error {
	more := true
	var err error
	for more && err == nil {
		more = false
		err = t.db.Update(func(txn *badger.Txn) error {
			iter := txn.NewIterator(badger.IteratorOptions{})
			defer iter.Close()
			iter.Seek(start)
			for i := 0; iter.Valid() && i < MaxDeleteTransactionSize; i++ {
				if !inRange(iter.Item().Key()) {
					break
				}
				// Txn.Delete holds onto the key slice, so we have to make a copy
				// before passing. Sigh!
				err := txn.Delete(iter.Item().KeyCopy(nil))
				if err == badger.ErrTxnTooBig {
					break
				} else if err != nil {
					return err
				}
				more = true
				iter.Next()
			}
			return nil
		})
		if more {
			// The GC relies on scheduling points (channel send/receive, futex
			// blocks, go, etc) to stop the world in order to start a GC. For an
			// uncontended database, Badger doesn't do any of these, but it does
			// allocate a lot of memory. Gosched lets any pending STW run.
			runtime.Gosched()
		}
	}
	return err
}

// DeleteRange deletes the range of keys [start, end). The range is open and
// the end key is not deleted. Returns nil if all keys in the range are
// deleted. There are no guarantees which keys have been deleted on error.
func (t *Store) DeleteRange(start, end string) error {
	endKey := []byte(end)
	return t.deleteFrom([]byte(start), func(key []byte) bool {
		return bytes.Compare(key, endKey) < 0
	})
}

// DeleteTree deletes every key starting with directory.
func (t *Store) DeleteTree(directory string) error {
	prefix := []byte(directory)
	return t.deleteFrom(prefix, func(key []byte) bool {
		return bytes.HasPrefix(key, prefix)
	})
}

func (t *Store) AtomicPut(key string, value []byte, previous *store.KVPair, options *store.WriteOptions) (bool, *store.KVPair, error) {
	bKey := []byte(key)

	err := t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(bKey)
		if err == badger.ErrKeyNotFound {
			if previous != nil {
				return store.ErrKeyNotFound
			}
		} else if err != nil {
			return err
		} else if previous == nil {
			return store.ErrKeyExists
		}

		if previous != nil {
			err = item.Value(func(oldVal []byte) error {
				if !bytes.Equal(previous.Value, oldVal) {
					return store.ErrKeyModified
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		return txn.Set(bKey, value)
	})

	if err != nil {
		return false, nil, err
	}

	updated := &store.KVPair{
		Key:   key,
		Value: value,
	}
	return true, updated, nil
}

func (t *Store) AtomicDelete(key string, previous *store.KVPair) (bool, error) {
	if previous == nil {
		return false, store.ErrPreviousNotSpecified
	}

	bKey := []byte(key)
	err := t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(bKey)
		if err == badger.ErrKeyNotFound {
			return store.ErrKeyNotFound
		} else if err != nil {
			return err
		}

		err = item.Value(func(oldVal []byte) error {
			if !bytes.Equal(previous.Value, oldVal) {
				return store.ErrKeyModified
			}
			return nil
		})
		if err != nil {
			return err
		}

		return txn.Delete(bKey)
	})

	return err == nil, err
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
