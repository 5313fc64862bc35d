package pagestore

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// Badger is the disk-backed PageStore: each page is one key in a Badger
// database, keyed by a fixed-width big-endian PageID. Badger's own
// write-ahead log gives each page write the durability the host
// database would otherwise have to guarantee itself — this store stands
// in as that host for the standalone build/test environment this module
// runs in.
//
// Used by HNSW's build-memory discipline once the Arena budget is
// exhausted. IVFFlat keeps its lists in memory and writes nothing to a
// page store.
type Badger struct {
	db      *badger.DB
	mu      sync.RWMutex
	locks   map[PageID]int
	nextID  uint32
	handle  *storeHandle
	closed  bool
}

// BadgerOptions configures the disk-backed store.
type BadgerOptions struct {
	// DataDir is where Badger keeps its on-disk files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs Badger in memory-only mode (used by tests that want
	// the Badger code path without touching disk).
	InMemory bool

	// SyncWrites forces fsync after each page write. Slower, matches the
	// host's synchronous-commit WAL mode.
	SyncWrites bool
}

// Open creates or opens a Badger-backed page store.
func Open(opts BadgerOptions) (*Badger, error) {
	bopts := badger.DefaultOptions(opts.DataDir)
	bopts = bopts.WithInMemory(opts.InMemory)
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("pagestore: opening badger store: %w", err)
	}

	b := &Badger{db: db, locks: make(map[PageID]int)}
	b.handle = &storeHandle{unpinFn: b.unpin}

	count, err := b.countExistingPages()
	if err != nil {
		db.Close()
		return nil, err
	}
	b.nextID = uint32(count)
	return b, nil
}

func pageKey(id PageID) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(id))
	return key
}

func (b *Badger) countExistingPages() (int, error) {
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (b *Badger) Allocate() (PageID, error) {
	id := PageID(atomic.AddUint32(&b.nextID, 1) - 1)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(id), make([]byte, PageSize))
	})
	if err != nil {
		return 0, fmt.Errorf("pagestore: allocating page: %w", err)
	}
	return id, nil
}

func (b *Badger) Pin(id PageID, mode PinMode) (*Page, error) {
	b.mu.Lock()
	cur := b.locks[id]
	if mode == PinExclusive && cur != 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("pagestore: page %d already locked", id)
	}
	if mode == PinExclusive {
		b.locks[id] = -1
	} else {
		if cur < 0 {
			b.mu.Unlock()
			return nil, fmt.Errorf("pagestore: page %d exclusively locked", id)
		}
		b.locks[id] = cur + 1
	}
	b.mu.Unlock()

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrPageNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		b.unpin(id, mode)
		return nil, err
	}

	return &Page{ID: id, Data: data, mode: mode, back: b.handle}, nil
}

func (b *Badger) unpin(id PageID, mode PinMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mode == PinExclusive {
		b.locks[id] = 0
	} else if b.locks[id] > 0 {
		b.locks[id]--
	}
}

func (b *Badger) Write(id PageID, data []byte) error {
	if len(data) > PageSize {
		return fmt.Errorf("pagestore: page payload %d exceeds page size %d", len(data), PageSize)
	}
	padded := make([]byte, PageSize)
	copy(padded, data)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(id), padded)
	})
}

func (b *Badger) PageCount() int {
	return int(atomic.LoadUint32(&b.nextID))
}

func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
