package pagestore

import (
	"fmt"
	"sync"

	"github.com/annidx/annidx/pkg/annerr"
)

// PageSize is the fixed page size used by Arena and, notionally, by the
// host's real block store.
const PageSize = 8192

// Arena is the in-memory PageStore used during bulk build: the build-phase
// graph is an arena of elements indexed by position. It is bounded by a
// byte budget standing in for the host's maintenance-memory setting; once
// the budget is exhausted, Allocate returns annerr.ErrResource so the
// caller can fall back to a disk-backed store.
type Arena struct {
	mu      sync.RWMutex
	pages   [][]byte
	locks   map[PageID]int // >0 shared count, -1 exclusive
	budget  int64          // remaining byte budget; <0 means unbounded
	handle  *storeHandle
}

// NewArena creates an Arena with the given byte budget. A non-positive
// budget means unbounded (used in tests and by callers that manage their
// own memory accounting upstream).
func NewArena(budgetBytes int64) *Arena {
	if budgetBytes <= 0 {
		budgetBytes = -1
	}
	a := &Arena{
		locks:  make(map[PageID]int),
		budget: budgetBytes,
	}
	a.handle = &storeHandle{unpinFn: a.unpin}
	return a
}

func (a *Arena) Allocate() (PageID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budget >= 0 && a.budget < PageSize {
		return 0, fmt.Errorf("%w: arena budget exhausted after %d pages", annerr.ErrResource, len(a.pages))
	}
	if a.budget >= 0 {
		a.budget -= PageSize
	}

	id := PageID(len(a.pages))
	a.pages = append(a.pages, make([]byte, PageSize))
	return id, nil
}

func (a *Arena) Pin(id PageID, mode PinMode) (*Page, error) {
	a.mu.Lock()
	if int(id) >= len(a.pages) {
		a.mu.Unlock()
		return nil, ErrPageNotFound
	}
	cur := a.locks[id]
	if mode == PinExclusive {
		if cur != 0 {
			a.mu.Unlock()
			return nil, fmt.Errorf("%w: page %d already locked", annerr.ErrResource, id)
		}
		a.locks[id] = -1
	} else {
		if cur < 0 {
			a.mu.Unlock()
			return nil, fmt.Errorf("%w: page %d exclusively locked", annerr.ErrResource, id)
		}
		a.locks[id] = cur + 1
	}
	data := a.pages[id]
	a.mu.Unlock()

	return &Page{ID: id, Data: data, mode: mode, back: a.handle}, nil
}

func (a *Arena) unpin(id PageID, mode PinMode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if mode == PinExclusive {
		a.locks[id] = 0
	} else if a.locks[id] > 0 {
		a.locks[id]--
	}
}

func (a *Arena) Write(id PageID, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(id) >= len(a.pages) {
		return ErrPageNotFound
	}
	if len(data) > PageSize {
		return fmt.Errorf("%w: page payload %d exceeds page size %d", annerr.ErrBadInput, len(data), PageSize)
	}
	copy(a.pages[id], data)
	return nil
}

func (a *Arena) PageCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pages)
}

func (a *Arena) Close() error { return nil }

// OutstandingPins reports the number of pages currently pinned in any
// mode, used by cancellation tests to assert full pin release after a
// build is interrupted mid-flight.
func (a *Arena) OutstandingPins() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, v := range a.locks {
		if v != 0 {
			n++
		}
	}
	return n
}
