// Package pagestore models the host database's paged, write-ahead-logged
// block store, with buffer pinning and page-level locking. Everything
// else in this module treats a PageStore as the database host; this
// package supplies two concrete backends so the rest of the module has
// something to run against.
package pagestore

import (
	"fmt"

	"github.com/annidx/annidx/pkg/annerr"
)

// PageID identifies a page within a single index's page space. Both
// backends hand out ids from 0 upward; no id is reserved.
type PageID uint32

// PinMode mirrors the host's shared/exclusive page locking.
type PinMode int

const (
	PinShared PinMode = iota
	PinExclusive
)

// Page is a pinned, lockable block of bytes. Callers must call Unpin when
// done; an index stream must never return with a page still pinned.
type Page struct {
	ID   PageID
	Data []byte
	mode PinMode
	back *storeHandle
}

// Unpin releases the page lock/pin acquired by PageStore.Pin.
func (p *Page) Unpin() {
	if p.back != nil {
		p.back.unpin(p.ID, p.mode)
	}
}

// PageStore is the contract every index engine in this module builds
// against: allocate fixed-size pages, pin/unpin them under shared or
// exclusive mode, and write them back. Two implementations satisfy it:
// Arena (in-memory, default) and Badger (disk-backed, used once the
// configured maintenance-memory budget is exceeded).
type PageStore interface {
	// Allocate reserves a new page and returns its id. The page is zeroed.
	Allocate() (PageID, error)

	// Pin locks page id under mode and returns its current contents.
	// The returned Page must be Unpinned.
	Pin(id PageID, mode PinMode) (*Page, error)

	// Write persists data for page id and releases any WAL record the
	// host would otherwise require to make the write durable.
	Write(id PageID, data []byte) error

	// PageCount returns the number of pages allocated so far.
	PageCount() int

	// Close releases any resources (file handles, arena memory) held by
	// the store.
	Close() error
}

// storeHandle is the minimal callback surface Page.Unpin needs; both
// backends implement it without exposing their full type through Page.
type storeHandle struct {
	unpinFn func(PageID, PinMode)
}

func (h *storeHandle) unpin(id PageID, mode PinMode) {
	if h != nil && h.unpinFn != nil {
		h.unpinFn(id, mode)
	}
}

// ErrPageNotFound is returned by Pin for an id that was never allocated.
var ErrPageNotFound = fmt.Errorf("%w: page not found", annerr.ErrBadInput)
