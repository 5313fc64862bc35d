package pagestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocatePinWrite(t *testing.T) {
	a := NewArena(0)
	id, err := a.Allocate()
	require.NoError(t, err)

	require.NoError(t, a.Write(id, []byte("hello")))

	p, err := a.Pin(id, PinShared)
	require.NoError(t, err)
	require.Equal(t, "hello", string(p.Data[:5]))
	p.Unpin()

	require.Equal(t, 0, a.OutstandingPins())
}

func TestArenaBudgetExhaustion(t *testing.T) {
	a := NewArena(PageSize) // room for exactly one page
	_, err := a.Allocate()
	require.NoError(t, err)

	_, err = a.Allocate()
	require.Error(t, err)
}

func TestArenaExclusivePinExcludesOthers(t *testing.T) {
	a := NewArena(0)
	id, err := a.Allocate()
	require.NoError(t, err)

	p, err := a.Pin(id, PinExclusive)
	require.NoError(t, err)

	_, err = a.Pin(id, PinShared)
	require.Error(t, err)

	p.Unpin()

	p2, err := a.Pin(id, PinShared)
	require.NoError(t, err)
	p2.Unpin()
}

func TestBadgerInMemoryAllocatePinWrite(t *testing.T) {
	b, err := Open(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer b.Close()

	id, err := b.Allocate()
	require.NoError(t, err)
	require.NoError(t, b.Write(id, []byte("world")))

	p, err := b.Pin(id, PinShared)
	require.NoError(t, err)
	require.Equal(t, "world", string(p.Data[:5]))
	p.Unpin()
}
