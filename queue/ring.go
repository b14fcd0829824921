// Package queue provides the bounded lock-free ring buffer that carries
// normalized ticks from feed producers to the engine thread.
package queue

import (
	"errors"
	"sync/atomic"

	"hft-engine-go/market"
)

// DefaultCapacity is the ring size used when the config does not override it.
const DefaultCapacity = 1 << 20

var ErrCapacityNotPowerOfTwo = errors.New("queue capacity must be a power of two")

// Item is one (symbol, tick) pair flowing through the ring.
type Item struct {
	Symbol string
	Tick   market.Tick
}

// slot sequence values follow the Vyukov bounded-queue scheme: a slot is
// writable when seq == producer position and readable when seq == position+1.
type slot struct {
	seq  atomic.Uint64
	item Item
}

// Ring is a bounded multi-producer queue drained by a single consumer.
// Push and TryPop never block and never take a lock; a full ring rejects
// the push and the caller counts the drop, trading completeness for freshness.
type Ring struct {
	mask  uint64
	slots []slot

	// Producer and consumer cursors live on separate cache lines so the
	// pinned consumer core does not ping-pong the producers' line.
	_    [64]byte
	tail atomic.Uint64
	_    [56]byte
	head atomic.Uint64
	_    [56]byte
}

// NewRing allocates a ring with the given capacity, which must be a power of
// two so index wrapping reduces to a mask.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity&(capacity-1) != 0 {
		return nil, ErrCapacityNotPowerOfTwo
	}
	r := &Ring{
		mask:  uint64(capacity) - 1,
		slots: make([]slot, capacity),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r, nil
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// Len returns an approximate number of buffered items.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Push enqueues an item without blocking. It returns false when the ring is
// full; the item is dropped and the producer moves on.
func (r *Ring) Push(it Item) bool {
	pos := r.tail.Load()
	for {
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				s.item = it
				s.seq.Store(pos + 1)
				return true
			}
			pos = r.tail.Load()
		case diff < 0:
			return false
		default:
			pos = r.tail.Load()
		}
	}
}

// TryPop dequeues the oldest item without blocking. It returns false when the
// ring is empty.
func (r *Ring) TryPop() (Item, bool) {
	pos := r.head.Load()
	for {
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				it := s.item
				s.item = Item{} // release the symbol string
				s.seq.Store(pos + r.mask + 1)
				return it, true
			}
			pos = r.head.Load()
		case diff < 0:
			return Item{}, false
		default:
			pos = r.head.Load()
		}
	}
}
