// Package barbershop implements the sleeping barber protocol: a bounded
// FIFO waiting room fed by balking clients and drained by a single barber
// that sleeps on a work signal while the room is empty.
package barbershop

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/iliyamo/sleeping-barber/internal/model"
)

// WaitingRoom is a fixed-capacity FIFO of clients.
//
// Two signals guard it.  seats counts free waiting seats and is only ever
// tried, never waited on, so arrivals balk instead of queueing for a seat.
// work holds one token per enqueued client that the barber has not yet
// picked up; the barber blocks on it while the room is empty.
//
// The ring has capacity+1 slots so head == tail always means empty.
type WaitingRoom struct {
	mu       sync.Mutex
	slots    []model.ClientID
	head     int
	tail     int
	count    int
	reserved int // seats taken by TryReserveSeat and not yet released by Dequeue

	capacity int
	seats    *semaphore.Weighted
	work     chan struct{}
}

// NewWaitingRoom returns an empty room with the given number of waiting
// seats.  The barber chair is not one of them.
func NewWaitingRoom(capacity int) (*WaitingRoom, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &WaitingRoom{
		slots:    make([]model.ClientID, capacity+1),
		capacity: capacity,
		seats:    semaphore.NewWeighted(int64(capacity)),
		work:     make(chan struct{}, capacity+1),
	}, nil
}

// TryReserveSeat claims one waiting seat without blocking.  It returns
// false when every seat is taken; the caller is expected to leave.
func (r *WaitingRoom) TryReserveSeat() bool {
	if !r.seats.TryAcquire(1) {
		return false
	}
	r.mu.Lock()
	r.reserved++
	r.mu.Unlock()
	return true
}

// Enqueue appends a client that holds a reserved seat and signals the
// barber once.
func (r *WaitingRoom) Enqueue(id model.ClientID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count >= r.reserved {
		return ErrNoSeatReserved
	}
	r.slots[r.tail] = id
	r.tail = (r.tail + 1) % len(r.slots)
	r.count++
	// Pending tokens never exceed count, so this send cannot block.
	r.work <- struct{}{}
	return nil
}

// WaitForWork blocks until a client has been enqueued and consumes its
// signal.  It returns ctx.Err() if ctx is done first.
func (r *WaitingRoom) WaitForWork(ctx context.Context) error {
	select {
	case <-r.work:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the client at the head and gives its seat back.
// Callers must have consumed a signal with WaitForWork first.
func (r *WaitingRoom) Dequeue() (model.ClientID, error) {
	r.mu.Lock()
	if r.count == 0 {
		r.mu.Unlock()
		return 0, ErrEmptyQueue
	}
	id := r.slots[r.head]
	r.slots[r.head] = 0
	r.head = (r.head + 1) % len(r.slots)
	r.count--
	r.reserved--
	r.mu.Unlock()

	r.seats.Release(1)
	return id, nil
}

// IsEmpty reports whether no client is waiting.
func (r *WaitingRoom) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count == 0
}

// Len returns the number of waiting clients.
func (r *WaitingRoom) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Capacity returns the number of waiting seats.
func (r *WaitingRoom) Capacity() int { return r.capacity }

// FreeSeats returns the number of seats a new arrival could still claim.
func (r *WaitingRoom) FreeSeats() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity - r.reserved
}

// Pending returns the number of work signals not yet consumed by the
// barber.  When no operation is in flight it equals Len.
func (r *WaitingRoom) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.work)
}

// Waiting returns the waiting clients in service order.
func (r *WaitingRoom) Waiting() []model.ClientID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ClientID, 0, r.count)
	for i, pos := 0, r.head; i < r.count; i, pos = i+1, (pos+1)%len(r.slots) {
		out = append(out, r.slots[pos])
	}
	return out
}
