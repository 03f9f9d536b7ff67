package barbershop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/sleeping-barber/internal/model"
)

// ServeFunc performs the haircut of one client and reports how long it
// took.  The shop does not time services itself.
type ServeFunc func(id model.ClientID) time.Duration

// Barber is the single consumer of a WaitingRoom.
type Barber struct {
	room  *WaitingRoom
	serve ServeFunc
	emit  func(model.ShopEvent)

	mu      sync.Mutex
	state   model.BarberState
	current *model.ClientID

	served atomic.Uint64
}

// NewBarber returns a sleeping barber for room.  emit may be nil; it is
// called with the barber lock held and must not call back into the barber.
func NewBarber(room *WaitingRoom, serve ServeFunc, emit func(model.ShopEvent)) *Barber {
	if emit == nil {
		emit = func(model.ShopEvent) {}
	}
	return &Barber{room: room, serve: serve, emit: emit, state: model.Sleeping}
}

// Run drives the barber until ctx is done or the room breaks its
// invariant.  Every dequeue is preceded by a successful wait on the work
// signal, so sleeping and checking for the next client are the same
// blocking wait.  A service in progress always runs to completion.
func (b *Barber) Run(ctx context.Context) error {
	for {
		if err := b.room.WaitForWork(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		b.mu.Lock()
		id, err := b.room.Dequeue()
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("barber: %w", err)
		}
		b.state = model.Serving
		b.current = &id
		b.emit(newEvent(model.EventServiceStarted, id, b.room.Len()))
		b.mu.Unlock()

		elapsed := b.serve(id)
		b.served.Add(1)
		b.finish(id, elapsed)
	}
}

// finish announces the end of a service and, if nobody is waiting, puts
// the barber to sleep.  Both happen under the barber lock, so an arrival
// can only wake him after he has been announced asleep.
func (b *Barber) finish(id model.ClientID, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
	b.state = model.CheckingQueue
	waiting := b.room.Len()

	done := newEvent(model.EventServiceDone, id, waiting)
	done.Duration = elapsed
	b.emit(done)
	if waiting == 0 {
		b.state = model.Sleeping
		b.emit(newEvent(model.EventBarberSleeping, 0, 0))
	}
}

// admit enqueues an arrival that already holds a seat and announces it.
// The announcement happens under the barber lock so it always precedes
// the service.started event for the same client.
func (b *Barber) admit(id model.ClientID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.room.Enqueue(id); err != nil {
		return err
	}
	kind := model.EventSeated
	if b.state == model.Sleeping {
		b.state = model.CheckingQueue
		kind = model.EventWokeBarber
	}
	b.emit(newEvent(kind, id, b.room.Len()))
	return nil
}

// State returns the barber state and the client in the chair, if any.
func (b *Barber) State() (model.BarberState, *model.ClientID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return b.state, nil
	}
	id := *b.current
	return b.state, &id
}

// Served returns the number of finished services.
func (b *Barber) Served() uint64 { return b.served.Load() }

func newEvent(kind model.EventKind, id model.ClientID, waiting int) model.ShopEvent {
	return model.ShopEvent{Kind: kind, ClientID: id, Waiting: waiting, At: time.Now().UTC()}
}
