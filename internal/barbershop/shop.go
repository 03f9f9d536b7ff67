package barbershop

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/iliyamo/sleeping-barber/internal/model"
)

// Logger is the subset of the echo/gommon logger the shop writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Observer receives every shop event in the order it happened.  Observe is
// called on the arrival or barber goroutine with the barber lock held; it
// must not block or call back into the Shop.
type Observer interface {
	Observe(ev model.ShopEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev model.ShopEvent)

func (f ObserverFunc) Observe(ev model.ShopEvent) { f(ev) }

// Option configures a Shop.
type Option func(*Shop)

// WithLogger sets the logger used for event and lifecycle messages.
func WithLogger(l Logger) Option {
	return func(s *Shop) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver adds an observer.  Observers are called in the order they
// were added.
func WithObserver(o Observer) Option {
	return func(s *Shop) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Shop wires arrivals, the waiting room and the barber together.  It is
// the boundary used by the HTTP handlers and the simulation.
type Shop struct {
	room      *WaitingRoom
	barber    *Barber
	log       Logger
	observers []Observer

	started  atomic.Bool
	done     chan struct{}
	errMu    sync.Mutex
	err      error
	admitted atomic.Uint64
	balked   atomic.Uint64
}

// New builds a shop with capacity waiting seats.  serve performs each
// haircut.
func New(capacity int, serve ServeFunc, opts ...Option) (*Shop, error) {
	room, err := NewWaitingRoom(capacity)
	if err != nil {
		return nil, err
	}
	s := &Shop{room: room, log: nopLogger{}, done: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	s.barber = NewBarber(room, serve, s.emit)
	return s, nil
}

// SpawnConsumerLoop starts the barber in its own goroutine.  It may be
// called once; the loop ends when ctx is done.
func (s *Shop) SpawnConsumerLoop(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.log.Infof("barbershop: opened with %d waiting seats, the barber sleeps", s.room.Capacity())
	go func() {
		defer close(s.done)
		err := s.barber.Run(ctx)
		if err != nil {
			s.log.Errorf("barbershop: barber stopped: %v", err)
		} else {
			s.log.Infof("barbershop: barber stopped")
		}
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
	}()
	return nil
}

// SubmitClientArrival admits the client if a waiting seat is free and
// reports Balked otherwise.  It never blocks waiting for a seat.
func (s *Shop) SubmitClientArrival(id model.ClientID) model.Outcome {
	if !s.room.TryReserveSeat() {
		s.balked.Add(1)
		s.emit(newEvent(model.EventBalked, id, s.room.Len()))
		return model.Balked
	}
	if err := s.barber.admit(id); err != nil {
		// admit only fails when the seat reserved above is missing.
		panic(err)
	}
	s.admitted.Add(1)
	return model.Admitted
}

// Done is closed when the barber loop has returned.
func (s *Shop) Done() <-chan struct{} { return s.done }

// Err returns the error the barber loop stopped with, if any.
func (s *Shop) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Room exposes the waiting room for inspection.
func (s *Shop) Room() *WaitingRoom { return s.room }

// Snapshot returns the current state of the shop.
func (s *Shop) Snapshot() model.ShopSnapshot {
	state, current := s.barber.State()
	running := s.started.Load()
	select {
	case <-s.done:
		running = false
	default:
	}
	return model.ShopSnapshot{
		Capacity:      s.room.Capacity(),
		Waiting:       s.room.Waiting(),
		FreeSeats:     s.room.FreeSeats(),
		BarberState:   state,
		CurrentClient: current,
		Running:       running,
		Admitted:      s.admitted.Load(),
		Balked:        s.balked.Load(),
		Served:        s.barber.Served(),
	}
}

func (s *Shop) emit(ev model.ShopEvent) {
	s.log.Infof("barbershop: %s", ev.Message())
	for _, o := range s.observers {
		o.Observe(ev)
	}
}
