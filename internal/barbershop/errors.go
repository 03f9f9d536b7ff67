package barbershop

import "errors"

// ErrInvalidCapacity is returned by constructors when the number of
// waiting seats is not positive.
var ErrInvalidCapacity = errors.New("barbershop: capacity must be positive")

// ErrNoSeatReserved is returned by Enqueue when the caller did not hold a
// seat obtained from TryReserveSeat.  It means the admission protocol was
// skipped.
var ErrNoSeatReserved = errors.New("barbershop: enqueue without a reserved seat")

// ErrEmptyQueue is returned by Dequeue when the waiting room is empty.
// The barber only dequeues after a work signal, so seeing it means the
// signal and the queue went out of sync.
var ErrEmptyQueue = errors.New("barbershop: dequeue from an empty waiting room")

// ErrAlreadyRunning is returned by SpawnConsumerLoop on a second call.
var ErrAlreadyRunning = errors.New("barbershop: barber loop already started")
