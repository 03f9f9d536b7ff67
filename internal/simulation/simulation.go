// Package simulation provides the random collaborators of the shop: how
// long a haircut takes and when the next client walks in.
package simulation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/sleeping-barber/internal/barbershop"
	"github.com/iliyamo/sleeping-barber/internal/model"
	"github.com/iliyamo/sleeping-barber/internal/repository"
)

// RandomDuration returns a generator of durations uniformly distributed
// in [min, max].
func RandomDuration(min, max time.Duration) func() time.Duration {
	if max <= min {
		return func() time.Duration { return min }
	}
	span := int64(max - min)
	return func() time.Duration { return min + time.Duration(rand.Int63n(span+1)) }
}

// Haircut returns a ServeFunc that takes next() to cut hair.
func Haircut(next func() time.Duration) barbershop.ServeFunc {
	return func(model.ClientID) time.Duration {
		d := next()
		start := time.Now()
		time.Sleep(d)
		return time.Since(start)
	}
}

// Submitter is the arrival side of the shop.
type Submitter interface {
	SubmitClientArrival(id model.ClientID) model.Outcome
}

// Arrivals sends a new client to the shop after every gap.  Each client
// arrives on its own goroutine, so arrivals and the barber overlap freely.
type Arrivals struct {
	Shop Submitter
	Seq  repository.Sequence
	Gap  func() time.Duration
}

// Run generates arrivals until ctx is done and waits for in-flight
// clients before returning.
func (a *Arrivals) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		t := time.NewTimer(a.Gap())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		id, err := a.Seq.Next(ctx)
		if err != nil {
			log.Warnf("simulation: no client id: %v", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Shop.SubmitClientArrival(id)
		}()
	}
}
