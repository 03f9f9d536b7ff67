package model

import (
    "fmt"
    "time"
)

// EventKind names something that happened in the shop.
type EventKind string

const (
    EventWokeBarber     EventKind = "client.woke_barber"    // admitted while the barber slept
    EventSeated         EventKind = "client.seated"         // admitted into a free waiting seat
    EventBalked         EventKind = "client.balked"         // turned away, all seats taken
    EventServiceStarted EventKind = "service.started"       // client moved to the barber chair
    EventServiceDone    EventKind = "service.finished"      // haircut done, client left
    EventBarberSleeping EventKind = "barber.sleeping"       // room empty after a service
)

// ShopEvent is emitted by the shop to its observers.  Waiting is the
// number of clients in the waiting room right after the event.
// Duration is only set for EventServiceDone.
type ShopEvent struct {
    Kind     EventKind     `json:"kind"`
    ClientID ClientID      `json:"client_id,omitempty"`
    Waiting  int           `json:"waiting"`
    Duration time.Duration `json:"duration_ns,omitempty"`
    At       time.Time     `json:"at"`
}

// Message renders the event as a one-line, human friendly sentence.
func (e ShopEvent) Message() string {
    switch e.Kind {
    case EventWokeBarber:
        return fmt.Sprintf("client %d wakes the barber and sits in the barber chair", e.ClientID)
    case EventSeated:
        return fmt.Sprintf("client %d sits in one of the free waiting seats", e.ClientID)
    case EventBalked:
        return fmt.Sprintf("all seats were taken, client %d left", e.ClientID)
    case EventServiceStarted:
        return fmt.Sprintf("client %d sits in the barber chair", e.ClientID)
    case EventServiceDone:
        return fmt.Sprintf("barber finished the haircut of client %d after %s, who leaves", e.ClientID, e.Duration)
    case EventBarberSleeping:
        return "no clients waiting, the barber goes to sleep"
    }
    return string(e.Kind)
}
