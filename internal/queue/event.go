// Package queue defines the shop event payload exchanged over the message
// broker and the consumer that keeps a log of it.
package queue

import (
    "fmt"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/sleeping-barber/internal/model"
)

// EventsQueueName is the durable queue shop events are published to.
const EventsQueueName = "barbershop.events"

// ShopEventMessage is the JSON body of one published shop event.  It
// carries enough for downstream consumers to log or chart the shop
// without asking the service for its state.
type ShopEventMessage struct {
    ID         string          `json:"id"`
    Kind       model.EventKind `json:"kind"`
    ClientID   uint64          `json:"client_id,omitempty"`
    Waiting    int             `json:"waiting"`
    DurationMS int64           `json:"duration_ms,omitempty"`
    Message    string          `json:"message"`
    At         string          `json:"at"`
}

// NewShopEventMessage converts a shop event into its wire form with a
// fresh message id.
func NewShopEventMessage(ev model.ShopEvent) ShopEventMessage {
    return ShopEventMessage{
        ID:         uuid.NewString(),
        Kind:       ev.Kind,
        ClientID:   uint64(ev.ClientID),
        Waiting:    ev.Waiting,
        DurationMS: ev.Duration.Milliseconds(),
        Message:    ev.Message(),
        At:         ev.At.UTC().Format(time.RFC3339Nano),
    }
}

// LogLine renders the message as a single line for logs/barbershop.log.
func (m ShopEventMessage) LogLine() string {
    return fmt.Sprintf("[%s] %s | id=%s | client_id=%d | waiting=%d | duration_ms=%d | %s\n",
        m.At, m.Kind, m.ID, m.ClientID, m.Waiting, m.DurationMS, m.Message)
}
