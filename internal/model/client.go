package model

// ClientID is the arrival sequence number of a client.  It carries no
// other state; the waiting room owns a client only between enqueue and
// dequeue.
type ClientID uint64

// Outcome is the result of a client arrival.
type Outcome string

const (
    Admitted Outcome = "ADMITTED" // a seat was reserved and the client is waiting
    Balked   Outcome = "BALKED"   // all seats were taken and the client left
)
