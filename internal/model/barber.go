package model

// BarberState is the state of the single consumer.
//
//  Sleeping      – blocked waiting for a client.
//  Serving       – cutting the hair of the current client.
//  CheckingQueue – between two services, looking at the waiting room.
type BarberState string

const (
    Sleeping      BarberState = "SLEEPING"
    Serving       BarberState = "SERVING"
    CheckingQueue BarberState = "CHECKING_QUEUE"
)

// ShopSnapshot is a point-in-time view of the shop used by the HTTP API.
// Waiting lists the waiting clients in the order they will be served.
type ShopSnapshot struct {
    Capacity      int         `json:"capacity"`
    Waiting       []ClientID  `json:"waiting"`
    FreeSeats     int         `json:"free_seats"`
    BarberState   BarberState `json:"barber_state"`
    CurrentClient *ClientID   `json:"current_client,omitempty"`
    Running       bool        `json:"running"`
    Admitted      uint64      `json:"admitted"`
    Balked        uint64      `json:"balked"`
    Served        uint64      `json:"served"`
}
