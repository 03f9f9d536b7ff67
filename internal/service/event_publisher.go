// Package service contains background workers that move shop events out
// of the process.  Failures are logged and never reach the barber or the
// arrivals path.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "sync/atomic"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/sleeping-barber/internal/model"
    q "github.com/iliyamo/sleeping-barber/internal/queue"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
    PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
    Close() error
}

type dialFunc func(url string) (amqpChannel, io.Closer, error)

// EventPublisher forwards shop events to the barbershop.events queue.
// Observe only buffers; Run does the network work.  When the buffer is
// full the event is dropped and counted.
type EventPublisher struct {
    url     string
    events  chan model.ShopEvent
    dial    dialFunc
    dropped atomic.Uint64
    sent    atomic.Uint64
}

// NewEventPublisher returns a publisher holding up to buffer events while
// the broker is slow or away.
func NewEventPublisher(url string, buffer int) *EventPublisher {
    if buffer < 1 {
        buffer = 1
    }
    return &EventPublisher{url: url, events: make(chan model.ShopEvent, buffer), dial: dialBroker}
}

// Observe implements barbershop.Observer.
func (p *EventPublisher) Observe(ev model.ShopEvent) {
    select {
    case p.events <- ev:
    default:
        p.dropped.Add(1)
    }
}

// Dropped returns the number of events discarded because the buffer was full.
func (p *EventPublisher) Dropped() uint64 { return p.dropped.Load() }

// Sent returns the number of events the broker accepted.
func (p *EventPublisher) Sent() uint64 { return p.sent.Load() }

// Run publishes buffered events until ctx is done, reconnecting with
// backoff.  An event whose publish fails is retried once on a fresh
// connection and then dropped.
func (p *EventPublisher) Run(ctx context.Context) {
    var (
        ch      amqpChannel
        conn    io.Closer
        backoff = time.Second
    )
    closeConn := func() {
        if ch != nil {
            _ = ch.Close()
        }
        if conn != nil {
            _ = conn.Close()
        }
        ch, conn = nil, nil
    }
    defer closeConn()

    for {
        var ev model.ShopEvent
        select {
        case <-ctx.Done():
            return
        case ev = <-p.events:
        }

        for attempt := 0; attempt < 2; attempt++ {
            if ch == nil {
                var err error
                ch, conn, err = p.dial(p.url)
                if err != nil {
                    log.Warnf("rabbitmq: dial failed: %v; retrying in %s", err, backoff)
                    if !wait(ctx, backoff) {
                        return
                    }
                    if backoff < 30*time.Second {
                        backoff *= 2
                    }
                    continue
                }
                backoff = time.Second
            }
            if err := p.publish(ctx, ch, ev); err != nil {
                log.Warnf("rabbitmq: publish failed: %v", err)
                closeConn()
                continue
            }
            p.sent.Add(1)
            break
        }
    }
}

func (p *EventPublisher) publish(ctx context.Context, ch amqpChannel, ev model.ShopEvent) error {
    msg := q.NewShopEventMessage(ev)
    body, err := json.Marshal(msg)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    return ch.PublishWithContext(ctx,
        "",                // default exchange
        q.EventsQueueName, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            MessageId:    msg.ID,
            Type:         string(msg.Kind),
            Timestamp:    ev.At,
            Body:         body,
        },
    )
}

// dialBroker opens a connection and channel and makes sure the durable
// queue exists.
func dialBroker(url string) (amqpChannel, io.Closer, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, fmt.Errorf("channel open: %w", err)
    }
    if _, err := ch.QueueDeclare(
        q.EventsQueueName, // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, nil, fmt.Errorf("queue declare: %w", err)
    }
    return ch, conn, nil
}

func wait(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-t.C:
        return true
    case <-ctx.Done():
        return false
    }
}
