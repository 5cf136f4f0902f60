package host

import (
	"sync"
	"time"
)

// EventType identifies a keyspace notification (spec §6.1
// "keyspace-event notification", supplemented per spec §13 since the
// distilled spec only requires the notification hook to exist, not its
// exact event vocabulary).
type EventType string

const (
	EventKeySet     EventType = "key.set"
	EventKeyDeleted EventType = "key.deleted"
	EventPathSet    EventType = "path.set"
	EventPathDel    EventType = "path.del"
)

// Event is a single keyspace notification.
type Event struct {
	ID        string
	Type      EventType
	Key       string
	Path      string
	Timestamp time.Time
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Notifier delivers keyspace events to subscribers (spec §6.1).
type Notifier interface {
	Publish(event *Event)
	Subscribe() Subscriber
	Unsubscribe(sub Subscriber)
}

// Broker is a Notifier implementation: a buffered fan-out from engine
// command handlers to any number of subscribers (DEBUG tooling, a
// future keyspace-event listener in the harness).
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop in a background goroutine.
func (b *Broker) Start() {
	go b.run()
}

// Stop terminates the distribution loop. Publish after Stop is a no-op.
func (b *Broker) Stop() {
	close(b.stopCh)
}

func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
