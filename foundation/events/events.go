// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ViewerPrefix marks the events that are forwarded to subscribers. Every
// other event only goes to the log.
const ViewerPrefix = "viewer:"

// messageBuffer is the number of events held for a subscriber that is not
// ready to receive. A message is dropped once the buffer is full.
const messageBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu   sync.RWMutex
	m    map[string]chan string
	shut bool
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Subscribe. Later calls to Subscribe return a closed channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
	evt.shut = true
}

// Subscribe registers a new subscriber and returns its id with the channel
// that receives the events.
func (evt *Events) Subscribe() (string, <-chan string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan string, messageBuffer)

	if evt.shut {
		close(ch)
		return id, ch
	}

	evt.m[id] = ch
	return id, ch
}

// Unsubscribe closes and removes the channel that was provided by
// the call to Subscribe.
func (evt *Events) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel and returns the number
// of subscribers that missed it. Send will not block waiting for a receiver
// on any given channel.
func (evt *Events) Send(s string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var dropped int
	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
			dropped++
		}
	}

	return dropped
}

// Handler returns an event handler that formats the event and sends the
// ones marked with ViewerPrefix. The log function receives every event.
func (evt *Events) Handler(log func(msg string)) func(v string, args ...any) {
	return func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)

		if log != nil {
			log(s)
		}

		if strings.HasPrefix(s, ViewerPrefix) {
			evt.Send(s)
		}
	}
}
