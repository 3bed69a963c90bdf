package feed

import (
	"log"

	"github.com/coreybb/versefeed/models"
)

type EventKind string

const (
	// EventReset tells consumers to drop every card they hold.
	EventReset EventKind = "reset"
	// EventCard carries one newly attached card.
	EventCard EventKind = "card"
)

// Event is one entry of the controller's outbound queue.
type Event struct {
	Kind EventKind            `json:"type"`
	Card *models.RenderedCard `json:"card,omitempty"`
}

// Subscribe registers a consumer of feed events. The returned function
// unregisters it and closes the channel. A consumer that falls more than a
// buffer behind loses events instead of stalling the controller.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribeLocked()
}

// SubscribeWithSnapshot is Subscribe plus the cards attached so far, taken
// atomically so no card is both in the snapshot and on the channel.
func (c *Controller) SubscribeWithSnapshot() ([]models.RenderedCard, <-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cards := make([]models.RenderedCard, len(c.cards))
	copy(cards, c.cards)
	ch, cancel := c.subscribeLocked()
	return cards, ch, cancel
}

// Subscribers reports how many consumers are registered.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Controller) subscribeLocked() (<-chan Event, func()) {
	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, subscriberBuffer)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) publishLocked(ev Event) {
	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("WARN (Feed): Subscriber %d is full, dropping %s event", id, ev.Kind)
		}
	}
}
