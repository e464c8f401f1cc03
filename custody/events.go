package custody

import (
	"math/big"
	"time"

	"github.com/erc7824/nitrolite-go/channel"
)

type EventType int

const (
	EventTypeCreated      EventType = iota
	EventTypeJoined                 // a participant funded its share
	EventTypeOpened                 // all participants joined, channel is active
	EventTypeCheckpointed           // a fresher state was recorded
	EventTypeChallenged             // a dispute window was opened or reset
	EventTypeResized                // locked funding was adjusted
	EventTypeClosed                 // terminal, funds released
)

func (t EventType) String() string {
	switch t {
	case EventTypeCreated:
		return "Created"
	case EventTypeJoined:
		return "Joined"
	case EventTypeOpened:
		return "Opened"
	case EventTypeCheckpointed:
		return "Checkpointed"
	case EventTypeChallenged:
		return "Challenged"
	case EventTypeResized:
		return "Resized"
	case EventTypeClosed:
		return "Closed"
	default:
		return "Invalid"
	}
}

// Event notifies subscribers of a lifecycle transition.
type Event struct {
	Type    EventType
	ID      channel.ID
	Version uint64

	// Index is the joining participant. Joined events only.
	Index int
	// Expiration is the end of the dispute window. Challenged events only.
	Expiration time.Time
	// Deltas is the signed funding change per participant. Resized events
	// only.
	Deltas []*big.Int
}

const eventBufferSize = 64

// Subscribe registers a new event subscriber. Events are delivered in
// operation order; events emitted while a subscriber's buffer is full are
// dropped for that subscriber.
func (c *Custody) Subscribe() <-chan Event {
	ch := make(chan Event, eventBufferSize)
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Custody) emit(e Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, sub := range c.subs {
		select {
		case sub <- e:
		default:
			// drop rather than block the lifecycle operation
		}
	}
}
