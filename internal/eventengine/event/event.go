// Package event holds the domain events passed through the event engine.
package event

type (
	SubscriberName string
	EventName      string
)

// Named is implemented by every event payload.
type Named interface {
	GetEventName() EventName
}

type Event struct {
	Name    EventName
	Payload any
}

// New wraps payload in an Event named after it.
func New(payload Named) *Event {
	return &Event{
		Name:    payload.GetEventName(),
		Payload: payload,
	}
}

type Subscriber struct {
	Name      SubscriberName
	AddressCh chan<- any // where the subscriber receives events
}
