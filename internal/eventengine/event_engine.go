package eventengine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/echoesonmars/tabys-back/internal/eventengine/event"
	"github.com/echoesonmars/tabys-back/internal/obs"
)

var (
	ErrEngineClosed = errors.New("event engine is shut down")
	ErrEngineBusy   = errors.New("event engine queue is full")
)

type Publisher interface {
	Publish(event *event.Event) error
}

type Subscriber interface {
	Subscribe(toEventName event.EventName, subscriber *event.Subscriber) error
}

type RegisterPublisher interface {
	Publisher
	RegisterEvents(eventNames ...event.EventName)
}

type SubscribeRegisterPublisher interface {
	Subscriber
	RegisterPublisher
}

type subscribers struct {
	names      []event.SubscriberName
	addressChs []chan<- any
}

type EventEngineConfig struct {
	DoneCh        <-chan struct{}
	InternalSrvWG *sync.WaitGroup
	QueueSize     int
}

type eventEngine struct {
	*EventEngineConfig
	wg            sync.WaitGroup
	mu            sync.RWMutex
	closed        bool
	eventEngineCh chan *event.Event                // what the engine listens on for published events
	events        map[event.EventName]*subscribers // registered events and their subscribers
}

func NewEventEngine(cfg *EventEngineConfig) (SubscribeRegisterPublisher, error) {
	if cfg == nil {
		return nil, errors.New("event engine config can not be nil")
	}

	if cfg.DoneCh == nil || cfg.InternalSrvWG == nil {
		return nil, errors.New("either DoneCh or InternalSrvWG is nil")
	}

	e := newEventEngine(cfg)

	e.InternalSrvWG.Add(1)
	go e.listen()

	return e, nil
}

func newEventEngine(cfg *EventEngineConfig) *eventEngine {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}

	return &eventEngine{
		EventEngineConfig: cfg,
		events:            make(map[event.EventName]*subscribers, 8),
		eventEngineCh:     make(chan *event.Event, size),
	}
}

func (e *eventEngine) listen() {
	defer e.InternalSrvWG.Done()

	obs.Logger.Info("event engine is listening")

	for {
		select {
		case <-e.DoneCh:
			e.mu.Lock()
			e.closed = true
			close(e.eventEngineCh)
			e.mu.Unlock()

			obs.Logger.Info("event engine is shutting down, draining queue")
			for ev := range e.eventEngineCh {
				e.broadcast(ev)
			}

			e.wg.Wait()
			e.shutdownSubscribersAddressCh()
			return

		case ev := <-e.eventEngineCh:
			e.broadcast(ev)
		}
	}
}

// broadcast hands the payload to every subscriber of the event. Large
// subscriber lists are split in two halves delivered concurrently.
func (e *eventEngine) broadcast(ev *event.Event) {
	e.mu.RLock()
	subs, exists := e.events[ev.Name]
	var names []event.SubscriberName
	var chs []chan<- any
	if exists {
		names = append(names, subs.names...)
		chs = append(chs, subs.addressChs...)
	}
	e.mu.RUnlock()

	if !exists {
		obs.Logger.Warn("event_not_registered", "event", ev.Name)
		return
	}

	const maxPartitionSize = 4
	partitionSize := (len(chs) / 2) + 1

	if partitionSize < maxPartitionSize {
		deliver(ev, names, chs)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		deliver(ev, names[:partitionSize], chs[:partitionSize])
	}()

	deliver(ev, names[partitionSize:], chs[partitionSize:])
}

func deliver(ev *event.Event, names []event.SubscriberName, chs []chan<- any) {
	for i, addressCh := range chs {
		if addressCh == nil {
			obs.Logger.Warn("subscriber_address_nil", "event", ev.Name, "subscriber", names[i])
			continue
		}
		addressCh <- ev.Payload
	}
}

// RegisterEvents adds the events a publisher can publish.
//
// IMPORTANT: Register an event before you try to publish or subscribe to it.
func (e *eventEngine) RegisterEvents(eventNames ...event.EventName) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, eventName := range eventNames {
		if _, exists := e.events[eventName]; exists {
			continue
		}
		e.events[eventName] = &subscribers{}
	}

	obs.Logger.Info("events_registered", "events", eventNames)
}

func (e *eventEngine) Subscribe(toEventName event.EventName, newSubscriber *event.Subscriber) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs, ok := e.events[toEventName]
	if !ok {
		return fmt.Errorf(
			"event '%v' not found. the publishing service must call RegisterEvents before anyone subscribes",
			toEventName,
		)
	}

	subs.names = append(subs.names, newSubscriber.Name)
	subs.addressChs = append(subs.addressChs, newSubscriber.AddressCh)

	return nil
}

// Publish queues the event without blocking. Events are advisory: when the
// queue is full or the engine has shut down the event is dropped and the
// caller gets an error to log.
func (e *eventEngine) Publish(ev *event.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrEngineClosed
	}

	if _, exists := e.events[ev.Name]; !exists {
		return fmt.Errorf(
			"event %v not found. the publishing service must call RegisterEvents first",
			ev.Name,
		)
	}

	select {
	case e.eventEngineCh <- ev:
		return nil
	default:
		return fmt.Errorf("%w: dropping %v", ErrEngineBusy, ev.Name)
	}
}

func (e *eventEngine) shutdownSubscribersAddressCh() {
	e.mu.Lock()
	defer e.mu.Unlock()

	closed := make(map[chan<- any]bool)
	for _, subs := range e.events {
		for _, addressCh := range subs.addressChs {
			if addressCh == nil || closed[addressCh] {
				continue
			}
			closed[addressCh] = true
			close(addressCh)
		}
	}

	obs.Logger.Info("event engine subscribers closed")
}
