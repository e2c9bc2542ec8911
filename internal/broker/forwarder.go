package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/echoesonmars/tabys-back/internal/eventengine"
	"github.com/echoesonmars/tabys-back/internal/eventengine/event"
	"github.com/echoesonmars/tabys-back/internal/obs"
)

// subscriberName is the name of this event handler.
const subscriberName event.SubscriberName = "handler_event.broker"

type HandlerEventsConfig struct {
	InternalSrvWG  *sync.WaitGroup
	EventEngine    eventengine.Subscriber
	Publisher      Publisher
	AddressChSize  uint16
	PublishTimeout time.Duration
}

type handlerEvent struct {
	*HandlerEventsConfig
	addressCh chan any
}

// NewEventHandler subscribes to the domain events that leave the process and
// starts forwarding them. It stops when the event engine closes its channel.
func NewEventHandler(cfg *HandlerEventsConfig) (*handlerEvent, error) {
	if cfg.InternalSrvWG == nil || cfg.EventEngine == nil || cfg.Publisher == nil {
		return nil, errors.New("either 'EventEngine', 'InternalSrvWG' or 'Publisher' is nil in " + string(subscriberName))
	}

	if cfg.AddressChSize == 0 {
		cfg.AddressChSize = 32
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	he := &handlerEvent{
		HandlerEventsConfig: cfg,
		addressCh:           make(chan any, cfg.AddressChSize),
	}

	subscribeToEventNames := [...]event.EventName{
		event.OrderPlacedEventName,
		event.InventoryLowStockEventName,
	}

	for _, name := range subscribeToEventNames {
		err := he.EventEngine.Subscribe(
			name,
			&event.Subscriber{
				Name:      subscriberName,
				AddressCh: he.addressCh,
			},
		)
		if err != nil {
			return nil, err
		}
	}

	he.InternalSrvWG.Add(1)
	go he.listen()

	return he, nil
}

func (h *handlerEvent) listen() {
	defer h.InternalSrvWG.Done()

	obs.Logger.Info("event handler listening", "subscriber", subscriberName)

	for newEvent := range h.addressCh {
		switch ne := newEvent.(type) {
		case *event.OrderPlacedEvent:
			h.forward(string(ne.GetEventName()), ne)

		case *event.InventoryLowStockEvent:
			h.forward(string(ne.GetEventName()), ne)

		default:
			obs.Logger.Warn("unknown_event_type", "subscriber", subscriberName, "type", fmt.Sprintf("%T", ne))
		}
	}

	obs.Logger.Info("event handler shutting down", "subscriber", subscriberName)
}

func (h *handlerEvent) forward(routingKey string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), h.PublishTimeout)
	defer cancel()

	if err := h.Publisher.Publish(ctx, routingKey, payload); err != nil {
		obs.Logger.Error("event_forward_failed", "routing_key", routingKey, "error", err)
	}
}
