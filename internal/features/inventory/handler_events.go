package inventory

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
const subscriberName event.SubscriberName = "handler_event.inventory"

type servicer interface {
	lowStock(ctx context.Context, ids []int64) ([]StockLevel, error)
}

type HandlerEventsConfig struct {
	InternalSrvWG *sync.WaitGroup
	EventEngine   eventengine.SubscribeRegisterPublisher
	Service       servicer
	AddressChSize uint16
	Threshold     int64
	QueryTimeout  time.Duration
}

type handlerEvent struct {
	*HandlerEventsConfig
	addressCh chan any
}

func NewEventHandler(cfg *HandlerEventsConfig) (*handlerEvent, error) {
	if cfg.InternalSrvWG == nil || cfg.EventEngine == nil || cfg.Service == nil {
		return nil, fmt.Errorf(
			"either 'EventEngine', 'InternalSrvWG' or 'Service' is nil in '%s'",
			subscriberName,
		)
	}

	if cfg.AddressChSize == 0 {
		cfg.AddressChSize = 32
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 5 * time.Second
	}

	he := &handlerEvent{
		HandlerEventsConfig: cfg,
		addressCh:           make(chan any, cfg.AddressChSize),
	}

	// Register the events this handler will emit.
	he.registerServiceEvents()

	if err := he.addSubscriptions(); err != nil {
		return nil, err
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
			h.orderPlacedEventHandler(ne)

		default:
			obs.Logger.Warn("unknown_event_type", "subscriber", subscriberName, "type", fmt.Sprintf("%T", ne))
		}
	}

	obs.Logger.Info("event handler shutting down", "subscriber", subscriberName)
}

func (h *handlerEvent) orderPlacedEventHandler(newEvent *event.OrderPlacedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), h.QueryTimeout)
	defer cancel()

	low, err := h.Service.lowStock(ctx, newEvent.ProductIDs())
	if err != nil {
		obs.Logger.Error("low_stock_check_failed", "order_id", newEvent.OrderID, "error", err)
		return
	}

	for _, l := range low {
		lowEvent := &event.InventoryLowStockEvent{
			ProductID: l.ProductID,
			Name:      l.Name,
			Stock:     l.Stock,
			Threshold: h.Threshold,
		}

		err := h.EventEngine.Publish(event.New(lowEvent))
		if err != nil && !errors.Is(err, eventengine.ErrEngineClosed) {
			obs.Logger.Warn("low_stock_publish_failed", "product_id", l.ProductID, "error", err)
		}
	}
}

// registerServiceEvents registers the events this handler publishes so other
// handlers can subscribe to them.
func (h *handlerEvent) registerServiceEvents() {
	h.EventEngine.RegisterEvents(
		event.InventoryLowStockEventName,
	)
}

func (h *handlerEvent) addSubscriptions() error {
	subscribeToEventNames := [...]event.EventName{
		event.OrderPlacedEventName,
	}

	for _, v := range subscribeToEventNames {
		err := h.EventEngine.Subscribe(
			v,
			&event.Subscriber{
				Name:      subscriberName,
				AddressCh: h.addressCh,
			},
		)
		if err != nil {
			return fmt.Errorf(
				"subscriber '%s' failed to subscribe: %w",
				subscriberName,
				err,
			)
		}
	}

	return nil
}
