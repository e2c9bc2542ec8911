package broker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/echoesonmars/tabys-back/internal/eventengine"
	"github.com/echoesonmars/tabys-back/internal/eventengine/event"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestForwarderPublishesDomainEvents(t *testing.T) {
	doneCh := make(chan struct{})
	wg := &sync.WaitGroup{}

	engine, err := eventengine.NewEventEngine(&eventengine.EventEngineConfig{
		DoneCh:        doneCh,
		InternalSrvWG: wg,
	})
	require.NoError(t, err)
	engine.RegisterEvents(event.OrderPlacedEventName, event.InventoryLowStockEventName)

	pub := &recordingPublisher{err: errors.New("broker down")}
	_, err = NewEventHandler(&HandlerEventsConfig{
		InternalSrvWG: wg,
		EventEngine:   engine,
		Publisher:     pub,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Publish(&event.Event{
		Name:    event.OrderPlacedEventName,
		Payload: &event.OrderPlacedEvent{OrderID: 1, Total: decimal.NewFromInt(500)},
	}))
	require.NoError(t, engine.Publish(&event.Event{
		Name:    event.InventoryLowStockEventName,
		Payload: &event.InventoryLowStockEvent{ProductID: 7, Stock: decimal.NewFromInt(1)},
	}))

	close(doneCh)
	wg.Wait()

	assert.ElementsMatch(t, []string{"order.placed", "inventory.low_stock"}, pub.keys)
}

func TestNewEventHandlerRequiresDependencies(t *testing.T) {
	_, err := NewEventHandler(&HandlerEventsConfig{})
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	assert.NoError(t, p.Publish(context.Background(), "order.placed", map[string]int{"orderId": 1}))
	assert.NoError(t, p.Close())
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("AMQP_URL not set, skipping rabbitmq test")
	}

	conn, ch, err := SetupConn(url, 1)
	require.NoError(t, err)

	pub := NewAMQPPublisher(conn, ch)
	defer pub.Close()

	err = pub.Publish(context.Background(), "order.placed", &event.OrderPlacedEvent{OrderID: 1})
	assert.NoError(t, err)
}
