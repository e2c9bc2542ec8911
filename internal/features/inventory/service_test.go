package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

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

type fakeStore struct {
	levels []StockLevel
}

func (f *fakeStore) findLevels(ctx context.Context, ids []int64) ([]StockLevel, error) {
	return f.levels, nil
}

func TestLowStock(t *testing.T) {
	svc := NewService(&fakeStore{levels: []StockLevel{
		{ProductID: 1, Stock: decimal.NewFromInt(5)},
		{ProductID: 2, Stock: decimal.NewFromInt(6)},
		{ProductID: 3, Stock: decimal.Zero},
	}}, 5)

	low, err := svc.lowStock(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)

	var ids []int64
	for _, l := range low {
		ids = append(ids, l.ProductID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestLowStockNoIDs(t *testing.T) {
	low, err := NewService(&fakeStore{}, 5).lowStock(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestOrderPlacedPublishesLowStock(t *testing.T) {
	doneCh := make(chan struct{})
	wg := &sync.WaitGroup{}

	engine, err := eventengine.NewEventEngine(&eventengine.EventEngineConfig{
		DoneCh:        doneCh,
		InternalSrvWG: wg,
	})
	require.NoError(t, err)
	engine.RegisterEvents(event.OrderPlacedEventName)

	_, err = NewEventHandler(&HandlerEventsConfig{
		InternalSrvWG: wg,
		EventEngine:   engine,
		Service: NewService(&fakeStore{levels: []StockLevel{
			{ProductID: 7, Name: "Milk", Stock: decimal.NewFromInt(1)},
		}}, 5),
		Threshold: 5,
	})
	require.NoError(t, err)

	lowCh := make(chan any, 1)
	require.NoError(t, engine.Subscribe(event.InventoryLowStockEventName, &event.Subscriber{
		Name:      "test.low_stock",
		AddressCh: lowCh,
	}))

	require.NoError(t, engine.Publish(&event.Event{
		Name: event.OrderPlacedEventName,
		Payload: &event.OrderPlacedEvent{
			OrderID: 1,
			Lines:   []event.OrderedLine{{ProductID: 7, Quantity: decimal.NewFromInt(4)}},
		},
	}))

	select {
	case got := <-lowCh:
		low, ok := got.(*event.InventoryLowStockEvent)
		require.True(t, ok)
		assert.Equal(t, int64(7), low.ProductID)
		assert.Equal(t, int64(5), low.Threshold)
	case <-time.After(2 * time.Second):
		t.Fatal("no low stock event")
	}

	close(doneCh)
	wg.Wait()
}
