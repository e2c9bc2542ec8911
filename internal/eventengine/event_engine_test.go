package eventengine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/echoesonmars/tabys-back/internal/eventengine/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testEvent event.EventName = "test.event.engine.event.name"

func startEngine(t *testing.T, queueSize int) (SubscribeRegisterPublisher, chan struct{}, *sync.WaitGroup) {
	t.Helper()

	doneCh := make(chan struct{})
	wg := &sync.WaitGroup{}

	e, err := NewEventEngine(&EventEngineConfig{
		DoneCh:        doneCh,
		InternalSrvWG: wg,
		QueueSize:     queueSize,
	})
	require.NoError(t, err)

	return e, doneCh, wg
}

func collect(wg *sync.WaitGroup, ch <-chan any) *[]any {
	got := &[]any{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range ch {
			*got = append(*got, p)
		}
	}()
	return got
}

func Test_eventEngineFansOutToEverySubscriber(t *testing.T) {
	e, doneCh, wg := startEngine(t, 16)
	e.RegisterEvents(testEvent)

	ch1 := make(chan any, 2)
	ch2 := make(chan any, 2)
	require.NoError(t, e.Subscribe(testEvent, &event.Subscriber{Name: "sub.1", AddressCh: ch1}))
	require.NoError(t, e.Subscribe(testEvent, &event.Subscriber{Name: "sub.2", AddressCh: ch2}))

	got1 := collect(wg, ch1)
	got2 := collect(wg, ch2)

	for i := range 5 {
		require.NoError(t, e.Publish(&event.Event{
			Name:    testEvent,
			Payload: fmt.Sprintf("test payload: %d", i+1),
		}))
	}

	close(doneCh)
	wg.Wait()

	assert.Len(t, *got1, 5)
	assert.Len(t, *got2, 5)
	assert.Equal(t, "test payload: 1", (*got1)[0])
}

func Test_eventEnginePartitionsLargeSubscriberLists(t *testing.T) {
	e, doneCh, wg := startEngine(t, 16)
	e.RegisterEvents(testEvent)

	var results []*[]any
	for i := range 8 {
		ch := make(chan any, 1)
		require.NoError(t, e.Subscribe(testEvent, &event.Subscriber{
			Name:      event.SubscriberName(fmt.Sprintf("sub.%d", i)),
			AddressCh: ch,
		}))
		results = append(results, collect(wg, ch))
	}

	require.NoError(t, e.Publish(&event.Event{Name: testEvent, Payload: 1}))
	require.NoError(t, e.Publish(&event.Event{Name: testEvent, Payload: 2}))

	close(doneCh)
	wg.Wait()

	for _, got := range results {
		assert.ElementsMatch(t, []any{1, 2}, *got)
	}
}

func Test_eventEngineRejectsUnregisteredEvents(t *testing.T) {
	e, doneCh, wg := startEngine(t, 1)

	assert.Error(t, e.Publish(&event.Event{Name: "unknown"}))
	assert.Error(t, e.Subscribe("unknown", &event.Subscriber{Name: "sub", AddressCh: make(chan any)}))

	close(doneCh)
	wg.Wait()
}

func Test_eventEnginePublishAfterShutdown(t *testing.T) {
	e, doneCh, wg := startEngine(t, 1)
	e.RegisterEvents(testEvent)

	close(doneCh)
	wg.Wait()

	assert.ErrorIs(t, e.Publish(&event.Event{Name: testEvent}), ErrEngineClosed)
}

func Test_eventEngineDropsWhenQueueFull(t *testing.T) {
	doneCh := make(chan struct{})
	wg := &sync.WaitGroup{}

	// not listening, so the queue is never drained until shutdown
	e := newEventEngine(&EventEngineConfig{DoneCh: doneCh, InternalSrvWG: wg, QueueSize: 1})
	e.RegisterEvents(testEvent)

	require.NoError(t, e.Publish(&event.Event{Name: testEvent}))
	assert.ErrorIs(t, e.Publish(&event.Event{Name: testEvent}), ErrEngineBusy)

	wg.Add(1)
	go e.listen()
	close(doneCh)
	wg.Wait()
}

func TestNewEventEngineValidatesConfig(t *testing.T) {
	_, err := NewEventEngine(nil)
	assert.Error(t, err)

	_, err = NewEventEngine(&EventEngineConfig{})
	assert.Error(t, err)
}

func TestOrderPlacedProductIDs(t *testing.T) {
	ev := &event.OrderPlacedEvent{Lines: []event.OrderedLine{
		{ProductID: 3}, {ProductID: 7}, {ProductID: 3},
	}}
	assert.Equal(t, []int64{3, 7}, ev.ProductIDs())
}
