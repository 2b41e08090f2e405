package notify

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNotifier_FanOut(t *testing.T) {
	n := New()
	var got []string

	n.Subscribe(func(e Event) { got = append(got, "first:"+e.ID) })
	n.Subscribe(func(e Event) { got = append(got, "second:"+e.ID) })

	n.Notify(Event{Op: OpAdd, ID: "42"})

	assert.Equal(t, []string{"first:42", "second:42"}, got)
}

func TestNotifier_IsolatesPanickingListener(t *testing.T) {
	panics := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_listener_panics_total"})
	n := New(WithPanicCounter(panics))
	calls := make([]int, 3)

	n.Subscribe(func(Event) { calls[0]++ })
	n.Subscribe(func(Event) {
		calls[1]++
		panic("render failed")
	})
	n.Subscribe(func(Event) { calls[2]++ })

	assert.NotPanics(t, func() {
		n.Notify(Event{Op: OpToggle, ID: "1"})
	})

	assert.Equal(t, []int{1, 1, 1}, calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(panics))
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New()
	calls := 0
	unsubscribe := n.Subscribe(func(Event) { calls++ })

	n.Notify(Event{Op: OpAdd})
	unsubscribe()
	unsubscribe()
	n.Notify(Event{Op: OpAdd})

	assert.Equal(t, 1, calls)
	assert.Zero(t, n.Len())
}

func TestNotifier_SubscribeDuringNotify(t *testing.T) {
	n := New()
	lateCalls := 0

	n.Subscribe(func(Event) {
		n.Subscribe(func(Event) { lateCalls++ })
	})

	n.Notify(Event{Op: OpAdd})
	assert.Zero(t, lateCalls, "listeners added during delivery wait for the next event")
	assert.Equal(t, 2, n.Len())
}

func TestNotifier_UnsubscribeDuringNotify(t *testing.T) {
	n := New()
	calls := make([]int, 2)
	var unsubscribeSecond func()

	n.Subscribe(func(Event) {
		calls[0]++
		unsubscribeSecond()
	})
	unsubscribeSecond = n.Subscribe(func(Event) { calls[1]++ })

	n.Notify(Event{Op: OpRemove})
	n.Notify(Event{Op: OpRemove})

	assert.Equal(t, []int{2, 1}, calls)
}

func TestNotifier_SetsTimestamp(t *testing.T) {
	n := New()
	var got Event
	n.Subscribe(func(e Event) { got = e })

	n.Notify(Event{Op: OpClear})

	assert.False(t, got.At.IsZero())
}

func TestNotifier_ConcurrentSubscribeAndNotify(t *testing.T) {
	n := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := n.Subscribe(func(Event) {})
			unsubscribe()
		}()
		go func() {
			defer wg.Done()
			n.Notify(Event{Op: OpAdd})
		}()
	}
	wg.Wait()

	assert.Zero(t, n.Len())
}
