package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishPreservesCommitOrder(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sub := hub.Subscribe(1)
	defer hub.Unsubscribe(sub)

	for _, action := range []string{"STANDBY", "GO", "COMPLETE"} {
		hub.Publish(1, Change{Action: action, At: time.Now()})
	}

	first := <-sub.Changes()
	require.Equal(t, uint64(1), first.Seq)
	require.Equal(t, "STANDBY", first.Action)
	require.Equal(t, uint64(1), first.RunsheetID)

	second := <-sub.Changes()
	require.Equal(t, uint64(2), second.Seq)
	require.Equal(t, "GO", second.Action)

	third := <-sub.Changes()
	require.Equal(t, uint64(3), third.Seq)
	require.Equal(t, "COMPLETE", third.Action)
}

func TestRunsheetStreamsAreIndependent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sub1 := hub.Subscribe(1)
	sub2 := hub.Subscribe(2)
	defer hub.Unsubscribe(sub1)
	defer hub.Unsubscribe(sub2)

	hub.Publish(2, Change{Action: "GO"})

	select {
	case c := <-sub1.Changes():
		t.Fatalf("subscriber of runsheet 1 received %+v", c)
	default:
	}
	c := <-sub2.Changes()
	require.Equal(t, uint64(2), c.RunsheetID)
	// Sequence numbers are per runsheet.
	require.Equal(t, uint64(1), c.Seq)
}

func TestPublishWithZeroSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	// Must not block or panic; zero observers is a valid operating mode.
	hub.Publish(7, Change{Action: "GO"})
	hub.Publish(7, Change{Action: "COMPLETE"})

	// A late subscriber sees only future changes but the sequence keeps
	// counting from the runsheet's history.
	sub := hub.Subscribe(7)
	defer hub.Unsubscribe(sub)
	hub.Publish(7, Change{Action: "RESET"})
	c := <-sub.Changes()
	require.Equal(t, uint64(3), c.Seq)
}

func TestSlowSubscriberIsDroppedNotBlocking(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	slow := hub.Subscribe(1)

	// Overflow the slow subscriber's buffer without draining it.  The
	// publisher must never block; the slow observer is dropped instead.
	for i := 0; i < subscriberBuffer+1; i++ {
		hub.Publish(1, Change{Action: "GO"})
	}

	received := 0
	for range slow.Changes() {
		received++
	}
	// The channel was closed after the buffer filled up.
	require.Equal(t, subscriberBuffer, received)

	// A fresh subscriber keeps receiving; the drop affected only the
	// observer that fell behind.
	healthy := hub.Subscribe(1)
	defer hub.Unsubscribe(healthy)
	hub.Publish(1, Change{Action: "COMPLETE"})
	c := <-healthy.Changes()
	require.Equal(t, "COMPLETE", c.Action)
	require.Equal(t, uint64(subscriberBuffer+2), c.Seq)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sub := hub.Subscribe(1)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub) // second call is harmless

	_, open := <-sub.Changes()
	require.False(t, open)

	// Publishing after the last unsubscribe still works.
	hub.Publish(1, Change{Action: "GO"})
}
