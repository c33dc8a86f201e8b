package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	n := New()

	a := n.Subscribe()
	b := n.Subscribe()
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	n.Broadcast()

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestBroadcastDoesNotBlockOnFullBuffer(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	// Buffer size is one; extra broadcasts are dropped, not queued.
	n.Broadcast()
	n.Broadcast()
	n.Broadcast()

	assert.Len(t, ch, 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	n.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Broadcast after unsubscribe must not panic on the closed channel.
	n.Broadcast()
}
