package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Publish(Event{Type: TypePostingStarted, Posting: PostingInfo{ID: "1"}, Time: time.Now()})

	for _, ch := range []chan Event{a, b} {
		select {
		case evt := <-ch:
			assert.Equal(t, TypePostingStarted, evt.Type)
			assert.Equal(t, "1", evt.Posting.ID)
		default:
			t.Fatal("expected buffered event")
		}
	}
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Overfill the buffer; publishing must never block
	for i := 0; i < 40; i++ {
		hub.Publish(Event{Type: TypePostingFinished})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 16, received)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch := hub.Subscribe()
	hub.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe reaches nobody and does not panic
	hub.Publish(Event{Type: TypeRunFinished})
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	require.NotPanics(t, func() {
		hub.Publish(Event{Type: TypeAuthenticated})
	})
}
