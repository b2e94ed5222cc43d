package eventbus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type lotImported struct {
	Count int
}

func TestPublish_MatchingSubscriber(t *testing.T) {
	bus := NewEventPublisher(logrus.New())

	var got *lotImported
	bus.Subscribe(func(ev *lotImported) {
		got = ev
	})

	bus.Publish(&lotImported{Count: 42})
	require.NotNil(t, got)
	require.Equal(t, 42, got.Count)
}

func TestPublish_NoMatchDoesNotPanic(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	bus.Subscribe(func(ev *lotImported) {})

	require.NotPanics(t, func() {
		bus.Publish("unrelated")
	})
}

func TestPublish_PanickingHandlerIsRecovered(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	bus.Subscribe(func(ev *lotImported) {
		panic("boom")
	})

	require.NotPanics(t, func() {
		bus.Publish(&lotImported{})
	})
}

func TestUnsubscribeAndClear(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	h := func(ev *lotImported) {}
	bus.Subscribe(h)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	require.Equal(t, 0, bus.SubscribersCount())
}
