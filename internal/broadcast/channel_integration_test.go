//go:build integration

package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront/internal/broadcast"
	"storefront/internal/platform/kafka"
	id "storefront/pkg/domain"
	"storefront/pkg/testutil/containers"
)

func runTab(t *testing.T, b *broadcast.Broadcaster) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = b.Run(ctx) }()
}

func TestRedisChannelCrossTab(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)

	tabA := broadcast.New(id.NewTabID(), broadcast.NewRedisChannel(rc.Client, "shop", nil))
	tabB := broadcast.New(id.NewTabID(), broadcast.NewRedisChannel(rc.Client, "shop", nil))
	runTab(t, tabA)
	runTab(t, tabB)

	got := make(chan broadcast.Kind, 4)
	tabB.Subscribe(func(ev broadcast.Event) { got <- ev.Kind })

	// Subscriptions are asynchronous; publish until tab B confirms receipt.
	require.Eventually(t, func() bool {
		require.NoError(t, tabA.Publish(context.Background(), broadcast.KindSessionChanged))
		select {
		case k := <-got:
			return k == broadcast.KindSessionChanged
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 10*time.Millisecond)
}

func TestKafkaChannelCrossTab(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	kc := containers.GetManager().GetKafka(t)
	topics := broadcast.Topics("it", "shop")
	require.NoError(t, kc.CreateTopics(context.Background(), topics...))

	newTab := func() *broadcast.Broadcaster {
		client, err := kafka.New(kafka.DefaultConfig([]string{kc.Brokers}, topics...), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		return broadcast.New(id.NewTabID(), broadcast.NewKafkaChannel(client, "it", "shop", nil))
	}
	tabA, tabB := newTab(), newTab()
	runTab(t, tabA)
	runTab(t, tabB)

	got := make(chan broadcast.Kind, 16)
	tabB.Subscribe(func(ev broadcast.Event) { got <- ev.Kind })

	require.Eventually(t, func() bool {
		require.NoError(t, tabA.Publish(context.Background(), broadcast.KindCartChanged))
		select {
		case k := <-got:
			return k == broadcast.KindCartChanged
		case <-time.After(500 * time.Millisecond):
			return false
		}
	}, 30*time.Second, 10*time.Millisecond)
}
