package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e, err := NewEnvelope(StockLow, "", StockLowPayload{PerfumeID: "p1", PerfumeName: "Sauvage", SellerID: "s1", Stock: 2, Threshold: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, producerName, e.Producer)

	p, err := Decode[StockLowPayload](e)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
	assert.Equal(t, "Sauvage", p.PerfumeName)
}

func TestKafkaMessageKeyedByOrder(t *testing.T) {
	e, err := NewEnvelope(OrderCreated, "order-42", OrderCreatedPayload{OrderID: "order-42", Total: decimal.RequireFromString("28.20")})
	require.NoError(t, err)

	m, err := toMessage(e)
	require.NoError(t, err)
	assert.Equal(t, []byte("order-42"), m.Key)
	require.Len(t, m.Headers, 1)
	assert.Equal(t, "OrderCreated", string(m.Headers[0].Value))

	back, err := fromMessage(m)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, back.EventID)

	p, err := Decode[OrderCreatedPayload](back)
	require.NoError(t, err)
	assert.True(t, p.Total.Equal(decimal.RequireFromString("28.20")))
}

func TestLocalBus_DeliversThenDrainsOnClose(t *testing.T) {
	bus := NewLocalBus(8)
	var (
		mu   sync.Mutex
		seen []Type
	)
	done := make(chan struct{})
	go func() {
		bus.Run(context.Background(), func(_ context.Context, e Envelope) error {
			mu.Lock()
			seen = append(seen, e.Type)
			mu.Unlock()
			return nil
		})
		close(done)
	}()

	for _, typ := range []Type{OrderCreated, OrderStatusChanged, PaymentSucceeded} {
		e, _ := NewEnvelope(typ, "o1", struct{}{})
		require.NoError(t, bus.Publish(context.Background(), e))
	}
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run ne s'est pas arrêté après Close")
	}
	assert.Equal(t, []Type{OrderCreated, OrderStatusChanged, PaymentSucceeded}, seen)

	e, _ := NewEnvelope(StockLow, "", struct{}{})
	assert.ErrorIs(t, bus.Publish(context.Background(), e), ErrBusClosed)
}

func TestLocalBus_FullBufferDoesNotBlock(t *testing.T) {
	bus := NewLocalBus(1)
	e, _ := NewEnvelope(StockLow, "", struct{}{})

	require.NoError(t, bus.Publish(context.Background(), e))
	assert.ErrorIs(t, bus.Publish(context.Background(), e), ErrBusFull)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	e, _ := NewEnvelope(OrderCreated, "o1", struct{}{})
	_ = r.Publish(context.Background(), e)
	assert.Equal(t, []Type{OrderCreated}, r.Types())
}

func TestKeyedPool_SameOrderSameWorkerInOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string][]int64{}
	)
	pool := newKeyedPool(4, func(m kafka.Message) {
		// traitement lent sur certains messages : le suivant de la même commande doit attendre
		if m.Offset%3 == 0 {
			time.Sleep(2 * time.Millisecond)
		}
		mu.Lock()
		seen[string(m.Key)] = append(seen[string(m.Key)], m.Offset)
		mu.Unlock()
	})

	keys := []string{"order-1", "order-2", "order-3", "order-4", "order-5"}
	assert.Equal(t, pool.worker(kafka.Message{Key: []byte("order-1")}), pool.worker(kafka.Message{Key: []byte("order-1")}))

	ctx := context.Background()
	var offset int64
	for round := 0; round < 10; round++ {
		for _, k := range keys {
			require.True(t, pool.submit(ctx, kafka.Message{Key: []byte(k), Offset: offset}))
			offset++
		}
	}
	pool.wait()

	for _, k := range keys {
		got := seen[k]
		require.Len(t, got, 10, k)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i], "ordre perdu pour %s", k)
		}
	}
}

func TestKeyedPool_WaitDrainsQueuedMessages(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	pool := newKeyedPool(2, func(kafka.Message) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		count++
		mu.Unlock()
	})
	for i := 0; i < 20; i++ {
		require.True(t, pool.submit(context.Background(), kafka.Message{Key: []byte("order-42"), Offset: int64(i)}))
	}
	pool.wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count)
}

func TestKeyedPool_SubmitStopsOnCancel(t *testing.T) {
	block := make(chan struct{})
	pool := newKeyedPool(1, func(kafka.Message) { <-block })

	ctx, cancel := context.WithCancel(context.Background())
	// le worker bloque sur le premier message, la file (64) se remplit ensuite
	for i := 0; i < 65; i++ {
		require.True(t, pool.submit(ctx, kafka.Message{Key: []byte("k")}))
	}
	cancel()
	assert.False(t, pool.submit(ctx, kafka.Message{Key: []byte("k")}))

	close(block)
	pool.wait()
}
