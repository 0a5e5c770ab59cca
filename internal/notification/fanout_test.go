package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/events"
	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
)

type fakeMailer struct {
	mu    sync.Mutex
	fails int
	sent  []string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("smtp indisponible")
	}
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

type failingStore struct {
	repository.NotificationRepository
	calls int
}

func (s *failingStore) CreateNotification(context.Context, *models.Notification) error {
	s.calls++
	return errors.New("scylla down")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func orderItems() []models.OrderItem {
	return []models.OrderItem{
		{PerfumeID: "p1", PerfumeName: "Chanel N°5", SellerID: "seller-a", Quantity: 2, UnitPrice: dec("10.00"), TotalPrice: dec("20.00")},
		{PerfumeID: "p2", PerfumeName: "Sauvage", SellerID: "seller-b", Quantity: 1, UnitPrice: dec("50.00"), TotalPrice: dec("50.00")},
		{PerfumeID: "p3", PerfumeName: "Light Blue", SellerID: "seller-a", Quantity: 1, UnitPrice: dec("5.50"), TotalPrice: dec("5.50")},
	}
}

func envelope(t *testing.T, typ events.Type, payload any) events.Envelope {
	t.Helper()
	e, err := events.NewEnvelope(typ, "order-1", payload)
	require.NoError(t, err)
	return e
}

func TestSplitBySeller(t *testing.T) {
	shares := splitBySeller(orderItems())
	require.Len(t, shares, 2)

	assert.Equal(t, "seller-a", shares[0].SellerID)
	assert.True(t, shares[0].Subtotal.Equal(dec("25.50")))
	assert.Equal(t, []string{"Chanel N°5 x2", "Light Blue x1"}, shares[0].Products)

	assert.Equal(t, "seller-b", shares[1].SellerID)
	assert.True(t, shares[1].Subtotal.Equal(dec("50.00")))
}

func TestFanout_OrderCreatedNotifiesEachSeller(t *testing.T) {
	store := repository.NewMemoryNotifications()
	hub := NewHub()
	mailer := &fakeMailer{}
	f := NewFanout(store, WithPusher(hub), WithMailer(mailer), WithRetry(3, 0))
	ctx := context.Background()

	live, cancel := hub.Subscribe(ctx, "seller-a")
	defer cancel()

	err := f.Handle(ctx, envelope(t, events.OrderCreated, events.OrderCreatedPayload{
		OrderID: "order-1", OrderNumber: "PRF-1", UserID: "buyer", CustomerEmail: "buyer@example.com",
		Total: dec("92.38"), Items: orderItems(),
	}))
	require.NoError(t, err)

	a, _ := store.ListNotifications(ctx, "seller-a", 10)
	require.Len(t, a, 1)
	assert.Equal(t, models.NotificationNewOrder, a[0].Type)
	assert.Contains(t, a[0].Message, "25.50")
	assert.Contains(t, a[0].Message, "Chanel N°5 x2")
	assert.NotEmpty(t, a[0].ID)

	b, _ := store.ListNotifications(ctx, "seller-b", 10)
	require.Len(t, b, 1)
	assert.Contains(t, b[0].Message, "50.00")

	buyer, _ := store.ListNotifications(ctx, "buyer", 10)
	assert.Empty(t, buyer)
	assert.Len(t, mailer.sent, 1)

	select {
	case raw := <-live:
		var n models.Notification
		require.NoError(t, json.Unmarshal(raw, &n))
		assert.Equal(t, "seller-a", n.UserID)
	case <-time.After(time.Second):
		t.Fatal("aucun push reçu")
	}
}

func TestFanout_PaymentSucceeded(t *testing.T) {
	store := repository.NewMemoryNotifications()
	f := NewFanout(store, WithRetry(1, 0))
	ctx := context.Background()

	require.NoError(t, f.Handle(ctx, envelope(t, events.PaymentSucceeded, events.PaymentSucceededPayload{
		OrderID: "order-1", OrderNumber: "PRF-1", UserID: "buyer", PaymentID: "pi_mock_1",
		Amount: dec("92.38"), Items: orderItems(),
	})))

	buyer, _ := store.ListNotifications(ctx, "buyer", 10)
	require.Len(t, buyer, 1)
	assert.Equal(t, models.NotificationPaymentSuccess, buyer[0].Type)

	a, _ := store.ListNotifications(ctx, "seller-a", 10)
	require.Len(t, a, 1)
	assert.Contains(t, a[0].Message, "25.50")
}

func TestFanout_StatusChangedAndStockLow(t *testing.T) {
	store := repository.NewMemoryNotifications()
	f := NewFanout(store, WithRetry(1, 0))
	ctx := context.Background()

	require.NoError(t, f.Handle(ctx, envelope(t, events.OrderStatusChanged, events.OrderStatusChangedPayload{
		OrderID: "order-1", OrderNumber: "PRF-1", UserID: "buyer", From: models.OrderPending, To: models.OrderConfirmed,
	})))
	require.NoError(t, f.Handle(ctx, envelope(t, events.StockLow, events.StockLowPayload{
		PerfumeID: "p1", PerfumeName: "Chanel N°5", SellerID: "seller-a", Stock: 3, Threshold: 5,
	})))

	buyer, _ := store.ListNotifications(ctx, "buyer", 10)
	require.Len(t, buyer, 1)
	assert.Equal(t, models.NotificationOrderUpdate, buyer[0].Type)

	seller, _ := store.ListNotifications(ctx, "seller-a", 10)
	require.Len(t, seller, 1)
	assert.Equal(t, models.NotificationStockAlert, seller[0].Type)
}

func TestFanout_FailuresAreSwallowed(t *testing.T) {
	store := &failingStore{}
	mailer := &fakeMailer{fails: 2}
	f := NewFanout(store, WithMailer(mailer), WithRetry(3, 0))

	err := f.Handle(context.Background(), envelope(t, events.OrderCreated, events.OrderCreatedPayload{
		OrderID: "order-1", OrderNumber: "PRF-1", CustomerEmail: "buyer@example.com", Items: orderItems()[:1], Total: dec("28.20"),
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	// deux échecs puis un succès
	assert.Len(t, mailer.sent, 1)
}

func TestFanout_BadPayload(t *testing.T) {
	f := NewFanout(repository.NewMemoryNotifications())
	err := f.Handle(context.Background(), events.Envelope{Type: events.StockLow, Payload: []byte("{")})
	assert.Error(t, err)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(context.Background(), "u1")
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, hub.Push(context.Background(), models.Notification{UserID: "u1"}))
}

func TestRenderEmails(t *testing.T) {
	html, err := RenderStatusEmail("PRF-1", models.OrderShipped)
	require.NoError(t, err)
	assert.Contains(t, html, "PRF-1")
	assert.Contains(t, html, "expédiée")

	html, err = RenderOrderConfirmation("PRF-1", orderItems(), dec("92.38"))
	require.NoError(t, err)
	assert.Contains(t, html, "Chanel N°5")
	assert.Contains(t, html, "20.00")
	assert.Contains(t, html, "92.38")
}
