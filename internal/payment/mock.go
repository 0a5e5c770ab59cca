package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tienda_perfumes/internal/models"
)

// MockGateway simule une passerelle de paiement sans aucun appel réseau. Il garde
// la forme du contrat d'un vrai fournisseur (id d'intent, client secret, statut).
type MockGateway struct {
	store    IntentStore
	baseURL  string
	currency string
	now      func() time.Time
}

func NewMockGateway(store IntentStore, baseURL, currency string) *MockGateway {
	return &MockGateway{
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
		now:      time.Now,
	}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreatePayment(ctx context.Context, order *models.Order, method string) (*Intent, error) {
	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	secret, err := randomToken(12)
	if err != nil {
		return nil, fmt.Errorf("génération client secret: %w", err)
	}

	p := &models.MockPayment{
		ID:            id,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.Total,
		Currency:      g.currency,
		Status:        models.IntentRequiresPaymentMethod,
		PaymentMethod: method,
		ClientSecret:  id + "_secret_" + secret,
		CreatedAt:     g.now(),
	}
	if err := g.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("enregistrement intent: %w", err)
	}

	log.Printf("💳 Paiement simulé créé : %s (%s %s) pour la commande %s", id, p.Amount.StringFixed(2), g.currency, order.OrderNumber)

	q := url.Values{"payment_id": {id}}
	return &Intent{
		ID:           id,
		ClientSecret: p.ClientSecret,
		PaymentURL:   g.baseURL + "/payments/status/" + id,
		SuccessURL:   g.baseURL + "/payments/simulate-payment?" + q.Encode() + "&success=true",
		CancelURL:    g.baseURL + "/payments/simulate-payment?" + q.Encode() + "&success=false",
		Status:       p.Status,
	}, nil
}

func (g *MockGateway) SimulatePayment(ctx context.Context, intentID string, success bool) (bool, error) {
	p, ok := g.store.Get(ctx, intentID)
	if !ok {
		return false, nil
	}

	if success {
		now := g.now()
		p.Status = models.IntentSucceeded
		p.PaidAt = &now
	} else {
		p.Status = models.IntentFailed
		p.PaidAt = nil
	}
	if err := g.store.Save(ctx, p); err != nil {
		return false, err
	}

	log.Printf("🧪 Paiement simulé %s → %s", intentID, p.Status)
	return true, nil
}

func (g *MockGateway) VerifyPayment(ctx context.Context, intentID string) (bool, error) {
	p, ok := g.store.Get(ctx, intentID)
	if !ok {
		return false, nil
	}
	return p.Status == models.IntentSucceeded, nil
}

func (g *MockGateway) GetPayment(ctx context.Context, intentID string) (*models.MockPayment, error) {
	p, ok := g.store.Get(ctx, intentID)
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
