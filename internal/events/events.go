// Package events transporte les faits métier (commande créée, statut changé,
// paiement réussi, stock bas) vers leurs consommateurs, après persistance.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tienda_perfumes/internal/models"
)

type Type string

const (
	OrderCreated       Type = "OrderCreated"
	OrderStatusChanged Type = "OrderStatusChanged"
	PaymentSucceeded   Type = "PaymentSucceeded"
	StockLow           Type = "StockLow"
)

const producerName = "tienda-perfumes-api"

type Envelope struct {
	EventID    string          `json:"eventId"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Producer   string          `json:"producer"`
	OrderID    string          `json:"orderId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID       string             `json:"orderId"`
	OrderNumber   string             `json:"orderNumber"`
	UserID        string             `json:"userId"`
	CustomerEmail string             `json:"customerEmail"`
	Total         decimal.Decimal    `json:"total"`
	Items         []models.OrderItem `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID       string             `json:"orderId"`
	OrderNumber   string             `json:"orderNumber"`
	UserID        string             `json:"userId"`
	CustomerEmail string             `json:"customerEmail"`
	From          models.OrderStatus `json:"from"`
	To            models.OrderStatus `json:"to"`
}

type PaymentSucceededPayload struct {
	OrderID       string             `json:"orderId"`
	OrderNumber   string             `json:"orderNumber"`
	UserID        string             `json:"userId"`
	CustomerEmail string             `json:"customerEmail"`
	PaymentID     string             `json:"paymentId"`
	Amount        decimal.Decimal    `json:"amount"`
	Items         []models.OrderItem `json:"items"`
}

type StockLowPayload struct {
	PerfumeID   string `json:"perfumeId"`
	PerfumeName string `json:"perfumeName"`
	SellerID    string `json:"sellerId"`
	Stock       int    `json:"stock"`
	Threshold   int    `json:"threshold"`
}

// Publisher ne doit jamais faire échouer l'opération métier qui l'appelle :
// les appelants journalisent l'erreur et continuent.
type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
}

// Handler consomme un événement. Le consommateur décide seul de réessayer ou d'abandonner.
type Handler func(ctx context.Context, e Envelope) error

func NewEnvelope(t Type, orderID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encodage payload %s: %w", t, err)
	}
	return Envelope{
		EventID:    uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Producer:   producerName,
		OrderID:    orderID,
		Payload:    raw,
	}, nil
}

// Decode extrait le payload typé d'une enveloppe.
func Decode[T any](e Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return out, fmt.Errorf("décodage payload %s: %w", e.Type, err)
	}
	return out, nil
}

// Discard est le Publisher des tests qui ne s'intéressent pas aux événements.
type Discard struct{}

func (Discard) Publish(context.Context, Envelope) error { return nil }

// Recorder garde les événements publiés en mémoire, pour les tests.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, e Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// Types renvoie les types publiés, dans l'ordre.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}
