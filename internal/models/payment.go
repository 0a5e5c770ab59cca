package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statuts d'un intent de paiement simulé (même forme que ceux de Stripe).
const (
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentSucceeded             = "succeeded"
	IntentFailed                = "failed"
	IntentCancelled             = "cancelled"
)

// MockPayment est l'intent de paiement gardé en mémoire par la passerelle simulée.
// Il ne survit pas à un redémarrage du processus.
type MockPayment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	// ClientSecret n'est remis qu'à l'acheteur, dans la réponse du checkout.
	ClientSecret  string          `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Payment est l'enregistrement durable qui reflète l'intent côté base.
type Payment struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	IntentID  string          `json:"intentId"`
	Provider  string          `json:"provider"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
