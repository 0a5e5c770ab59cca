// Package payment isole le checkout du fournisseur de paiement : une passerelle
// simulée en mémoire par défaut, Stripe derrière le même contrat.
package payment

import (
	"context"
	"errors"

	"tienda_perfumes/internal/models"
)

var (
	ErrPaymentNotFound = errors.New("paiement introuvable")
	ErrUnsupported     = errors.New("opération non supportée par cette passerelle")
)

// Intent est ce que le client reçoit pour finaliser son paiement.
type Intent struct {
	ID           string `json:"paymentId"`
	ClientSecret string `json:"clientSecret"`
	PaymentURL   string `json:"paymentUrl"`
	SuccessURL   string `json:"successUrl"`
	CancelURL    string `json:"cancelUrl"`
	Status       string `json:"status"`
}

type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, order *models.Order, method string) (*Intent, error)
	// VerifyPayment est vrai si et seulement si l'intent est au statut succeeded.
	VerifyPayment(ctx context.Context, intentID string) (bool, error)
	// GetPayment renvoie ErrPaymentNotFound si l'intent est inconnu.
	GetPayment(ctx context.Context, intentID string) (*models.MockPayment, error)
}

// Simulator est implémenté par les passerelles qui acceptent un déclenchement
// manuel du résultat (tests, opérateur).
type Simulator interface {
	// SimulatePayment renvoie false si l'intent est inconnu.
	SimulatePayment(ctx context.Context, intentID string, success bool) (bool, error)
}
