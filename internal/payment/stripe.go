package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"tienda_perfumes/internal/models"
)

// StripeGateway branche le même contrat sur de vrais PaymentIntents Stripe.
// stripe.Key doit être initialisé au démarrage.
type StripeGateway struct {
	currency string
	baseURL  string
}

func NewStripeGateway(baseURL, currency string) *StripeGateway {
	return &StripeGateway{currency: strings.ToLower(currency), baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *StripeGateway) Name() string { return "stripe" }

// toMinorUnits convertit un montant décimal en centimes, sans passer par un float.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (g *StripeGateway) CreatePayment(_ context.Context, order *models.Order, method string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(order.Total)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_id":       order.ID,
			"order_number":   order.OrderNumber,
			"user_id":        order.UserID,
			"payment_method": method,
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		return nil, fmt.Errorf("création PaymentIntent: %w", err)
	}

	log.Printf("💳 PaymentIntent créé : %s (%s) pour %s", intent.ID, order.Total.StringFixed(2), order.OrderNumber)
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		PaymentURL:   g.baseURL + "/payments/status/" + intent.ID,
		Status:       string(intent.Status),
	}, nil
}

func (g *StripeGateway) fetch(intentID string) (*stripe.PaymentIntent, error) {
	intent, err := paymentintent.Get(intentID, nil)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return intent, nil
}

func (g *StripeGateway) VerifyPayment(_ context.Context, intentID string) (bool, error) {
	intent, err := g.fetch(intentID)
	if errors.Is(err, ErrPaymentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return intent.Status == stripe.PaymentIntentStatusSucceeded, nil
}

func (g *StripeGateway) GetPayment(_ context.Context, intentID string) (*models.MockPayment, error) {
	intent, err := g.fetch(intentID)
	if err != nil {
		return nil, err
	}
	return &models.MockPayment{
		ID:            intent.ID,
		OrderID:       intent.Metadata["order_id"],
		OrderNumber:   intent.Metadata["order_number"],
		Amount:        decimal.New(intent.Amount, -2),
		Currency:      string(intent.Currency),
		Status:        stripeStatus(intent.Status),
		PaymentMethod: intent.Metadata["payment_method"],
		CreatedAt:     time.Unix(intent.Created, 0),
	}, nil
}

// stripeStatus ramène les statuts Stripe sur les quatre statuts du contrat.
func stripeStatus(s stripe.PaymentIntentStatus) string {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return models.IntentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return models.IntentCancelled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return models.IntentRequiresPaymentMethod
	default:
		return string(s)
	}
}
