// Package notification consomme les événements métier et prévient vendeurs et
// acheteurs : notification persistée, push temps réel et e-mail.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tienda_perfumes/internal/events"
	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
)

const defaultAttempts = 3

// Pusher diffuse une notification aux sessions ouvertes de son destinataire.
type Pusher interface {
	Push(ctx context.Context, n models.Notification) error
}

// Mailer envoie un e-mail HTML.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Fanout est le consommateur des événements. Chaque livraison (stockage, push,
// e-mail) est tentée plusieurs fois, puis abandonnée avec un log : un échec ici
// ne remonte jamais à la commande ou au paiement qui a émis l'événement.
type Fanout struct {
	store    repository.NotificationRepository
	pusher   Pusher
	mailer   Mailer
	attempts int
	backoff  time.Duration
	now      func() time.Time
}

type Option func(*Fanout)

func WithPusher(p Pusher) Option { return func(f *Fanout) { f.pusher = p } }

func WithMailer(m Mailer) Option { return func(f *Fanout) { f.mailer = m } }

func WithRetry(attempts int, backoff time.Duration) Option {
	return func(f *Fanout) {
		if attempts > 0 {
			f.attempts = attempts
		}
		f.backoff = backoff
	}
}

func NewFanout(store repository.NotificationRepository, opts ...Option) *Fanout {
	f := &Fanout{
		store:    store,
		attempts: defaultAttempts,
		backoff:  200 * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle implémente events.Handler.
func (f *Fanout) Handle(ctx context.Context, e events.Envelope) error {
	switch e.Type {
	case events.OrderCreated:
		p, err := events.Decode[events.OrderCreatedPayload](e)
		if err != nil {
			return err
		}
		f.onOrderCreated(ctx, p)
	case events.OrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChangedPayload](e)
		if err != nil {
			return err
		}
		f.onStatusChanged(ctx, p)
	case events.PaymentSucceeded:
		p, err := events.Decode[events.PaymentSucceededPayload](e)
		if err != nil {
			return err
		}
		f.onPaymentSucceeded(ctx, p)
	case events.StockLow:
		p, err := events.Decode[events.StockLowPayload](e)
		if err != nil {
			return err
		}
		f.onStockLow(ctx, p)
	default:
		log.Printf("⚠️ Type d'événement inconnu ignoré: %s", e.Type)
	}
	return nil
}

// sellerShare est la part d'une commande qui revient à un vendeur.
type sellerShare struct {
	SellerID string
	Subtotal decimal.Decimal
	Products []string
}

// splitBySeller regroupe les lignes par vendeur, dans l'ordre d'apparition.
func splitBySeller(items []models.OrderItem) []sellerShare {
	index := make(map[string]int)
	var shares []sellerShare
	for _, it := range items {
		if it.SellerID == "" {
			continue
		}
		i, ok := index[it.SellerID]
		if !ok {
			i = len(shares)
			index[it.SellerID] = i
			shares = append(shares, sellerShare{SellerID: it.SellerID, Subtotal: decimal.Zero})
		}
		shares[i].Subtotal = shares[i].Subtotal.Add(it.TotalPrice)
		shares[i].Products = append(shares[i].Products, fmt.Sprintf("%s x%d", it.PerfumeName, it.Quantity))
	}
	return shares
}

func (f *Fanout) onOrderCreated(ctx context.Context, p events.OrderCreatedPayload) {
	for _, s := range splitBySeller(p.Items) {
		f.notify(ctx, models.Notification{
			UserID:  s.SellerID,
			Title:   "🛍️ Nouvelle commande",
			Message: fmt.Sprintf("Commande %s : %s. Sous-total : %s", p.OrderNumber, strings.Join(s.Products, ", "), s.Subtotal.StringFixed(2)),
			Type:    models.NotificationNewOrder,
			OrderID: p.OrderID,
		})
	}

	if p.CustomerEmail != "" {
		html, err := RenderOrderConfirmation(p.OrderNumber, p.Items, p.Total)
		if err != nil {
			log.Printf("❌ Erreur génération email de commande: %v", err)
			return
		}
		f.mail(ctx, p.CustomerEmail, "✅ Commande enregistrée - Tienda Perfumes", html)
	}
}

func (f *Fanout) onStatusChanged(ctx context.Context, p events.OrderStatusChangedPayload) {
	f.notify(ctx, models.Notification{
		UserID:  p.UserID,
		Title:   statusTitle(p.To),
		Message: fmt.Sprintf("Votre commande %s est passée de %s à %s", p.OrderNumber, p.From, p.To),
		Type:    models.NotificationOrderUpdate,
		OrderID: p.OrderID,
	})

	if p.CustomerEmail != "" {
		html, err := RenderStatusEmail(p.OrderNumber, p.To)
		if err != nil {
			log.Printf("❌ Erreur génération email statut: %v", err)
			return
		}
		f.mail(ctx, p.CustomerEmail, statusSubject(p.To), html)
	}
}

func (f *Fanout) onPaymentSucceeded(ctx context.Context, p events.PaymentSucceededPayload) {
	f.notify(ctx, models.Notification{
		UserID:  p.UserID,
		Title:   "✅ Paiement confirmé",
		Message: fmt.Sprintf("Le paiement de %s pour la commande %s a été reçu", p.Amount.StringFixed(2), p.OrderNumber),
		Type:    models.NotificationPaymentSuccess,
		OrderID: p.OrderID,
	})
	for _, s := range splitBySeller(p.Items) {
		f.notify(ctx, models.Notification{
			UserID:  s.SellerID,
			Title:   "💰 Paiement reçu",
			Message: fmt.Sprintf("Commande %s payée. Vos gains : %s", p.OrderNumber, s.Subtotal.StringFixed(2)),
			Type:    models.NotificationPaymentSuccess,
			OrderID: p.OrderID,
		})
	}
}

func (f *Fanout) onStockLow(ctx context.Context, p events.StockLowPayload) {
	if p.SellerID == "" {
		return
	}
	f.notify(ctx, models.Notification{
		UserID:  p.SellerID,
		Title:   "⚠️ Stock bas",
		Message: fmt.Sprintf("Il ne reste que %d unité(s) de %s (seuil : %d)", p.Stock, p.PerfumeName, p.Threshold),
		Type:    models.NotificationStockAlert,
	})
}

func (f *Fanout) notify(ctx context.Context, n models.Notification) {
	n.CreatedAt = f.now().UTC()
	n.ID = repository.NewNotificationID(n.CreatedAt)

	if err := f.retry(ctx, func() error { return f.store.CreateNotification(ctx, &n) }); err != nil {
		log.Printf("❌ Notification %s pour %s abandonnée: %v", n.Type, n.UserID, err)
		return
	}
	if f.pusher == nil {
		return
	}
	if err := f.retry(ctx, func() error { return f.pusher.Push(ctx, n) }); err != nil {
		log.Printf("⚠️ Push temps réel échoué pour %s: %v", n.UserID, err)
	}
}

func (f *Fanout) mail(ctx context.Context, to, subject, html string) {
	if f.mailer == nil {
		return
	}
	if err := f.retry(ctx, func() error { return f.mailer.Send(ctx, to, subject, html) }); err != nil {
		log.Printf("❌ Email à %s abandonné: %v", to, err)
		return
	}
	log.Printf("📧 Email envoyé: %s → %s", subject, to)
}

func (f *Fanout) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == f.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.backoff * time.Duration(attempt)):
		}
	}
	return err
}
