package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"tienda_perfumes/internal/apperr"
	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
)

const maxOrderNumberAttempts = 5

// Draft regroupe les informations client d'une commande.
type Draft struct {
	UserID          string
	ShippingAddress string
	BillingAddress  string
	CustomerEmail   string
	CustomerPhone   string
	PaymentMethod   string
}

// StockMove est le stock restant d'un parfum après décrémentation.
type StockMove struct {
	Perfume  models.Perfume
	NewStock int
}

// Builder persiste la commande et décrémente le stock immédiatement, ligne par
// ligne, par mise à jour conditionnelle. Toute erreur après la première
// décrémentation remet le stock déjà retiré.
type Builder struct {
	catalog   repository.CatalogRepository
	orders    repository.OrderRepository
	now       func() time.Time
	newNumber func(time.Time) string
}

func NewBuilder(catalog repository.CatalogRepository, orders repository.OrderRepository) *Builder {
	return &Builder{
		catalog:   catalog,
		orders:    orders,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

func (b *Builder) Build(ctx context.Context, d Draft, q *Quote) (*models.Order, []StockMove, error) {
	moves := make([]StockMove, 0, len(q.Lines))

	for _, l := range q.Lines {
		left, err := b.catalog.DecrementStock(ctx, l.Perfume.ID, l.Quantity)
		if err != nil {
			b.restore(ctx, moves, q)
			return nil, nil, stockFailure(l, err)
		}
		moves = append(moves, StockMove{Perfume: l.Perfume, NewStock: left})
	}

	now := b.now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		UserID:          d.UserID,
		Subtotal:        q.Subtotal,
		Tax:             q.Tax,
		Shipping:        q.Shipping,
		Total:           q.Total,
		Status:          models.OrderPending,
		ShippingAddress: d.ShippingAddress,
		BillingAddress:  d.BillingAddress,
		CustomerEmail:   d.CustomerEmail,
		CustomerPhone:   d.CustomerPhone,
		PaymentMethod:   d.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, l := range q.Lines {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:     order.ID,
			PerfumeID:   l.Perfume.ID,
			PerfumeName: l.Perfume.Name,
			SellerID:    l.Perfume.SellerID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.LineTotal,
		})
	}

	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = b.newNumber(now)
		err = b.orders.CreateOrder(ctx, order)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		log.Printf("⚠️ Numéro de commande %s déjà pris, nouvel essai", order.OrderNumber)
	}
	if err != nil {
		b.restore(ctx, moves, q)
		return nil, nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de l'enregistrement de la commande")
	}

	return order, moves, nil
}

// restore rend le stock retiré pour les len(moves) premières lignes. Le contexte
// de la requête peut déjà être annulé : la remise se fait quand même.
func (b *Builder) restore(ctx context.Context, moves []StockMove, q *Quote) {
	ctx = context.WithoutCancel(ctx)
	for i := range moves {
		l := q.Lines[i]
		if _, err := b.catalog.IncrementStock(ctx, l.Perfume.ID, l.Quantity); err != nil {
			log.Printf("❌ Impossible de rendre %d unité(s) de %s: %v", l.Quantity, l.Perfume.ID, err)
		}
	}
}

func stockFailure(l Line, err error) error {
	var se *repository.StockError
	switch {
	case errors.As(err, &se):
		return apperr.Wrap(apperr.InsufficientStock, err, "Stock insuffisant pour %s (disponible: %d)", l.Perfume.Name, se.Available)
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.ItemNotFound, err, "Parfum introuvable: %s", l.Perfume.ID)
	default:
		return apperr.Wrap(apperr.Internal, err, "Erreur lors de la mise à jour du stock")
	}
}
