// Package repository contient les contrats de persistance et leurs
// implémentations ScyllaDB et mémoire.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tienda_perfumes/internal/models"
)

var (
	ErrNotFound  = errors.New("enregistrement introuvable")
	ErrDuplicate = errors.New("enregistrement déjà existant")
	// ErrConflict signale qu'une mise à jour conditionnelle n'a pas été appliquée.
	ErrConflict = errors.New("mise à jour conditionnelle refusée")
	// ErrCorruptRow signale une valeur illisible lue en base (montant mal formé...).
	ErrCorruptRow = errors.New("ligne corrompue")
)

// amounts lit les montants stockés en texte et garde la première erreur :
// un prix illisible ne doit jamais devenir 0.00.
type amounts struct {
	err error
}

func (a *amounts) parse(column, raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("%w: %s=%q: %v", ErrCorruptRow, column, raw, err)
	}
	return d
}

// StockError est renvoyée quand une décrémentation ferait passer le stock sous zéro.
type StockError struct {
	PerfumeID string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("stock insuffisant pour %s: disponible %d, demandé %d", e.PerfumeID, e.Available, e.Requested)
}

type CatalogRepository interface {
	CreatePerfume(ctx context.Context, p *models.Perfume) error
	GetPerfume(ctx context.Context, id string) (*models.Perfume, error)
	// GetPerfumes ignore silencieusement les identifiants inconnus.
	GetPerfumes(ctx context.Context, ids []string) (map[string]models.Perfume, error)
	ListPerfumes(ctx context.Context, limit int) ([]models.Perfume, error)
	AddImageURL(ctx context.Context, id, url string) error
	// DecrementStock retire qty du stock seulement si stock >= qty, de façon atomique.
	// Renvoie le nouveau stock, ou un *StockError.
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
	IncrementStock(ctx context.Context, id string, qty int) (int, error)
}

type OrderRepository interface {
	// CreateOrder renvoie ErrDuplicate si le numéro de commande est déjà pris.
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	// UpdateOrderStatus n'applique to que si le statut courant vaut from (sinon ErrConflict).
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	GetPaymentByIntent(ctx context.Context, intentID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type UserRepository interface {
	// CreateUser renvoie ErrDuplicate si le nom d'utilisateur existe déjà.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}
