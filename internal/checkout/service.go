package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"tienda_perfumes/internal/apperr"
	"tienda_perfumes/internal/events"
	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/payment"
	"tienda_perfumes/internal/repository"
)

// Actor est l'utilisateur authentifié à l'origine d'un appel.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool  { return a.Role == models.RoleAdmin }
func (a Actor) IsSeller() bool { return a.Role == models.RoleSeller }

type Request struct {
	Items           []models.CartItem `json:"items"`
	ShippingAddress string            `json:"shippingAddress"`
	BillingAddress  string            `json:"billingAddress"`
	CustomerEmail   string            `json:"customerEmail"`
	CustomerPhone   string            `json:"customerPhone"`
	PaymentMethod   string            `json:"paymentMethod"`
}

type Result struct {
	Order  *models.Order
	Intent *payment.Intent
}

type Confirmation struct {
	Order   *models.Order
	Payment *models.MockPayment
}

type Deps struct {
	Catalog           repository.CatalogRepository
	Orders            repository.OrderRepository
	Payments          repository.PaymentRepository
	Gateway           payment.Gateway
	Publisher         events.Publisher
	Calculator        Calculator
	LowStockThreshold int
}

// Service orchestre le checkout. Les événements ne sont publiés qu'une fois
// l'écriture en base réussie, et un échec de publication est seulement journalisé.
type Service struct {
	calc      Calculator
	builder   *Builder
	catalog   repository.CatalogRepository
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	gateway   payment.Gateway
	publisher events.Publisher
	lowStock  int
	now       func() time.Time
}

func NewService(d Deps) *Service {
	pub := d.Publisher
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{
		calc:      d.Calculator,
		builder:   NewBuilder(d.Catalog, d.Orders),
		catalog:   d.Catalog,
		orders:    d.Orders,
		payments:  d.Payments,
		gateway:   d.Gateway,
		publisher: pub,
		lowStock:  d.LowStockThreshold,
		now:       time.Now,
	}
}

// Quote valide le panier et calcule les totaux sans rien modifier.
func (s *Service) Quote(ctx context.Context, items []models.CartItem) (*Quote, error) {
	if len(items) == 0 {
		return nil, apperr.New(apperr.InvalidCart, "Le panier est vide")
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.PerfumeID)
	}
	catalog, err := s.catalog.GetPerfumes(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de la lecture du catalogue")
	}
	return s.calc.Calculate(items, catalog)
}

// Checkout crée une commande PENDING, retire le stock et ouvre un intent de paiement.
func (s *Service) Checkout(ctx context.Context, actor Actor, req Request) (*Result, error) {
	q, err := s.Quote(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order, moves, err := s.builder.Build(ctx, Draft{
		UserID:          actor.UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		PaymentMethod:   req.PaymentMethod,
	}, q)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePayment(ctx, order, req.PaymentMethod)
	if err != nil {
		log.Printf("❌ Erreur création paiement pour %s: %v", order.OrderNumber, err)
		s.abandon(ctx, order)
		return nil, apperr.Wrap(apperr.GatewayError, err, "Erreur lors de la création du paiement")
	}

	now := s.now().UTC()
	rec := &models.Payment{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		IntentID:  intent.ID,
		Provider:  s.gateway.Name(),
		Amount:    order.Total,
		Method:    req.PaymentMethod,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.CreatePayment(ctx, rec); err != nil {
		// la confirmation retrouve la commande par l'intent, le paiement durable est recréé à ce moment
		log.Printf("⚠️ Enregistrement paiement %s échoué: %v", intent.ID, err)
	}

	log.Printf("✅ Commande %s créée (%s) pour %s", order.OrderNumber, order.Total.StringFixed(2), actor.UserID)

	s.emit(ctx, events.OrderCreated, order.ID, events.OrderCreatedPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		CustomerEmail: order.CustomerEmail,
		Total:         order.Total,
		Items:         order.Items,
	})
	for _, m := range moves {
		s.checkLowStock(ctx, m)
	}

	return &Result{Order: order, Intent: intent}, nil
}

// abandon annule une commande dont le paiement n'a pas pu être ouvert.
func (s *Service) abandon(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	if err := s.orders.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderCancelled); err != nil {
		log.Printf("❌ Impossible d'annuler la commande %s: %v", order.OrderNumber, err)
		return
	}
	s.restoreStock(ctx, order)
	order.Status = models.OrderCancelled
}

func (s *Service) restoreStock(ctx context.Context, order *models.Order) {
	for _, it := range order.Items {
		if _, err := s.catalog.IncrementStock(ctx, it.PerfumeID, it.Quantity); err != nil {
			log.Printf("❌ Impossible de rendre %d unité(s) de %s: %v", it.Quantity, it.PerfumeID, err)
		}
	}
}

func (s *Service) checkLowStock(ctx context.Context, m StockMove) {
	p := m.Perfume
	p.Stock = m.NewStock
	if !p.IsLowStock(s.lowStock) {
		return
	}
	threshold := p.LowStockThreshold
	if threshold <= 0 {
		threshold = s.lowStock
	}
	log.Printf("⚠️ Stock bas pour %s: %d unité(s)", p.Name, p.Stock)
	s.emit(ctx, events.StockLow, "", events.StockLowPayload{
		PerfumeID:   p.ID,
		PerfumeName: p.Name,
		SellerID:    p.SellerID,
		Stock:       p.Stock,
		Threshold:   threshold,
	})
}

func (s *Service) loadOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Commande introuvable")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de la lecture de la commande")
	}
	return o, nil
}

// Cancel annule une commande PENDING de l'appelant et rend le stock.
func (s *Service) Cancel(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, apperr.New(apperr.Forbidden, "Cette commande ne vous appartient pas")
	}
	if order.Status != models.OrderPending {
		return nil, apperr.New(apperr.InvalidState, "Seules les commandes en attente peuvent être annulées (statut: %s)", order.Status)
	}

	// la transition conditionnelle garantit qu'un seul appel rend le stock
	err = s.orders.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderCancelled)
	if errors.Is(err, repository.ErrConflict) {
		return nil, apperr.New(apperr.InvalidState, "La commande n'est plus en attente")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de l'annulation")
	}

	s.restoreStock(ctx, order)
	s.setPaymentStatus(ctx, order.ID, models.PaymentCancelled)

	order.Status = models.OrderCancelled
	order.UpdatedAt = s.now().UTC()
	log.Printf("🚫 Commande %s annulée", order.OrderNumber)

	s.emitStatus(ctx, order, models.OrderPending)
	return order, nil
}

func (s *Service) setPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) {
	rec, err := s.payments.GetPaymentByOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("⚠️ Lecture paiement de %s échouée: %v", orderID, err)
		return
	}
	if rec.Status == status {
		return
	}
	if err := s.payments.UpdatePaymentStatus(ctx, rec.ID, status); err != nil {
		log.Printf("⚠️ Mise à jour paiement %s → %s échouée: %v", rec.ID, status, err)
	}
}

// paidStatuses sont les statuts atteints après une confirmation de paiement.
var paidStatuses = map[models.OrderStatus]bool{
	models.OrderConfirmed: true,
	models.OrderPreparing: true,
	models.OrderShipped:   true,
	models.OrderDelivered: true,
}

// ConfirmPayment vérifie l'intent et fait passer la commande de PENDING à CONFIRMED.
// Une commande déjà payée est renvoyée telle quelle.
func (s *Service) ConfirmPayment(ctx context.Context, actor Actor, intentID string) (*Confirmation, error) {
	snap, err := s.PaymentStatus(ctx, intentID)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, snap.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "Cette commande ne vous appartient pas")
	}

	ok, err := s.gateway.VerifyPayment(ctx, intentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.GatewayError, err, "Erreur lors de la vérification du paiement")
	}
	if !ok {
		if snap.Status == models.IntentFailed {
			s.setPaymentStatus(ctx, order.ID, models.PaymentFailed)
		}
		return nil, apperr.New(apperr.InvalidState, "Paiement non confirmé (statut: %s)", snap.Status)
	}

	if paidStatuses[order.Status] {
		return &Confirmation{Order: order, Payment: snap}, nil
	}
	if order.Status != models.OrderPending {
		return nil, apperr.New(apperr.InvalidState, "Impossible de confirmer une commande %s", order.Status)
	}

	err = s.orders.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderConfirmed)
	if errors.Is(err, repository.ErrConflict) {
		// confirmation ou annulation concurrente : on relit pour trancher
		current, rerr := s.loadOrder(ctx, order.ID)
		if rerr != nil {
			return nil, rerr
		}
		if paidStatuses[current.Status] {
			return &Confirmation{Order: current, Payment: snap}, nil
		}
		return nil, apperr.New(apperr.InvalidState, "Impossible de confirmer une commande %s", current.Status)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de la confirmation")
	}

	s.ensureCompleted(ctx, order, snap)

	order.Status = models.OrderConfirmed
	order.UpdatedAt = s.now().UTC()
	log.Printf("💰 Paiement %s confirmé, commande %s CONFIRMED", intentID, order.OrderNumber)

	s.emit(ctx, events.PaymentSucceeded, order.ID, events.PaymentSucceededPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		CustomerEmail: order.CustomerEmail,
		PaymentID:     intentID,
		Amount:        snap.Amount,
		Items:         order.Items,
	})
	s.emitStatus(ctx, order, models.OrderPending)

	return &Confirmation{Order: order, Payment: snap}, nil
}

// ensureCompleted passe le paiement durable à COMPLETED, en le recréant s'il manque.
func (s *Service) ensureCompleted(ctx context.Context, order *models.Order, snap *models.MockPayment) {
	_, err := s.payments.GetPaymentByOrder(ctx, order.ID)
	if errors.Is(err, repository.ErrNotFound) {
		now := s.now().UTC()
		rec := &models.Payment{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			IntentID:  snap.ID,
			Provider:  s.gateway.Name(),
			Amount:    snap.Amount,
			Method:    snap.PaymentMethod,
			Status:    models.PaymentCompleted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.payments.CreatePayment(ctx, rec); err != nil {
			log.Printf("⚠️ Enregistrement paiement %s échoué: %v", snap.ID, err)
		}
		return
	}
	s.setPaymentStatus(ctx, order.ID, models.PaymentCompleted)
}

// Simulate force le résultat d'un intent simulé.
func (s *Service) Simulate(ctx context.Context, intentID string, success bool) (*models.MockPayment, error) {
	sim, ok := s.gateway.(payment.Simulator)
	if !ok {
		return nil, apperr.New(apperr.InvalidState, "La simulation n'est pas disponible avec la passerelle %s", s.gateway.Name())
	}
	found, err := sim.SimulatePayment(ctx, intentID, success)
	if err != nil {
		return nil, apperr.Wrap(apperr.GatewayError, err, "Erreur lors de la simulation du paiement")
	}
	if !found {
		return nil, apperr.New(apperr.NotFound, "Paiement introuvable: %s", intentID)
	}
	return s.PaymentStatus(ctx, intentID)
}

func (s *Service) PaymentStatus(ctx context.Context, intentID string) (*models.MockPayment, error) {
	snap, err := s.gateway.GetPayment(ctx, intentID)
	if errors.Is(err, payment.ErrPaymentNotFound) {
		return nil, apperr.New(apperr.NotFound, "Paiement introuvable: %s", intentID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.GatewayError, err, "Erreur lors de la lecture du paiement")
	}
	return snap, nil
}

// GetOrderByNumber renvoie une commande de l'appelant (ou toute commande pour un admin).
func (s *Service) GetOrderByNumber(ctx context.Context, actor Actor, number string) (*models.Order, error) {
	o, err := s.orders.GetOrderByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Commande introuvable: %s", number)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de la lecture de la commande")
	}
	if o.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "Cette commande ne vous appartient pas")
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, actor Actor) ([]models.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de la lecture des commandes")
	}
	return orders, nil
}

// UpdateStatus fait avancer une commande payée (préparation, expédition, livraison,
// remboursement). Réservé aux admins et aux vendeurs présents dans la commande.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, orderID string, to models.OrderStatus) (*models.Order, error) {
	if _, ok := models.ParseOrderStatus(string(to)); !ok {
		return nil, apperr.New(apperr.InvalidState, "Statut inconnu: %s", to)
	}
	if to == models.OrderConfirmed || to == models.OrderCancelled {
		return nil, apperr.New(apperr.InvalidState, "Le statut %s passe par le paiement ou l'annulation", to)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.IsSeller() && order.HasSeller(actor.UserID)) {
		return nil, apperr.New(apperr.Forbidden, "Vous ne pouvez pas modifier cette commande")
	}

	from := order.Status
	if !models.CanTransition(from, to) {
		return nil, apperr.New(apperr.InvalidState, "Transition %s → %s interdite", from, to)
	}
	err = s.orders.UpdateOrderStatus(ctx, order.ID, from, to)
	if errors.Is(err, repository.ErrConflict) {
		return nil, apperr.New(apperr.InvalidState, "La commande a changé de statut entre-temps")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Erreur lors de la mise à jour du statut")
	}

	order.Status = to
	order.UpdatedAt = s.now().UTC()
	log.Printf("📦 Commande %s : %s → %s", order.OrderNumber, from, to)

	s.emitStatus(ctx, order, from)
	return order, nil
}

func (s *Service) emitStatus(ctx context.Context, order *models.Order, from models.OrderStatus) {
	s.emit(ctx, events.OrderStatusChanged, order.ID, events.OrderStatusChangedPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		CustomerEmail: order.CustomerEmail,
		From:          from,
		To:            order.Status,
	})
}

func (s *Service) emit(ctx context.Context, t events.Type, orderID string, payload any) {
	e, err := events.NewEnvelope(t, orderID, payload)
	if err != nil {
		log.Printf("❌ %v", err)
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("⚠️ Publication de l'événement %s échouée: %v", t, err)
	}
}
