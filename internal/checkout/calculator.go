// Package checkout transforme un panier en commande : calcul des totaux,
// décrémentation du stock, création de l'intent de paiement, puis annulation
// et confirmation de la commande.
package checkout

import (
	"github.com/shopspring/decimal"

	"tienda_perfumes/internal/apperr"
	"tienda_perfumes/internal/models"
)

// Line est une ligne de panier validée, avec le prix figé au moment du calcul.
type Line struct {
	Perfume   models.Perfume
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Quote struct {
	Lines    []Line
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Calculator calcule les totaux d'un panier. Il ne lit ni n'écrit aucune donnée :
// le catalogue lui est fourni déjà chargé.
type Calculator struct {
	taxRate  decimal.Decimal
	shipping decimal.Decimal
}

func NewCalculator(taxRate, shipping decimal.Decimal) Calculator {
	return Calculator{taxRate: taxRate, shipping: shipping}
}

// Calculate valide chaque ligne dans l'ordre du panier et s'arrête à la première
// erreur : panier vide, parfum inconnu, quantité invalide, stock insuffisant.
// Les quantités d'un même parfum présent sur plusieurs lignes s'additionnent
// avant la comparaison au stock.
func (c Calculator) Calculate(items []models.CartItem, catalog map[string]models.Perfume) (*Quote, error) {
	if len(items) == 0 {
		return nil, apperr.New(apperr.InvalidCart, "Le panier est vide")
	}

	q := &Quote{Lines: make([]Line, 0, len(items)), Subtotal: decimal.Zero}
	requested := make(map[string]int, len(items))

	for _, it := range items {
		p, ok := catalog[it.PerfumeID]
		if !ok {
			return nil, apperr.New(apperr.ItemNotFound, "Parfum introuvable: %s", it.PerfumeID)
		}
		if it.Quantity <= 0 {
			return nil, apperr.New(apperr.InvalidQuantity, "Quantité invalide pour %s: %d", p.Name, it.Quantity)
		}
		requested[p.ID] += it.Quantity
		if requested[p.ID] > p.Stock {
			return nil, apperr.New(apperr.InsufficientStock, "Stock insuffisant pour %s (disponible: %d)", p.Name, p.Stock)
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		q.Lines = append(q.Lines, Line{
			Perfume:   p,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			LineTotal: lineTotal,
		})
		q.Subtotal = q.Subtotal.Add(lineTotal)
	}

	q.Tax = q.Subtotal.Mul(c.taxRate).Round(2)
	q.Shipping = c.shipping
	q.Total = q.Subtotal.Add(q.Tax).Add(q.Shipping)
	return q, nil
}
