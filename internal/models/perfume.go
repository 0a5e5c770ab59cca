package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Perfume struct {
	ID                string          `json:"id" db:"perfume_id"`
	SellerID          string          `json:"sellerId" db:"seller_id"`
	Name              string          `json:"name" db:"name"`
	Description       string          `json:"description" db:"description"`
	Brand             string          `json:"brand" db:"brand"`
	Category          string          `json:"category" db:"category"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Stock             int             `json:"stock" db:"stock"`
	LowStockThreshold int             `json:"lowStockThreshold" db:"low_stock_threshold"`
	ImageURLs         []string        `json:"imageUrls" db:"image_urls"`
	IsActive          bool            `json:"isActive" db:"is_active"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsLowStock indique si le stock est passé sous le seuil d'alerte du vendeur.
func (p Perfume) IsLowStock(defaultThreshold int) bool {
	threshold := p.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return p.Stock <= threshold
}
