// Package handlers expose le checkout, les commandes, les paiements, le catalogue
// et les notifications en HTTP (gin).
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tienda_perfumes/internal/apperr"
	"tienda_perfumes/internal/checkout"
	"tienda_perfumes/internal/middleware"
	"tienda_perfumes/internal/models"
)

// respondError traduit une erreur métier en réponse JSON. Les erreurs de la
// taxonomie donnent un 400, les pannes internes ou de passerelle un 500.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusBadRequest
	if kind == apperr.GatewayError || kind == apperr.Internal {
		status = http.StatusInternalServerError
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": string(kind), "message": apperr.MessageOf(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "message": message})
}

func actorFrom(c *gin.Context) checkout.Actor {
	return checkout.Actor{
		UserID: c.GetString(middleware.CtxUserID),
		Role:   c.GetString(middleware.CtxRole),
	}
}

type itemResponse struct {
	PerfumeID   string `json:"perfumeId"`
	PerfumeName string `json:"perfumeName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

type orderResponse struct {
	OrderID         string             `json:"orderId"`
	OrderNumber     string             `json:"orderNumber"`
	Status          models.OrderStatus `json:"status"`
	Subtotal        string             `json:"subtotal"`
	Tax             string             `json:"tax"`
	Shipping        string             `json:"shipping"`
	Total           string             `json:"total"`
	ShippingAddress string             `json:"shippingAddress,omitempty"`
	BillingAddress  string             `json:"billingAddress,omitempty"`
	CustomerEmail   string             `json:"customerEmail,omitempty"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
	PaymentMethod   string             `json:"paymentMethod,omitempty"`
	Items           []itemResponse     `json:"items"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// toOrderResponse formate les montants avec deux décimales.
func toOrderResponse(o *models.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResponse{
			PerfumeID:   it.PerfumeID,
			PerfumeName: it.PerfumeName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			TotalPrice:  it.TotalPrice.StringFixed(2),
		})
	}
	return orderResponse{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		Subtotal:        o.Subtotal.StringFixed(2),
		Tax:             o.Tax.StringFixed(2),
		Shipping:        o.Shipping.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		PaymentMethod:   o.PaymentMethod,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}
