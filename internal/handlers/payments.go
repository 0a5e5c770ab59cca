package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tienda_perfumes/internal/checkout"
	"tienda_perfumes/internal/models"
)

type PaymentHandler struct {
	svc *checkout.Service
}

func NewPaymentHandler(svc *checkout.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// paymentResponse est la vue publique d'un intent : sans client secret,
// montant à deux décimales comme les commandes.
type paymentResponse struct {
	PaymentID     string     `json:"paymentId"`
	OrderID       string     `json:"orderId"`
	OrderNumber   string     `json:"orderNumber"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

func toPaymentResponse(p *models.MockPayment) *paymentResponse {
	if p == nil {
		return nil
	}
	return &paymentResponse{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		OrderNumber:   p.OrderNumber,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		Status:        p.Status,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     p.CreatedAt,
		PaidAt:        p.PaidAt,
	}
}

// Simulate force le résultat d'un paiement simulé
// (GET /payments/simulate-payment?payment_id=...&success=true).
func (h *PaymentHandler) Simulate(c *gin.Context) {
	id := c.Query("payment_id")
	if id == "" {
		badRequest(c, "payment_id manquant")
		return
	}
	success, err := strconv.ParseBool(c.DefaultQuery("success", "false"))
	if err != nil {
		badRequest(c, "success doit valoir true ou false")
		return
	}

	snap, err := h.svc.Simulate(c.Request.Context(), id, success)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": toPaymentResponse(snap),
	})
}

func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req struct {
		PaymentID string `json:"payment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	conf, err := h.svc.ConfirmPayment(c.Request.Context(), actorFrom(c), req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Paiement confirmé",
		"order":   toOrderResponse(conf.Order),
		"payment": toPaymentResponse(conf.Payment),
	})
}

func (h *PaymentHandler) Status(c *gin.Context) {
	snap, err := h.svc.PaymentStatus(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(snap))
}
