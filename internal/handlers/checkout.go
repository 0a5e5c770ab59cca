package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tienda_perfumes/internal/checkout"
)

type CheckoutHandler struct {
	svc *checkout.Service
}

func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type checkoutResponse struct {
	orderResponse
	PaymentID    string `json:"paymentId"`
	PaymentURL   string `json:"paymentUrl"`
	ClientSecret string `json:"clientSecret"`
	SuccessURL   string `json:"successUrl,omitempty"`
	CancelURL    string `json:"cancelUrl,omitempty"`
}

// Checkout crée la commande à partir du panier envoyé et renvoie l'intent de paiement.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.svc.Checkout(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkoutResponse{
		orderResponse: toOrderResponse(res.Order),
		PaymentID:     res.Intent.ID,
		PaymentURL:    res.Intent.PaymentURL,
		ClientSecret:  res.Intent.ClientSecret,
		SuccessURL:    res.Intent.SuccessURL,
		CancelURL:     res.Intent.CancelURL,
	})
}

// Quote calcule les totaux d'un panier sans créer de commande.
func (h *CheckoutHandler) Quote(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	q, err := h.svc.Quote(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]itemResponse, 0, len(q.Lines))
	for _, l := range q.Lines {
		items = append(items, itemResponse{
			PerfumeID:   l.Perfume.ID,
			PerfumeName: l.Perfume.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			TotalPrice:  l.LineTotal.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"subtotal": q.Subtotal.StringFixed(2),
		"tax":      q.Tax.StringFixed(2),
		"shipping": q.Shipping.StringFixed(2),
		"total":    q.Total.StringFixed(2),
	})
}
