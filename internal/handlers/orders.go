package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tienda_perfumes/internal/checkout"
	"tienda_perfumes/internal/models"
)

type OrderHandler struct {
	svc *checkout.Service
}

func NewOrderHandler(svc *checkout.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.svc.ListOrders(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
}

func (h *OrderHandler) GetByNumber(c *gin.Context) {
	o, err := h.svc.GetOrderByNumber(c.Request.Context(), actorFrom(c), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	o, err := h.svc.Cancel(c.Request.Context(), actorFrom(c), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Commande annulée",
		"order":   toOrderResponse(o),
	})
}

// UpdateStatus est réservé aux admins et aux vendeurs de la commande.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	o, err := h.svc.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("ref"), models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}
