package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tienda_perfumes/internal/middleware"
	"tienda_perfumes/internal/notification"
	"tienda_perfumes/internal/repository"
)

type NotificationHandler struct {
	store repository.NotificationRepository
	sub   notification.Subscriber
}

func NewNotificationHandler(store repository.NotificationRepository, sub notification.Subscriber) *NotificationHandler {
	return &NotificationHandler{store: store, sub: sub}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	list, err := h.store.ListNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		log.Printf("❌ Erreur lecture notifications %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	n, err := h.store.CountUnread(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Erreur comptage notifications %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	err := h.store.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur mise à jour notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification lue"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if err := h.store.MarkAllRead(c.Request.Context(), userID); err != nil {
		log.Printf("❌ Erreur mise à jour notifications %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Toutes les notifications sont lues"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

const pingInterval = 30 * time.Second

// Stream pousse les notifications de l'utilisateur en temps réel sur une WebSocket.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	ch, unsubscribe := h.sub.Subscribe(ctx, userID)
	defer unsubscribe()

	// La lecture ne sert qu'à détecter la fermeture côté client.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected", "message": "Notifications temps réel activées"}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
