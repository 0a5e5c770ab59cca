package models

import "time"

type NotificationType string

const (
	NotificationNewOrder       NotificationType = "NEW_ORDER"
	NotificationOrderUpdate    NotificationType = "ORDER_UPDATE"
	NotificationPaymentSuccess NotificationType = "PAYMENT_SUCCESS"
	NotificationStockAlert     NotificationType = "STOCK_ALERT"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	OrderID   string           `json:"orderId,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}
