package repository

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"tienda_perfumes/internal/models"
)

// ScyllaNotifications range les notifications par destinataire, triées par
// timeuuid décroissant.
type ScyllaNotifications struct {
	session *gocql.Session
}

func NewScyllaNotifications(session *gocql.Session) *ScyllaNotifications {
	return &ScyllaNotifications{session: session}
}

func (r *ScyllaNotifications) CreateNotification(ctx context.Context, n *models.Notification) error {
	id, err := gocql.ParseUUID(n.ID)
	if err != nil {
		id = gocql.UUIDFromTime(n.CreatedAt)
		n.ID = id.String()
	}
	return r.session.Query(`INSERT INTO notifications (user_id, notification_id, title, message, type, order_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, id, n.Title, n.Message, string(n.Type), n.OrderID, n.IsRead, n.CreatedAt).WithContext(ctx).Exec()
}

func (r *ScyllaNotifications) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	iter := r.session.Query(`SELECT notification_id, title, message, type, order_id, is_read, created_at
		FROM notifications WHERE user_id = ? LIMIT ?`, userID, limit).WithContext(ctx).Iter()

	var (
		out   []models.Notification
		id    gocql.UUID
		n     models.Notification
		ntype string
	)
	for iter.Scan(&id, &n.Title, &n.Message, &ntype, &n.OrderID, &n.IsRead, &n.CreatedAt) {
		n.ID = id.String()
		n.UserID = userID
		n.Type = models.NotificationType(ntype)
		out = append(out, n)
	}
	return out, iter.Close()
}

func (r *ScyllaNotifications) unreadIDs(ctx context.Context, userID string) ([]gocql.UUID, error) {
	iter := r.session.Query(`SELECT notification_id, is_read FROM notifications WHERE user_id = ?`, userID).
		WithContext(ctx).Iter()
	var (
		ids  []gocql.UUID
		id   gocql.UUID
		read bool
	)
	for iter.Scan(&id, &read) {
		if !read {
			ids = append(ids, id)
		}
	}
	return ids, iter.Close()
}

func (r *ScyllaNotifications) CountUnread(ctx context.Context, userID string) (int, error) {
	ids, err := r.unreadIDs(ctx, userID)
	return len(ids), err
}

func (r *ScyllaNotifications) MarkRead(ctx context.Context, userID, id string) error {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}
	applied, err := r.session.Query(`UPDATE notifications SET is_read = true WHERE user_id = ? AND notification_id = ? IF EXISTS`,
		userID, uid).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

func (r *ScyllaNotifications) MarkAllRead(ctx context.Context, userID string) error {
	ids, err := r.unreadIDs(ctx, userID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	batch := r.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, id := range ids {
		batch.Query(`UPDATE notifications SET is_read = true WHERE user_id = ? AND notification_id = ?`, userID, id)
	}
	return r.session.ExecuteBatch(batch)
}

// NewNotificationID génère un timeuuid pour l'ordre chronologique des notifications.
func NewNotificationID(at time.Time) string {
	return gocql.UUIDFromTime(at).String()
}
