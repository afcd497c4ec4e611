package journal

import (
	"context"
	"fmt"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/store"
	"go.uber.org/zap"
)

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// StoreNotifier appends notifications to the store's notification feed.
type StoreNotifier struct {
	store store.Store
}

// NewStoreNotifier creates a notifier writing to st.
func NewStoreNotifier(st store.Store) *StoreNotifier {
	return &StoreNotifier{store: st}
}

func (n *StoreNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	return n.store.CreateNotification(ctx, notification)
}

// notify sends a notification. Delivery failures are logged only.
func (e *Engine) notify(ctx context.Context, userID string, kind models.NotificationKind, title, format string, args ...interface{}) {
	n := &models.Notification{
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   fmt.Sprintf(format, args...),
		CreatedAt: e.now(),
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Error("Failed to deliver notification",
			zap.String("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
	}
}

// Notifications lists the user's feed, newest first.
func (e *Engine) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return e.store.ListNotifications(ctx, userID, unreadOnly)
}
