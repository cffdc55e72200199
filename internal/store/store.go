package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/notification-center/internal/model"
)

// ErrNotFound is returned when a notification does not exist for the user.
var ErrNotFound = errors.New("not found")

// NotificationFilter controls notification queries.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// Store defines the persistence interface of the reference backend:
// notifications plus the two preference documents of each user.
type Store interface {
	// === Notifications ===

	CreateNotification(ctx context.Context, userID string, n model.Notification) (model.Notification, error)
	GetNotifications(ctx context.Context, userID string, filter NotificationFilter) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error

	// === Preferences ===

	GetGlobalSettings(ctx context.Context, userID string) (model.GlobalSettings, error)
	ReplaceGlobalSettings(ctx context.Context, userID string, g model.GlobalSettings) error
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryPreferences(ctx context.Context, userID string) ([]model.CategoryPreference, error)
	ReplaceCategoryPreferences(ctx context.Context, userID string, prefs []model.CategoryPreference) error
}
