package remote

import "github.com/nhle/notification-center/internal/model"

// UnreadCountResponse is the body of GET .../notifications/unread-count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// ErrorResponse is the error body the service returns on non-2xx.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NotificationsResponse wraps GET .../notifications.
type NotificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// CategoriesResponse wraps GET /api/notification-categories.
type CategoriesResponse struct {
	Categories []model.Category `json:"categories"`
}

// PreferencesDocument is both the response of GET and the body of PUT
// .../notification-preferences. The collection is always replaced whole.
type PreferencesDocument struct {
	Preferences []model.CategoryPreference `json:"preferences"`
}
