package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/notification-center/internal/model"
)

// Service is the typed view of the remote notification/preference API.
// It satisfies both notify.Source and preference.Backend.
type Service struct {
	client *Client
}

// NewService wraps an HTTP client.
func NewService(c *Client) *Service {
	return &Service{client: c}
}

func userPath(userID string, suffix string) string {
	return "/api/users/" + url.PathEscape(userID) + suffix
}

// ListNotifications returns the user's notifications, newest first as
// ordered by the server. With unreadOnly only unread entries are returned.
func (s *Service) ListNotifications(
	ctx context.Context,
	userID string,
	unreadOnly bool,
) ([]model.Notification, error) {
	path := userPath(userID, "/notifications")
	if unreadOnly {
		path += "?unread_only=true"
	}

	var resp NotificationsResponse
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return resp.Notifications, nil
}

// UnreadCount returns the server's authoritative unread counter.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var resp UnreadCountResponse
	if err := s.client.Get(ctx, userPath(userID, "/notifications/unread-count"), &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return resp.Count, nil
}

// MarkRead marks one notification read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	path := userPath(userID, "/notifications/"+url.PathEscape(id)+"/read")
	if err := s.client.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification of the user read in one call.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.client.Post(ctx, userPath(userID, "/notifications/read-all"), nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// DeleteNotification removes one notification.
func (s *Service) DeleteNotification(ctx context.Context, userID, id string) error {
	path := userPath(userID, "/notifications/"+url.PathEscape(id))
	if err := s.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// GetGlobalSettings fetches the user's global channel switches.
func (s *Service) GetGlobalSettings(
	ctx context.Context,
	userID string,
) (model.GlobalSettings, error) {
	var g model.GlobalSettings
	if err := s.client.Get(ctx, userPath(userID, "/notification-settings"), &g); err != nil {
		return model.GlobalSettings{}, fmt.Errorf("fetching global settings: %w", err)
	}
	return g, nil
}

// ReplaceGlobalSettings overwrites the user's global switches as a whole.
func (s *Service) ReplaceGlobalSettings(
	ctx context.Context,
	userID string,
	g model.GlobalSettings,
) error {
	if err := s.client.Put(ctx, userPath(userID, "/notification-settings"), g, nil); err != nil {
		return fmt.Errorf("replacing global settings: %w", err)
	}
	return nil
}

// ListCategories fetches the enumeration of valid category tags. It is
// the only call made without a credential.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp CategoriesResponse
	if err := s.client.GetAnonymous(ctx, "/api/notification-categories", &resp); err != nil {
		return nil, fmt.Errorf("listing notification categories: %w", err)
	}
	return resp.Categories, nil
}

// GetPreferences fetches the user's per-category preference collection.
func (s *Service) GetPreferences(
	ctx context.Context,
	userID string,
) ([]model.CategoryPreference, error) {
	var doc PreferencesDocument
	if err := s.client.Get(ctx, userPath(userID, "/notification-preferences"), &doc); err != nil {
		return nil, fmt.Errorf("fetching category preferences: %w", err)
	}
	return doc.Preferences, nil
}

// ReplacePreferences overwrites the whole per-category collection.
func (s *Service) ReplacePreferences(
	ctx context.Context,
	userID string,
	prefs []model.CategoryPreference,
) error {
	doc := PreferencesDocument{Preferences: prefs}
	if doc.Preferences == nil {
		doc.Preferences = []model.CategoryPreference{}
	}
	if err := s.client.Put(ctx, userPath(userID, "/notification-preferences"), doc, nil); err != nil {
		return fmt.Errorf("replacing category preferences: %w", err)
	}
	return nil
}
