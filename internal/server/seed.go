package server

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/store"
)

var sampleNotifications = []model.Notification{
	{Category: "new_release", Title: "New release available", Message: "Version 2.4 has shipped."},
	{Category: "friend_request", Title: "Friend request", Message: "Someone wants to connect with you."},
	{Category: "forum_reply", Title: "New reply", Message: "Your thread has a new reply."},
	{Category: "milestone", Title: "Milestone reached", Message: "You completed 100 entries."},
	{Category: "system_alert", Title: "Scheduled maintenance", Message: "The service restarts tonight."},
}

// Seed creates sample notifications for userID, spaced one minute apart
// and ending at now. The oldest one is already read.
func Seed(ctx context.Context, st store.Store, userID string, now time.Time) error {
	for i, n := range sampleNotifications {
		n.CreatedAt = now.Add(-time.Duration(len(sampleNotifications)-1-i) * time.Minute)
		created, err := st.CreateNotification(ctx, userID, n)
		if err != nil {
			return fmt.Errorf("seeding notifications for %s: %w", userID, err)
		}
		if i == 0 {
			if err := st.MarkNotificationRead(ctx, userID, created.ID, now); err != nil {
				return fmt.Errorf("seeding notifications for %s: %w", userID, err)
			}
		}
	}
	return nil
}
