package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Mutator answers user actions on a Feed. Each action changes the feed
// first and then issues exactly one remote call. A failed call is
// logged and returned but not rolled back; the next refresh reconciles.
type Mutator struct {
	feed   *Feed
	source Source
	logger logrus.FieldLogger
}

// NewMutator creates a mutator writing to feed and src.
func NewMutator(feed *Feed, src Source, logger logrus.FieldLogger) *Mutator {
	return &Mutator{
		feed:   feed,
		source: src,
		logger: logger.WithField("component", "mutator"),
	}
}

// MarkRead marks one notification read. Ids not held by the feed are
// ignored.
func (m *Mutator) MarkRead(ctx context.Context, id string) error {
	return m.StageMarkRead(id)(ctx)
}

// MarkAllRead marks every notification read with a single remote call.
func (m *Mutator) MarkAllRead(ctx context.Context) error {
	return m.StageMarkAllRead()(ctx)
}

// Delete removes one notification. Deleting an id the feed no longer
// holds, such as on a repeated click, does nothing.
func (m *Mutator) Delete(ctx context.Context, id string) error {
	return m.StageDelete(id)(ctx)
}

// StageMarkRead applies the read to the feed at once and returns the
// function that makes the remote call. The returned function is never
// nil; for a no-op it does nothing.
func (m *Mutator) StageMarkRead(id string) func(context.Context) error {
	userID, op := m.feed.markRead(id)
	if op == nil {
		return noop
	}

	return func(ctx context.Context) error {
		err := m.source.MarkRead(ctx, userID, id)
		m.feed.settle(op)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"user_id":         userID,
				"notification_id": id,
			}).WithError(err).Error("failed to mark notification read")
			return fmt.Errorf("marking %s read: %w", id, err)
		}
		return nil
	}
}

// StageMarkAllRead is the staged form of MarkAllRead.
func (m *Mutator) StageMarkAllRead() func(context.Context) error {
	userID, op := m.feed.markAllRead()
	if op == nil {
		return noop
	}

	return func(ctx context.Context) error {
		err := m.source.MarkAllRead(ctx, userID)
		m.feed.settle(op)
		if err != nil {
			m.logger.WithField("user_id", userID).WithError(err).
				Error("failed to mark all notifications read")
			return fmt.Errorf("marking all read: %w", err)
		}
		return nil
	}
}

// StageDelete is the staged form of Delete.
func (m *Mutator) StageDelete(id string) func(context.Context) error {
	userID, op := m.feed.remove(id)
	if op == nil {
		return noop
	}

	return func(ctx context.Context) error {
		err := m.source.DeleteNotification(ctx, userID, id)
		m.feed.settle(op)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"user_id":         userID,
				"notification_id": id,
			}).WithError(err).Error("failed to delete notification")
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		return nil
	}
}

func noop(context.Context) error { return nil }
