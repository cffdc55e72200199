package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/notification-center/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and
	// serializes writers, which SQLite does anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreateNotification inserts a new notification for userID. Missing ids
// and timestamps are filled in.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	userID string,
	n model.Notification,
) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return model.Notification{}, fmt.Errorf("marshaling metadata: %w", err)
	}

	var readAt interface{}
	if n.ReadAt != nil {
		readAt = n.ReadAt.UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, category, title, message, read, created_at, read_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, userID, string(n.Category), n.Title, n.Message,
		boolToInt(n.Read), n.CreatedAt, readAt, string(metadata),
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("creating notification: %w", err)
	}

	return n, nil
}

// GetNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	userID string,
	filter NotificationFilter,
) ([]model.Notification, error) {
	query := `SELECT id, category, title, message, read, created_at, read_at, metadata
		FROM notifications WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.UnreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications of a user.
func (s *SQLiteStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0", userID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks a single notification as read. Marking an
// already-read notification keeps its original read_at.
func (s *SQLiteStore) MarkNotificationRead(
	ctx context.Context,
	userID, id string,
	at time.Time,
) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET read = 1, read_at = COALESCE(read_at, ?)
		WHERE id = ? AND user_id = ?`,
		at.UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return requireAffected(res, id)
}

// MarkAllNotificationsRead marks every unread notification of the user
// read and returns how many changed.
func (s *SQLiteStore) MarkAllNotificationsRead(
	ctx context.Context,
	userID string,
	at time.Time,
) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1, read_at = ? WHERE user_id = ? AND read = 0",
		at.UTC(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

// DeleteNotification removes a notification of the user.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// GetGlobalSettings returns the user's switches, or the defaults when the
// user never saved any.
func (s *SQLiteStore) GetGlobalSettings(
	ctx context.Context,
	userID string,
) (model.GlobalSettings, error) {
	var row struct {
		Email int `db:"email_enabled"`
		Web   int `db:"web_enabled"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT email_enabled, web_enabled FROM notification_settings WHERE user_id = ?", userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultGlobalSettings(), nil
	}
	if err != nil {
		return model.GlobalSettings{}, fmt.Errorf("querying notification settings: %w", err)
	}
	return model.GlobalSettings{EmailEnabled: row.Email != 0, WebEnabled: row.Web != 0}, nil
}

// ReplaceGlobalSettings overwrites the user's switches.
func (s *SQLiteStore) ReplaceGlobalSettings(
	ctx context.Context,
	userID string,
	g model.GlobalSettings,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO notification_settings (user_id, email_enabled, web_enabled, updated_at)
		VALUES (?, ?, ?, ?)`,
		userID, boolToInt(g.EmailEnabled), boolToInt(g.WebEnabled), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("replacing notification settings: %w", err)
	}
	return nil
}

// GetCategories returns the category enumeration in display order.
func (s *SQLiteStore) GetCategories(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	err := s.db.SelectContext(ctx, &categories,
		"SELECT tag, label FROM notification_categories ORDER BY sort_order, tag",
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification categories: %w", err)
	}
	return categories, nil
}

// GetCategoryPreferences returns the user's explicit per-category records
// in the order they were last submitted.
func (s *SQLiteStore) GetCategoryPreferences(
	ctx context.Context,
	userID string,
) ([]model.CategoryPreference, error) {
	var rows []struct {
		Category string `db:"category"`
		Email    int    `db:"email_enabled"`
		Web      int    `db:"web_enabled"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT category, email_enabled, web_enabled
		FROM category_preferences WHERE user_id = ? ORDER BY position`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying category preferences: %w", err)
	}

	prefs := make([]model.CategoryPreference, len(rows))
	for i, r := range rows {
		prefs[i] = model.CategoryPreference{
			Category:     model.CategoryTag(r.Category),
			EmailEnabled: r.Email != 0,
			WebEnabled:   r.Web != 0,
		}
	}
	return prefs, nil
}

// ReplaceCategoryPreferences swaps the whole collection in one transaction.
func (s *SQLiteStore) ReplaceCategoryPreferences(
	ctx context.Context,
	userID string,
	prefs []model.CategoryPreference,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM category_preferences WHERE user_id = ?", userID,
	); err != nil {
		return fmt.Errorf("clearing category preferences: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO category_preferences
			(user_id, category, email_enabled, web_enabled, position)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing preference insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range prefs {
		_, err := stmt.ExecContext(ctx,
			userID, string(p.Category),
			boolToInt(p.EmailEnabled), boolToInt(p.WebEnabled), i,
		)
		if err != nil {
			return fmt.Errorf("inserting preference %s: %w", p.Category, err)
		}
	}

	return tx.Commit()
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n        model.Notification
		category string
		readInt  int
		readAt   sql.NullTime
		metadata string
	)

	err := rows.Scan(
		&n.ID, &category, &n.Title, &n.Message,
		&readInt, &n.CreatedAt, &readAt, &metadata,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Category = model.CategoryTag(category)
	n.Read = readInt != 0
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}

	if metadata != "" && metadata != "null" {
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return n, nil
}

// requireAffected maps an update that touched no row to ErrNotFound.
func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
