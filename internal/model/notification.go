package model

import "time"

// CategoryTag is a server-defined classification of notification types
// (e.g., "new_release", "milestone"). The set of valid tags is data
// returned by the remote service, never a fixed list.
type CategoryTag string

// Notification is a single alert surfaced to the user. The client only
// reflects notifications created by the server and requests transitions
// on them; it never invents or finalizes one.
type Notification struct {
	// ID is the server-assigned identifier.
	ID string `json:"id"`

	// Category classifies the notification for preference resolution.
	Category CategoryTag `json:"category"`

	// Title is the short headline shown in the feed.
	Title string `json:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when the server generated this notification.
	CreatedAt time.Time `json:"created_at"`

	// ReadAt is set when the notification transitions to read.
	ReadAt *time.Time `json:"read_at,omitempty"`

	// Metadata holds opaque key-value pairs attached by the server
	// (e.g., the catalog item a release notification points at).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers can hand notifications out of a
// locked collection without sharing the ReadAt pointer or metadata map.
func (n Notification) Clone() Notification {
	c := n
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// MarkRead flips the notification to read, stamping ReadAt with at.
// It reports whether the notification was previously unread.
func (n *Notification) MarkRead(at time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	n.ReadAt = &at
	return true
}
