package model

import "fmt"

// Channel is a delivery medium for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelWeb   Channel = "web"
)

// Channels lists every known channel in display order.
var Channels = []Channel{ChannelEmail, ChannelWeb}

// ParseChannel converts user input into a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelWeb:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// Role is the acting user's role, used to decide which notification
// categories they can configure.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// GlobalSettings holds the two user-wide channel switches. Exactly one
// instance exists per user; it is overwritten as a whole, never patched.
type GlobalSettings struct {
	EmailEnabled bool `json:"email_enabled"`
	WebEnabled   bool `json:"web_enabled"`
}

// DefaultGlobalSettings is used until the server provides real values.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{EmailEnabled: true, WebEnabled: true}
}

// Enabled reports the switch for channel c. Unknown channels are off.
func (g GlobalSettings) Enabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return g.EmailEnabled
	case ChannelWeb:
		return g.WebEnabled
	}
	return false
}

// With returns a copy of g with channel c set to value.
func (g GlobalSettings) With(c Channel, value bool) GlobalSettings {
	switch c {
	case ChannelEmail:
		g.EmailEnabled = value
	case ChannelWeb:
		g.WebEnabled = value
	}
	return g
}

// CategoryPreference is one user's channel switches for one category.
type CategoryPreference struct {
	Category     CategoryTag `json:"category"`
	EmailEnabled bool        `json:"email_enabled"`
	WebEnabled   bool        `json:"web_enabled"`
}

// DefaultCategoryPreference is synthesized for categories that have no
// stored record yet: both channels on.
func DefaultCategoryPreference(tag CategoryTag) CategoryPreference {
	return CategoryPreference{Category: tag, EmailEnabled: true, WebEnabled: true}
}

// Enabled reports the switch for channel c. Unknown channels are off.
func (p CategoryPreference) Enabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelWeb:
		return p.WebEnabled
	}
	return false
}

// With returns a copy of p with channel c set to value.
func (p CategoryPreference) With(c Channel, value bool) CategoryPreference {
	switch c {
	case ChannelEmail:
		p.EmailEnabled = value
	case ChannelWeb:
		p.WebEnabled = value
	}
	return p
}

// Category is one entry of the server's category enumeration.
type Category struct {
	Tag   CategoryTag `json:"tag"`
	Label string      `json:"label"`
}
