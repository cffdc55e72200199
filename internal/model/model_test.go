package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationMarkRead(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := Notification{ID: "n1"}

	assert.True(t, n.MarkRead(at))
	require.NotNil(t, n.ReadAt)
	assert.Equal(t, at, *n.ReadAt)

	assert.False(t, n.MarkRead(at.Add(time.Hour)), "already read")
	assert.Equal(t, at, *n.ReadAt)
}

func TestNotificationCloneIsDeep(t *testing.T) {
	at := time.Now()
	n := Notification{ID: "n1", ReadAt: &at, Metadata: map[string]string{"item": "42"}}

	c := n.Clone()
	c.Metadata["item"] = "7"
	*c.ReadAt = at.Add(time.Hour)

	assert.Equal(t, "42", n.Metadata["item"])
	assert.Equal(t, at, *n.ReadAt)
}

func TestChannelSwitches(t *testing.T) {
	g := DefaultGlobalSettings().With(ChannelEmail, false)
	assert.False(t, g.Enabled(ChannelEmail))
	assert.True(t, g.Enabled(ChannelWeb))
	assert.False(t, g.Enabled("sms"))

	p := DefaultCategoryPreference("milestone").With(ChannelWeb, false)
	assert.Equal(t, CategoryPreference{Category: "milestone", EmailEnabled: true, WebEnabled: false}, p)

	c, err := ParseChannel("web")
	require.NoError(t, err)
	assert.Equal(t, ChannelWeb, c)
	_, err = ParseChannel("sms")
	assert.Error(t, err)
}
