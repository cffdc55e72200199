package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notification-center/internal/model"
)

func TestEffectiveChannelIsGlobalAndCategory(t *testing.T) {
	bools := []bool{false, true}
	for _, ge := range bools {
		for _, gw := range bools {
			for _, pe := range bools {
				for _, pw := range bools {
					g := model.GlobalSettings{EmailEnabled: ge, WebEnabled: gw}
					p := model.CategoryPreference{Category: "x", EmailEnabled: pe, WebEnabled: pw}

					assert.Equal(t, ge && pe, EffectiveChannel(g, &p, model.ChannelEmail))
					assert.Equal(t, gw && pw, EffectiveChannel(g, &p, model.ChannelWeb))
				}
			}
		}
	}
}

func TestEffectiveChannelWithoutRecordUsesDefaults(t *testing.T) {
	g := model.GlobalSettings{EmailEnabled: true, WebEnabled: true}
	assert.True(t, EffectiveChannel(g, nil, model.ChannelEmail))
	assert.True(t, EffectiveChannel(g, nil, model.ChannelWeb))

	g.WebEnabled = false
	assert.False(t, EffectiveChannel(g, nil, model.ChannelWeb))
}

func TestGlobalSwitchCapsCategory(t *testing.T) {
	g := model.GlobalSettings{EmailEnabled: false, WebEnabled: true}
	p := model.CategoryPreference{Category: "x", EmailEnabled: true, WebEnabled: true}

	assert.False(t, EffectiveChannel(g, &p, model.ChannelEmail))
	assert.True(t, EffectiveChannel(g, &p, model.ChannelWeb))
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		global   model.GlobalSettings
		severity Severity
		text     string
	}{
		{"both on", model.GlobalSettings{EmailEnabled: true, WebEnabled: true}, SeveritySuccess, "All notifications enabled"},
		{"email only", model.GlobalSettings{EmailEnabled: true}, SeverityWarning, "Email notifications only"},
		{"web only", model.GlobalSettings{WebEnabled: true}, SeverityWarning, "In-app notifications only"},
		{"both off", model.GlobalSettings{}, SeverityError, "All notifications disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := AggregateStatus(tt.global)
			assert.Equal(t, tt.severity, st.Severity)
			assert.Equal(t, tt.text, st.Text)
		})
	}
}

func TestFilterApplicable(t *testing.T) {
	cats := []model.CategoryTag{"new_release", "moderation", "content_report", "milestone"}
	rules := DefaultAccessRules()

	assert.Equal(t,
		[]model.CategoryTag{"new_release", "milestone"},
		FilterApplicable(cats, model.RoleMember, rules))
	assert.Equal(t,
		[]model.CategoryTag{"new_release", "moderation", "milestone"},
		FilterApplicable(cats, model.RoleModerator, rules))
	assert.Equal(t, cats, FilterApplicable(cats, model.RoleAdmin, rules))
	assert.Empty(t, FilterApplicable(nil, model.RoleAdmin, rules))
}

func TestAccessRulesFromConfig(t *testing.T) {
	assert.Equal(t, DefaultAccessRules(), AccessRulesFromConfig(nil))

	rules := AccessRulesFromConfig(map[string][]string{"beta": {"admin"}})
	assert.False(t, rules.Allows("beta", model.RoleMember))
	assert.True(t, rules.Allows("beta", model.RoleAdmin))
	assert.True(t, rules.Allows("content_report", model.RoleMember))
}

func TestResolveAll(t *testing.T) {
	s := NewStore()
	s.reset("u1")
	s.setGlobal(model.GlobalSettings{EmailEnabled: true, WebEnabled: false})
	s.setCategories([]model.Category{
		{Tag: "new_release", Label: "New releases"},
		{Tag: "system_alert", Label: "System alerts"},
		{Tag: "milestone", Label: "Milestones"},
	})
	s.setPreferences([]model.CategoryPreference{
		{Category: "milestone", EmailEnabled: false, WebEnabled: true},
	})

	got := ResolveAll(s, model.RoleMember, DefaultAccessRules())
	assert.Equal(t, []Resolution{
		{Category: "new_release", Label: "New releases", Email: true, Web: false},
		{Category: "milestone", Label: "Milestones", Email: false, Web: false, Explicit: true},
	}, got)
}
