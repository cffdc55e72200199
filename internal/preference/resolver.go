package preference

import "github.com/nhle/notification-center/internal/model"

// Severity grades an aggregate status for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Status is the human-readable summary of the global switches.
type Status struct {
	Text     string
	Severity Severity
}

// EffectiveChannel resolves whether channel c is active for a category.
// A nil pref stands for a category without a record and resolves as the
// permissive default. The global switch always caps the category switch.
func EffectiveChannel(
	global model.GlobalSettings,
	pref *model.CategoryPreference,
	c model.Channel,
) bool {
	categoryOn := true
	if pref != nil {
		categoryOn = pref.Enabled(c)
	}
	return global.Enabled(c) && categoryOn
}

// AggregateStatus summarizes the global switches. Per-category state is
// deliberately not consulted: it can only narrow what global allows.
func AggregateStatus(global model.GlobalSettings) Status {
	switch {
	case global.EmailEnabled && global.WebEnabled:
		return Status{Text: "All notifications enabled", Severity: SeveritySuccess}
	case global.EmailEnabled:
		return Status{Text: "Email notifications only", Severity: SeverityWarning}
	case global.WebEnabled:
		return Status{Text: "In-app notifications only", Severity: SeverityWarning}
	default:
		return Status{Text: "All notifications disabled", Severity: SeverityError}
	}
}

// AccessRules maps a category to the roles allowed to configure it.
// Categories without an entry are open to every role.
type AccessRules map[model.CategoryTag][]model.Role

// DefaultAccessRules restricts staff-facing categories.
func DefaultAccessRules() AccessRules {
	return AccessRules{
		"content_report": {model.RoleAdmin},
		"system_alert":   {model.RoleAdmin},
		"moderation":     {model.RoleAdmin, model.RoleModerator},
	}
}

// AccessRulesFromConfig converts the config map into AccessRules,
// falling back to DefaultAccessRules when none are configured.
func AccessRulesFromConfig(cfg map[string][]string) AccessRules {
	if len(cfg) == 0 {
		return DefaultAccessRules()
	}
	rules := make(AccessRules, len(cfg))
	for tag, roles := range cfg {
		for _, r := range roles {
			rules[model.CategoryTag(tag)] = append(rules[model.CategoryTag(tag)], model.Role(r))
		}
	}
	return rules
}

// Allows reports whether role may act on tag.
func (r AccessRules) Allows(tag model.CategoryTag, role model.Role) bool {
	allowed, restricted := r[tag]
	if !restricted {
		return true
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

// FilterApplicable keeps the categories the viewer can act on, in order.
func FilterApplicable(
	categories []model.CategoryTag,
	role model.Role,
	rules AccessRules,
) []model.CategoryTag {
	out := make([]model.CategoryTag, 0, len(categories))
	for _, tag := range categories {
		if rules.Allows(tag, role) {
			out = append(out, tag)
		}
	}
	return out
}

// Resolution is the effective state of both channels for one category.
type Resolution struct {
	Category model.CategoryTag
	Label    string
	Email    bool
	Web      bool

	// Explicit is false when the category has no stored record yet.
	Explicit bool
}

// ResolveAll computes the effective matrix for the categories the
// viewer may configure, for the settings surface.
func ResolveAll(s *Store, role model.Role, rules AccessRules) []Resolution {
	global := s.Global()
	cats := s.Categories()

	labels := make(map[model.CategoryTag]string, len(cats))
	tags := make([]model.CategoryTag, len(cats))
	for i, c := range cats {
		labels[c.Tag] = c.Label
		tags[i] = c.Tag
	}

	applicable := FilterApplicable(tags, role, rules)
	out := make([]Resolution, 0, len(applicable))
	for _, tag := range applicable {
		pref := s.Explicit(tag)
		out = append(out, Resolution{
			Category: tag,
			Label:    labels[tag],
			Email:    EffectiveChannel(global, pref, model.ChannelEmail),
			Web:      EffectiveChannel(global, pref, model.ChannelWeb),
			Explicit: pref != nil,
		})
	}
	return out
}
