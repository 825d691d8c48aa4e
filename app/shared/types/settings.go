package types

import "maps"

// NotificationPreferences controls in-game alerts.
type NotificationPreferences struct {
	Enabled            bool `json:"enabled"`
	SubstitutionAlerts bool `json:"substitutionAlerts"`
	Sound              bool `json:"sound"`
}

// AppSettings is the single settings document. It is reset, never deleted.
type AppSettings struct {
	Language                     string                  `json:"language"`
	Theme                        string                  `json:"theme"`
	DefaultNumberOfPeriods       int                     `json:"defaultNumberOfPeriods"`
	DefaultPeriodDurationMinutes int                     `json:"defaultPeriodDurationMinutes"`
	DefaultSubIntervalMinutes    int                     `json:"defaultSubIntervalMinutes"`
	FeatureFlags                 map[string]bool         `json:"featureFlags,omitempty"`
	Notifications                NotificationPreferences `json:"notifications"`
	CurrentGameID                string                  `json:"currentGameId,omitempty"`
	LastHomeTeamName             string                  `json:"lastHomeTeamName,omitempty"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() AppSettings {
	return AppSettings{
		Language:                     "en",
		Theme:                        "system",
		DefaultNumberOfPeriods:       2,
		DefaultPeriodDurationMinutes: 10,
		DefaultSubIntervalMinutes:    5,
		FeatureFlags:                 map[string]bool{},
		Notifications: NotificationPreferences{
			Enabled:            true,
			SubstitutionAlerts: true,
			Sound:              true,
		},
	}
}

// Clone returns a deep copy of s.
func (s AppSettings) Clone() AppSettings {
	if s.FeatureFlags != nil {
		s.FeatureFlags = maps.Clone(s.FeatureFlags)
	}
	return s
}

// SettingsPatch is a merge-patch over AppSettings. Nil fields are left untouched.
type SettingsPatch struct {
	Language                     *string                  `json:"language,omitempty"`
	Theme                        *string                  `json:"theme,omitempty"`
	DefaultNumberOfPeriods       *int                     `json:"defaultNumberOfPeriods,omitempty"`
	DefaultPeriodDurationMinutes *int                     `json:"defaultPeriodDurationMinutes,omitempty"`
	DefaultSubIntervalMinutes    *int                     `json:"defaultSubIntervalMinutes,omitempty"`
	FeatureFlags                 map[string]bool          `json:"featureFlags,omitempty"`
	Notifications                *NotificationPreferences `json:"notifications,omitempty"`
	CurrentGameID                *string                  `json:"currentGameId,omitempty"`
	LastHomeTeamName             *string                  `json:"lastHomeTeamName,omitempty"`
}

// Apply merges the patch into s and returns the result.
// Feature flags merge key by key.
func (p SettingsPatch) Apply(s AppSettings) AppSettings {
	out := s.Clone()
	if p.Language != nil {
		out.Language = *p.Language
	}
	if p.Theme != nil {
		out.Theme = *p.Theme
	}
	if p.DefaultNumberOfPeriods != nil {
		out.DefaultNumberOfPeriods = *p.DefaultNumberOfPeriods
	}
	if p.DefaultPeriodDurationMinutes != nil {
		out.DefaultPeriodDurationMinutes = *p.DefaultPeriodDurationMinutes
	}
	if p.DefaultSubIntervalMinutes != nil {
		out.DefaultSubIntervalMinutes = *p.DefaultSubIntervalMinutes
	}
	if len(p.FeatureFlags) > 0 {
		if out.FeatureFlags == nil {
			out.FeatureFlags = make(map[string]bool, len(p.FeatureFlags))
		}
		maps.Copy(out.FeatureFlags, p.FeatureFlags)
	}
	if p.Notifications != nil {
		out.Notifications = *p.Notifications
	}
	if p.CurrentGameID != nil {
		out.CurrentGameID = *p.CurrentGameID
	}
	if p.LastHomeTeamName != nil {
		out.LastHomeTeamName = *p.LastHomeTeamName
	}
	return out
}
