package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KindPreferences holds the stored per-kind notification switches. Nil
// fields fall back to the defaults.
type KindPreferences struct {
	Push       *bool `json:"push,omitempty"`
	Email      *bool `json:"email,omitempty"`
	SMS        *bool `json:"sms,omitempty"`
	DaysBefore *int  `json:"days_before,omitempty"`
}

// QuietHoursPreferences holds the stored quiet hours window.
type QuietHoursPreferences struct {
	Enabled   *bool   `json:"enabled,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

// NotificationPreferences is the user-editable, partially filled preference
// document persisted with the user.
type NotificationPreferences struct {
	PushEnabled  *bool                                 `json:"push_enabled,omitempty"`
	EmailEnabled *bool                                 `json:"email_enabled,omitempty"`
	SMSEnabled   *bool                                 `json:"sms_enabled,omitempty"`
	QuietHours   *QuietHoursPreferences                `json:"quiet_hours,omitempty"`
	Types        map[NotificationKind]*KindPreferences `json:"notification_types,omitempty"`
}

// KindSettings are the effective switches for one notification kind.
type KindSettings struct {
	Push       bool `json:"push"`
	Email      bool `json:"email"`
	SMS        bool `json:"sms"`
	DaysBefore int  `json:"days_before,omitempty"`
}

// QuietHours is the effective quiet hours window.
type QuietHours struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

// ResolvedPreferences are the effective preferences after merging stored
// values over the defaults.
type ResolvedPreferences struct {
	PushEnabled  bool                              `json:"push_enabled"`
	EmailEnabled bool                              `json:"email_enabled"`
	SMSEnabled   bool                              `json:"sms_enabled"`
	QuietHours   QuietHours                        `json:"quiet_hours"`
	Types        map[NotificationKind]KindSettings `json:"notification_types"`
}

// DefaultDaysBefore is how far ahead reminders are sent by default.
const DefaultDaysBefore = 3

// DefaultPreferences returns the preferences applied to users who never
// changed anything.
func DefaultPreferences() ResolvedPreferences {
	return ResolvedPreferences{
		PushEnabled:  true,
		EmailEnabled: true,
		SMSEnabled:   false,
		QuietHours: QuietHours{
			Enabled:   false,
			StartTime: "22:00",
			EndTime:   "08:00",
			Timezone:  "Europe/Istanbul",
		},
		Types: map[NotificationKind]KindSettings{
			KindSubscriptionReminder: {Push: true, Email: true, DaysBefore: DefaultDaysBefore},
			KindBillDue:              {Push: true, Email: true, DaysBefore: DefaultDaysBefore},
			KindBudgetAlert:          {Push: true},
			KindRecommendations:      {Push: true, Email: true},
		},
	}
}

// ResolvePreferences merges stored over the defaults field by field. An
// explicit false always wins over a default true.
func ResolvePreferences(stored *NotificationPreferences) ResolvedPreferences {
	out := DefaultPreferences()
	if stored == nil {
		return out
	}

	mergeBool(&out.PushEnabled, stored.PushEnabled)
	mergeBool(&out.EmailEnabled, stored.EmailEnabled)
	mergeBool(&out.SMSEnabled, stored.SMSEnabled)

	if qh := stored.QuietHours; qh != nil {
		mergeBool(&out.QuietHours.Enabled, qh.Enabled)
		mergeString(&out.QuietHours.StartTime, qh.StartTime)
		mergeString(&out.QuietHours.EndTime, qh.EndTime)
		mergeString(&out.QuietHours.Timezone, qh.Timezone)
	}

	for kind, kp := range stored.Types {
		if kp == nil {
			continue
		}
		settings := out.Types[kind]
		mergeBool(&settings.Push, kp.Push)
		mergeBool(&settings.Email, kp.Email)
		mergeBool(&settings.SMS, kp.SMS)
		if kp.DaysBefore != nil && *kp.DaysBefore > 0 {
			settings.DaysBefore = *kp.DaysBefore
		}
		out.Types[kind] = settings
	}

	return out
}

func mergeBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func mergeString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

// Channels returns the channels a notification of kind goes out on, in a
// fixed push/email/sms order.
func (p ResolvedPreferences) Channels(kind NotificationKind) []Channel {
	settings, ok := p.Types[kind]
	if !ok {
		return nil
	}
	var channels []Channel
	if settings.Push && p.PushEnabled {
		channels = append(channels, ChannelPush)
	}
	if settings.Email && p.EmailEnabled {
		channels = append(channels, ChannelEmail)
	}
	if settings.SMS && p.SMSEnabled {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

// DaysBefore returns the reminder lead time for kind.
func (p ResolvedPreferences) DaysBefore(kind NotificationKind) int {
	if d := p.Types[kind].DaysBefore; d > 0 {
		return d
	}
	return DefaultDaysBefore
}

// InQuietHours reports whether t falls inside the enabled quiet hours
// window, evaluated in the window's timezone. Windows may wrap midnight.
func (p ResolvedPreferences) InQuietHours(t time.Time) bool {
	qh := p.QuietHours
	if !qh.Enabled {
		return false
	}

	start, err := parseClock(qh.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(qh.EndTime)
	if err != nil {
		return false
	}

	if loc, err := time.LoadLocation(qh.Timezone); err == nil {
		t = t.In(loc)
	}
	now := t.Hour()*60 + t.Minute()

	switch {
	case start < end:
		return now >= start && now < end
	case start > end:
		return now >= start || now < end
	default:
		return false
	}
}

// parseClock converts "HH:MM" to minutes after midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
