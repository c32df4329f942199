package tui

import (
	"time"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

type Option func(*Model)

// WithPreferences sets the store the theme is read from and toggled into.
func WithPreferences(prefs *app.Preferences) Option {
	return func(m *Model) {
		m.prefs = prefs
	}
}

// WithActivity sets the source for the activity log overlay.
func WithActivity(reader app.ActivityReader) Option {
	return func(m *Model) {
		m.activity = reader
	}
}

// WithTheme sets the initial theme before preferences are read.
func WithTheme(theme domain.Theme) Option {
	return func(m *Model) {
		if parsed, err := domain.ParseTheme(string(theme)); err == nil {
			m.theme = parsed
		}
	}
}

// WithNoticeTTL sets how long success and error notices stay visible.
// A zero duration keeps notices until replaced.
func WithNoticeTTL(success, failure time.Duration) Option {
	return func(m *Model) {
		m.successTTL = max(0, success)
		m.errorTTL = max(0, failure)
	}
}

// WithConfirmDelete toggles the confirmation modal for destructive actions.
func WithConfirmDelete(enabled bool) Option {
	return func(m *Model) {
		m.confirmDelete = enabled
	}
}

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard replaces the clipboard writer used to copy card notes.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithClock replaces the time source used for double-click detection.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}
