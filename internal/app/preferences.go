package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hylla/kanboard/internal/domain"
)

// ThemePreferenceKey is the preference key holding the theme.
const ThemePreferenceKey = "kanban-theme"

// Preferences reads and writes local client preferences.
type Preferences struct {
	store    PreferenceStore
	fallback domain.Theme
	logger   Logger
}

// NewPreferences builds preferences over store. fallback applies when nothing valid is stored.
func NewPreferences(store PreferenceStore, fallback domain.Theme, logger Logger) *Preferences {
	if fallback == "" {
		fallback = domain.ThemeLight
	}
	return &Preferences{store: store, fallback: fallback, logger: logger}
}

// Theme returns the stored theme or the fallback.
func (p *Preferences) Theme(ctx context.Context) domain.Theme {
	if p == nil {
		return domain.ThemeLight
	}
	if p.store == nil {
		return p.fallback
	}
	raw, err := p.store.GetPreference(ctx, ThemePreferenceKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && p.logger != nil {
			p.logger.Warn("theme preference read failed", "err", err)
		}
		return p.fallback
	}
	theme, err := domain.ParseTheme(raw)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("ignoring invalid theme preference", "value", raw)
		}
		return p.fallback
	}
	return theme
}

// SetTheme persists theme.
func (p *Preferences) SetTheme(ctx context.Context, theme domain.Theme) error {
	if _, err := domain.ParseTheme(string(theme)); err != nil {
		return err
	}
	if p == nil || p.store == nil {
		return nil
	}
	if err := p.store.SetPreference(ctx, ThemePreferenceKey, string(theme)); err != nil {
		return fmt.Errorf("persist theme preference: %w", err)
	}
	return nil
}

// ToggleTheme flips current and persists the result.
func (p *Preferences) ToggleTheme(ctx context.Context, current domain.Theme) (domain.Theme, error) {
	next := current.Toggle()
	if err := p.SetTheme(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}
