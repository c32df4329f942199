package app

import (
	"context"
	"time"

	"github.com/hylla/kanboard/internal/domain"
)

// API is the remote board transport. Implementations hold no board state.
type API interface {
	ListColumns(context.Context) ([]domain.Column, error)
	CreateCard(ctx context.Context, columnID int64, title, notes string) (domain.Card, error)
	UpdateCard(ctx context.Context, cardID int64, title, notes string) (domain.Card, error)
	MoveCard(ctx context.Context, cardID, columnID int64, position float64) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID int64) error
	GeneratePrompt(ctx context.Context, cardID int64) error
	CreateColumn(ctx context.Context, title string) (domain.Column, error)
	RenameColumn(ctx context.Context, columnID int64, title string) (domain.Column, error)
	DeleteColumn(ctx context.Context, columnID int64) (string, error)
}

// Logger receives board lifecycle events.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// ActivityEntry is one recorded board action.
type ActivityEntry struct {
	At      time.Time
	Op      string
	Summary string
	Target  string
	Failed  bool
}

// ActivityRecorder persists activity entries.
type ActivityRecorder interface {
	RecordActivity(context.Context, ActivityEntry) error
}

// ActivityReader lists the most recent activity entries, newest first.
type ActivityReader interface {
	ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error)
}

// PreferenceStore is a string key/value store for local client preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Clock returns the current time.
type Clock func() time.Time
