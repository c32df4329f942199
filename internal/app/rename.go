package app

import (
	"errors"
	"strings"

	"github.com/hylla/kanboard/internal/domain"
)

// RenameState is the phase of an inline column rename.
type RenameState int

const (
	RenameIdle RenameState = iota
	RenameEditing
	RenameSubmitting
)

// RenameCommit is what Commit decided.
type RenameCommit int

const (
	// RenameRejected keeps editing; the draft failed validation.
	RenameRejected RenameCommit = iota
	// RenameUnchanged closes the editor without a request.
	RenameUnchanged
	// RenameSubmit means the caller must send Title for ColumnID.
	RenameSubmit
)

// RenameSession is the inline rename state machine for one column at a time.
// It is a value type so UI models can copy it freely.
type RenameSession struct {
	state    RenameState
	columnID int64
	original string
	draft    string
}

// Begin enters editing for column with its current title as the draft.
func (s *RenameSession) Begin(column domain.Column) {
	s.state = RenameEditing
	s.columnID = column.ID
	s.original = column.Title
	s.draft = column.Title
}

// State returns the current phase.
func (s RenameSession) State() RenameState {
	return s.state
}

// Active reports whether a rename is being edited or submitted.
func (s RenameSession) Active() bool {
	return s.state != RenameIdle
}

// ColumnID returns the column being renamed.
func (s RenameSession) ColumnID() int64 {
	return s.columnID
}

// Original returns the title the column had when editing began.
func (s RenameSession) Original() string {
	return s.original
}

// Draft returns the text typed so far.
func (s RenameSession) Draft() string {
	return s.draft
}

// SetDraft replaces the draft while editing.
func (s *RenameSession) SetDraft(draft string) {
	if s.state == RenameEditing {
		s.draft = draft
	}
}

// Commit validates the draft against snapshot. On RenameSubmit the session
// moves to submitting and the caller sends the returned title; Resolve ends it.
func (s *RenameSession) Commit(snapshot domain.Snapshot) (RenameCommit, string, error) {
	if s.state != RenameEditing {
		return RenameRejected, "", ErrRenameInactive
	}
	title, changed, err := domain.CheckColumnRename(snapshot, s.columnID, s.original, s.draft)
	if err != nil {
		return RenameRejected, "", renameValidationFailure(err)
	}
	if !changed {
		s.reset()
		return RenameUnchanged, title, nil
	}
	s.state = RenameSubmitting
	s.draft = title
	return RenameSubmit, title, nil
}

// Cancel abandons editing and returns the original title to display.
func (s *RenameSession) Cancel() string {
	original := s.original
	s.reset()
	return original
}

// Resolve finishes a submitted rename. It returns the title to display until
// the next snapshot arrives: the new one on success, the original on failure.
func (s *RenameSession) Resolve(err error) string {
	display := s.draft
	if err != nil {
		display = s.original
	}
	s.reset()
	return display
}

func (s *RenameSession) reset() {
	*s = RenameSession{}
}

func renameValidationFailure(err error) *Failure {
	switch {
	case errors.Is(err, domain.ErrInvalidTitle):
		return validationFailure(OpRenameColumn, "Column title cannot be empty", err)
	case errors.Is(err, domain.ErrDuplicateColumnTitle):
		return validationFailure(OpRenameColumn, "A column with this title already exists", err)
	case errors.Is(err, domain.ErrColumnNotFound):
		return validationFailure(OpRenameColumn, "Column no longer exists", err)
	default:
		return validationFailure(OpRenameColumn, strings.TrimSpace(err.Error()), err)
	}
}
