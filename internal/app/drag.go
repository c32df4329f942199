package app

import (
	"context"

	"github.com/hylla/kanboard/internal/domain"
)

// BeginDrag starts a drag session for cardID, replacing any session in progress.
// The session holds a copy of the card as it was in the snapshot.
func (b *Board) BeginDrag(cardID int64) (domain.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	card, ok := b.snapshot.Card(cardID)
	if !ok {
		return domain.Card{}, domain.ErrCardNotFound
	}
	b.dragged = &card
	return card, nil
}

// DraggedCard returns the card of the active drag session.
func (b *Board) DraggedCard() (domain.Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dragged == nil {
		return domain.Card{}, false
	}
	return *b.dragged, true
}

// Drop moves the dragged card into columnID. The session ends whether or not the move succeeds.
func (b *Board) Drop(ctx context.Context, columnID int64) (Result, error) {
	b.mu.Lock()
	dragged := b.dragged
	b.dragged = nil
	b.mu.Unlock()
	if dragged == nil {
		return Result{Snapshot: b.Snapshot(), Noop: true}, ErrNoDragSession
	}
	return b.MoveCard(ctx, dragged.ID, columnID)
}

// EndDrag abandons the drag session without moving anything.
func (b *Board) EndDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dragged = nil
}
