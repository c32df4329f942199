package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/hylla/kanboard/internal/domain"
)

// Operation names recorded in activity entries and Failure.Op.
const (
	OpLoadBoard      = "load_board"
	OpAddCard        = "add_card"
	OpEditCard       = "edit_card"
	OpMoveCard       = "move_card"
	OpDeleteCard     = "delete_card"
	OpAddColumn      = "add_column"
	OpRenameColumn   = "rename_column"
	OpDeleteColumn   = "delete_column"
	OpGeneratePrompt = "generate_prompt"
)

var (
	// ErrPromptCancelled marks a generation aborted because its card went away.
	ErrPromptCancelled = errors.New("prompt generation cancelled")
	// ErrPromptInFlight rejects a second generation for the same card.
	ErrPromptInFlight = errors.New("prompt generation already in progress")
)

// BoardConfig holds optional collaborators for a Board.
type BoardConfig struct {
	Logger   Logger
	Activity ActivityRecorder
	Clock    Clock
}

// Result is the outcome of a successful board operation.
type Result struct {
	Notice   string
	Snapshot domain.Snapshot
	// Noop is set when nothing was sent to the server.
	Noop bool
	// ReloadErr is set when the mutation succeeded but the follow-up fetch failed.
	ReloadErr error
	// Seq is the load sequence Snapshot was taken at; zero before the first load.
	Seq uint64
}

// LoadResult is the outcome of one snapshot fetch.
type LoadResult struct {
	Snapshot domain.Snapshot
	Seq      uint64
	// Stale is set when a newer fetch was already applied; Snapshot then holds that newer state.
	Stale bool
}

// generation tracks one in-flight prompt request.
type generation struct {
	token  uint64
	cancel context.CancelCauseFunc
}

// Board owns the board snapshot and mediates every operation against the API.
// Each mutation is a single request followed by a full reload.
type Board struct {
	api      API
	logger   Logger
	activity ActivityRecorder
	clock    Clock

	mu           sync.Mutex
	snapshot     domain.Snapshot
	loaded       bool
	issuedSeq    uint64
	appliedSeq   uint64
	dragged      *domain.Card
	generating   map[int64]generation
	nextGenToken uint64
	closed       bool
}

// NewBoard constructs a board client over api.
func NewBoard(api API, cfg BoardConfig) *Board {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Board{
		api:        api,
		logger:     cfg.Logger,
		activity:   cfg.Activity,
		clock:      cfg.Clock,
		generating: map[int64]generation{},
	}
}

// Snapshot returns a copy of the last applied snapshot.
func (b *Board) Snapshot() domain.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot.Clone()
}

// current returns the last applied snapshot with its load sequence.
func (b *Board) current() (domain.Snapshot, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot.Clone(), b.appliedSeq
}

// Loaded reports whether any fetch has been applied yet.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Load fetches the full snapshot and replaces local state with it.
// On failure the previous snapshot is kept.
func (b *Board) Load(ctx context.Context) (LoadResult, error) {
	b.mu.Lock()
	b.issuedSeq++
	seq := b.issuedSeq
	b.mu.Unlock()

	columns, err := b.api.ListColumns(ctx)
	if err != nil {
		failure := requestFailure(OpLoadBoard, "Failed to load kanban board", "Failed to load columns", err)
		b.logWarn("board load failed", "seq", seq, "err", err)
		b.record(ctx, OpLoadBoard, failure.Notice, "", true)
		return LoadResult{}, failure
	}
	if columns == nil {
		columns = []domain.Column{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.appliedSeq {
		b.logDebug("discarding stale board snapshot", "seq", seq, "applied_seq", b.appliedSeq)
		return LoadResult{Snapshot: b.snapshot.Clone(), Seq: b.appliedSeq, Stale: true}, nil
	}
	b.appliedSeq = seq
	b.snapshot = domain.Snapshot{Columns: columns}
	b.loaded = true
	if b.dragged != nil {
		if _, ok := b.snapshot.Card(b.dragged.ID); !ok {
			b.dragged = nil
		}
	}
	b.logDebug("board snapshot applied", "seq", seq, "columns", len(columns), "cards", b.snapshot.CardCount())
	return LoadResult{Snapshot: b.snapshot.Clone(), Seq: seq}, nil
}

// AddCard creates a card at the end of columnID.
func (b *Board) AddCard(ctx context.Context, columnID int64, title, notes string) (Result, error) {
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return Result{}, validationFailure(OpAddCard, "Please enter a task title", err)
	}
	if _, err := b.api.CreateCard(ctx, columnID, title, domain.NormalizeNotes(notes)); err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpAddCard, "Failed to add task", "Failed to create card", err), title)
	}
	return b.finish(ctx, OpAddCard, "Task added successfully", title), nil
}

// EditCard replaces a card's title and notes.
func (b *Board) EditCard(ctx context.Context, cardID int64, title, notes string) (Result, error) {
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return Result{}, validationFailure(OpEditCard, "Please enter a task title", err)
	}
	if _, err := b.api.UpdateCard(ctx, cardID, title, domain.NormalizeNotes(notes)); err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpEditCard, "Failed to update task", "Failed to update card", err), title)
	}
	return b.finish(ctx, OpEditCard, "Task updated successfully", title), nil
}

// MoveCard sends cardID to the end of columnID.
// It is a no-op when columnID is not in the local snapshot.
func (b *Board) MoveCard(ctx context.Context, cardID, columnID int64) (Result, error) {
	snapshot, seq := b.current()
	column, ok := snapshot.Column(columnID)
	if !ok {
		b.logDebug("move skipped: destination column not loaded", "card_id", cardID, "column_id", columnID)
		return Result{Snapshot: snapshot, Noop: true, Seq: seq}, nil
	}
	target := cardTarget(snapshot, cardID)
	if _, err := b.api.MoveCard(ctx, cardID, columnID, column.NextMovePosition()); err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpMoveCard, "Failed to move card", "Failed to move card", err), target)
	}
	return b.finish(ctx, OpMoveCard, "", target+" → "+column.Title), nil
}

// DeleteCard removes a card and aborts any prompt generation running for it.
// Confirmation is the caller's concern.
func (b *Board) DeleteCard(ctx context.Context, cardID int64) (Result, error) {
	target := cardTarget(b.Snapshot(), cardID)
	b.cancelGeneration(cardID)
	if err := b.api.DeleteCard(ctx, cardID); err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpDeleteCard, "Failed to delete task", "Failed to delete card", err), target)
	}
	b.mu.Lock()
	if b.dragged != nil && b.dragged.ID == cardID {
		b.dragged = nil
	}
	b.mu.Unlock()
	return b.finish(ctx, OpDeleteCard, "Task deleted successfully", target), nil
}

// AddColumn appends a column.
func (b *Board) AddColumn(ctx context.Context, title string) (Result, error) {
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return Result{}, validationFailure(OpAddColumn, "Please enter a column title", err)
	}
	if _, err := b.api.CreateColumn(ctx, title); err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpAddColumn, "Failed to add column", "Failed to create column", err), title)
	}
	return b.finish(ctx, OpAddColumn, "Column added successfully", title), nil
}

// DeleteColumn removes a column; the server relocates its cards.
// The success notice is the server's message.
func (b *Board) DeleteColumn(ctx context.Context, columnID int64) (Result, error) {
	target := columnTarget(b.Snapshot(), columnID)
	message, err := b.api.DeleteColumn(ctx, columnID)
	if err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpDeleteColumn, "Failed to delete column", "Failed to delete column", err), target)
	}
	if message == "" {
		message = "Column deleted successfully"
	}
	return b.finish(ctx, OpDeleteColumn, message, target), nil
}

// RenameColumn validates and applies a new column title.
// An unchanged title returns a Noop result without a request.
func (b *Board) RenameColumn(ctx context.Context, columnID int64, title string) (Result, error) {
	snapshot, seq := b.current()
	column, ok := snapshot.Column(columnID)
	if !ok {
		return Result{}, renameValidationFailure(domain.ErrColumnNotFound)
	}
	current := column.Title
	title, changed, err := domain.CheckColumnRename(snapshot, columnID, current, title)
	if err != nil {
		return Result{}, renameValidationFailure(err)
	}
	if !changed {
		return Result{Snapshot: snapshot, Noop: true, Seq: seq}, nil
	}
	if _, err := b.api.RenameColumn(ctx, columnID, title); err != nil {
		return Result{}, b.fail(ctx, requestFailure(OpRenameColumn, "Failed to rename column", "Failed to rename column", err), current)
	}
	return b.finish(ctx, OpRenameColumn, "Column renamed successfully", current+" → "+title), nil
}

// GeneratePrompt asks the server to append an AI prompt to the card notes.
// The request is cancelled if the card is deleted or the board is closed meanwhile.
func (b *Board) GeneratePrompt(ctx context.Context, cardID int64) (Result, error) {
	target := cardTarget(b.Snapshot(), cardID)
	genCtx, token, err := b.beginGeneration(ctx, cardID)
	switch {
	case errors.Is(err, ErrPromptInFlight):
		return Result{}, validationFailure(OpGeneratePrompt, "AI prompt generation already in progress", err)
	case err != nil:
		return Result{}, validationFailure(OpGeneratePrompt, "Failed to generate AI prompt: "+err.Error(), err)
	}
	err = b.api.GeneratePrompt(genCtx, cardID)
	cause := context.Cause(genCtx)
	b.endGeneration(cardID, token)
	if err != nil {
		if errors.Is(cause, ErrPromptCancelled) || errors.Is(cause, ErrBoardClosed) {
			b.logInfo("prompt generation cancelled", "card_id", cardID, "cause", cause)
			return Result{}, &Failure{Op: OpGeneratePrompt, Notice: "AI prompt generation cancelled", Err: errors.Join(ErrPromptCancelled, err)}
		}
		return Result{}, b.fail(ctx, requestFailure(OpGeneratePrompt, "Failed to generate AI prompt", "Failed to generate prompt", err), target)
	}
	return b.finish(ctx, OpGeneratePrompt, "AI prompt generated and added to notes!", target), nil
}

// Generating returns the ids of cards with a prompt request in flight.
func (b *Board) Generating() map[int64]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int64]bool, len(b.generating))
	for id := range b.generating {
		out[id] = true
	}
	return out
}

// Close cancels every in-flight prompt generation.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, gen := range b.generating {
		gen.cancel(ErrBoardClosed)
		delete(b.generating, id)
	}
}

func (b *Board) beginGeneration(ctx context.Context, cardID int64) (context.Context, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, 0, ErrBoardClosed
	}
	if _, ok := b.generating[cardID]; ok {
		return nil, 0, ErrPromptInFlight
	}
	genCtx, cancel := context.WithCancelCause(ctx)
	b.nextGenToken++
	b.generating[cardID] = generation{token: b.nextGenToken, cancel: cancel}
	return genCtx, b.nextGenToken, nil
}

func (b *Board) endGeneration(cardID int64, token uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen, ok := b.generating[cardID]
	if !ok || gen.token != token {
		return
	}
	gen.cancel(nil)
	delete(b.generating, cardID)
}

func (b *Board) cancelGeneration(cardID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen, ok := b.generating[cardID]; ok {
		gen.cancel(ErrPromptCancelled)
		delete(b.generating, cardID)
	}
}

// finish reloads after a successful mutation and records it.
func (b *Board) finish(ctx context.Context, op, notice, target string) Result {
	b.logInfo("board mutation complete", "op", op, "target", target)
	b.record(ctx, op, successSummary(op, notice), target, false)
	res := Result{Notice: notice}
	loaded, err := b.Load(ctx)
	if err != nil {
		res.ReloadErr = err
		res.Snapshot, res.Seq = b.current()
		return res
	}
	res.Snapshot = loaded.Snapshot
	res.Seq = loaded.Seq
	return res
}

// fail logs and records a failed request and returns it unchanged.
func (b *Board) fail(ctx context.Context, failure *Failure, target string) error {
	b.logWarn("board mutation failed", "op", failure.Op, "target", target, "err", failure.Err)
	b.record(ctx, failure.Op, failure.Notice, target, true)
	return failure
}

func (b *Board) record(ctx context.Context, op, summary, target string, failed bool) {
	if b.activity == nil {
		return
	}
	entry := ActivityEntry{At: b.clock().UTC(), Op: op, Summary: summary, Target: target, Failed: failed}
	if err := b.activity.RecordActivity(context.WithoutCancel(ctx), entry); err != nil {
		b.logWarn("activity record failed", "op", op, "err", err)
	}
}

func successSummary(op, notice string) string {
	if notice != "" {
		return notice
	}
	switch op {
	case OpMoveCard:
		return "Card moved"
	default:
		return op
	}
}

func cardTarget(s domain.Snapshot, cardID int64) string {
	if card, ok := s.Card(cardID); ok {
		return card.Title
	}
	return "card " + strconv.FormatInt(cardID, 10)
}

func columnTarget(s domain.Snapshot, columnID int64) string {
	if column, ok := s.Column(columnID); ok {
		return column.Title
	}
	return "column " + strconv.FormatInt(columnID, 10)
}

func (b *Board) logDebug(msg string, keyvals ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keyvals...)
	}
}

func (b *Board) logInfo(msg string, keyvals ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keyvals...)
	}
}

func (b *Board) logWarn(msg string, keyvals ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keyvals...)
	}
}
