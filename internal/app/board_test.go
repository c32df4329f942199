package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/kanboard/internal/domain"
)

func newLoadedBoard(t *testing.T) (*Board, *fakeAPI, *recordingActivity) {
	t.Helper()
	api := newFakeAPI()
	activity := &recordingActivity{}
	board := NewBoard(api, BoardConfig{
		Activity: activity,
		Clock:    func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	if _, err := board.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return board, api, activity
}

// TestLoadReplacesSnapshot verifies a load replaces the whole snapshot.
func TestLoadReplacesSnapshot(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	if !board.Loaded() {
		t.Fatal("expected board to be loaded")
	}
	api.setColumns([]domain.Column{{ID: 9, Title: "Only"}})
	res, err := board.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Stale || len(res.Snapshot.Columns) != 1 || res.Snapshot.Columns[0].ID != 9 {
		t.Fatalf("unexpected load result %#v", res)
	}
	if got := board.Snapshot(); len(got.Columns) != 1 {
		t.Fatalf("expected replaced snapshot, got %#v", got)
	}
}

// TestLoadFailureKeepsPreviousSnapshot verifies a failed fetch leaves state untouched.
func TestLoadFailureKeepsPreviousSnapshot(t *testing.T) {
	board, api, activity := newLoadedBoard(t)
	api.errs["list"] = &fakeAPIError{status: 500, detail: "database locked"}

	_, err := board.Load(context.Background())
	if err == nil {
		t.Fatal("expected load error")
	}
	if NoticeFor(err) != "Failed to load kanban board: database locked" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
	if got := board.Snapshot(); len(got.Columns) != 2 {
		t.Fatalf("expected previous snapshot kept, got %#v", got)
	}
	if len(activity.entries) == 0 || !activity.entries[len(activity.entries)-1].Failed {
		t.Fatal("expected failed load to be recorded")
	}
}

// TestStaleLoadIsDiscarded verifies an older fetch finishing late cannot overwrite a newer snapshot.
func TestStaleLoadIsDiscarded(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	entered := make(chan struct{})
	gate := make(chan struct{})
	api.mu.Lock()
	api.listEntered, api.listGate = entered, gate
	api.mu.Unlock()

	type loadOutcome struct {
		res LoadResult
		err error
	}
	slow := make(chan loadOutcome, 1)
	go func() {
		res, err := board.Load(context.Background())
		slow <- loadOutcome{res: res, err: err}
	}()
	<-entered

	api.setColumns([]domain.Column{{ID: 1, Title: "To Do"}, {ID: 2, Title: "Done"}, {ID: 3, Title: "Newer"}})
	fresh, err := board.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fresh.Stale || len(fresh.Snapshot.Columns) != 3 {
		t.Fatalf("unexpected fresh load %#v", fresh)
	}

	close(gate)
	outcome := <-slow
	if outcome.err != nil {
		t.Fatalf("slow Load() error = %v", outcome.err)
	}
	if !outcome.res.Stale {
		t.Fatal("expected slow load to be reported stale")
	}
	if got := board.Snapshot(); len(got.Columns) != 3 {
		t.Fatalf("expected newer snapshot retained, got %d columns", len(got.Columns))
	}
}

// TestAddCardFlow verifies validation, the request, reload and notice.
func TestAddCardFlow(t *testing.T) {
	board, api, activity := newLoadedBoard(t)

	if _, err := board.AddCard(context.Background(), 1, "   ", "notes"); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	} else if NoticeFor(err) != "Please enter a task title" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
	if api.callCount("create_card") != 0 {
		t.Fatal("expected no request for blank title")
	}

	res, err := board.AddCard(context.Background(), 2, "  Ship it ", "  details ")
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if res.Notice != "Task added successfully" {
		t.Fatalf("unexpected notice %q", res.Notice)
	}
	column, _ := res.Snapshot.Column(2)
	if len(column.Cards) != 1 || column.Cards[0].Title != "Ship it" || column.Cards[0].Notes != "details" {
		t.Fatalf("expected reloaded snapshot with trimmed card, got %#v", column.Cards)
	}
	if len(activity.entries) == 0 || activity.entries[len(activity.entries)-1].Op != OpAddCard {
		t.Fatalf("expected add_card activity, got %#v", activity.entries)
	}
}

// TestAddCardServerErrorUsesFallback verifies a detail-less rejection uses the fallback reason.
func TestAddCardServerErrorUsesFallback(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	api.errs["create_card"] = &fakeAPIError{status: 500}
	_, err := board.AddCard(context.Background(), 1, "x", "")
	if NoticeFor(err) != "Failed to add task: Failed to create card" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
	api.errs["create_card"] = errors.New("connection refused")
	_, err = board.AddCard(context.Background(), 1, "x", "")
	if NoticeFor(err) != "Failed to add task: connection refused" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
}

// TestEditCardFlow verifies edit success and server errors.
func TestEditCardFlow(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	res, err := board.EditCard(context.Background(), 10, "Write more tests", "")
	if err != nil {
		t.Fatalf("EditCard() error = %v", err)
	}
	card, _ := res.Snapshot.Card(10)
	if card.Title != "Write more tests" || res.Notice != "Task updated successfully" {
		t.Fatalf("unexpected edit result %#v %q", card, res.Notice)
	}
	_, err = board.EditCard(context.Background(), 999, "x", "")
	if NoticeFor(err) != "Failed to update task: Card not found" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
	if api.callCount("update_card") != 2 {
		t.Fatalf("expected two update requests, got %d", api.callCount("update_card"))
	}
}

// TestMoveCardComputesPosition verifies the destination position is count + 1.
func TestMoveCardComputesPosition(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	res, err := board.MoveCard(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if api.lastMove != (moveCall{cardID: 10, columnID: 2, position: 1}) {
		t.Fatalf("unexpected move call %#v", api.lastMove)
	}
	if res.Notice != "" {
		t.Fatalf("expected no notice for move, got %q", res.Notice)
	}
	done, _ := res.Snapshot.Column(2)
	if len(done.Cards) != 1 || done.Cards[0].ID != 10 {
		t.Fatalf("expected card in destination after reload, got %#v", done.Cards)
	}
}

// TestMoveCardUnknownColumnIsNoop verifies no request is sent for a column missing locally.
func TestMoveCardUnknownColumnIsNoop(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	res, err := board.MoveCard(context.Background(), 10, 77)
	if err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if !res.Noop || api.callCount("move_card") != 0 {
		t.Fatalf("expected noop without request, got %#v calls=%d", res, api.callCount("move_card"))
	}
}

// TestResultsCarryLoadSequence verifies every result reports the load it reflects.
func TestResultsCarryLoadSequence(t *testing.T) {
	board, api, _ := newLoadedBoard(t)

	noop, err := board.MoveCard(context.Background(), 10, 77)
	if err != nil || noop.Seq != 1 {
		t.Fatalf("expected noop at seq 1, got %#v %v", noop, err)
	}
	added, err := board.AddCard(context.Background(), 1, "Ship", "")
	if err != nil || added.Seq != 2 {
		t.Fatalf("expected add reload at seq 2, got seq=%d %v", added.Seq, err)
	}

	api.errs["list"] = errors.New("offline")
	edited, err := board.EditCard(context.Background(), 10, "Write more tests", "")
	if err != nil {
		t.Fatalf("EditCard() error = %v", err)
	}
	if edited.ReloadErr == nil || edited.Seq != 2 {
		t.Fatalf("expected failed reload to keep seq 2, got seq=%d reload=%v", edited.Seq, edited.ReloadErr)
	}
}

// TestDragSessionLifecycle verifies begin, drop and slot clearing on failure.
func TestDragSessionLifecycle(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	if _, err := board.BeginDrag(404); !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
	card, err := board.BeginDrag(10)
	if err != nil || card.ID != 10 {
		t.Fatalf("BeginDrag() = %#v, %v", card, err)
	}
	if dragged, ok := board.DraggedCard(); !ok || dragged.Title != "Write tests" {
		t.Fatalf("unexpected dragged card %#v %t", dragged, ok)
	}

	api.errs["move_card"] = &fakeAPIError{status: 500, detail: "boom"}
	if _, err := board.Drop(context.Background(), 2); NoticeFor(err) != "Failed to move card: boom" {
		t.Fatalf("unexpected drop error %v", err)
	}
	if _, ok := board.DraggedCard(); ok {
		t.Fatal("expected drag slot cleared after failed drop")
	}
	if _, err := board.Drop(context.Background(), 2); !errors.Is(err, ErrNoDragSession) {
		t.Fatalf("expected ErrNoDragSession, got %v", err)
	}

	if _, err := board.BeginDrag(10); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	board.EndDrag()
	if _, ok := board.DraggedCard(); ok {
		t.Fatal("expected drag slot cleared by EndDrag")
	}
}

// TestDeleteCardFlow verifies delete success and notice.
func TestDeleteCardFlow(t *testing.T) {
	board, _, _ := newLoadedBoard(t)
	res, err := board.DeleteCard(context.Background(), 10)
	if err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	if res.Notice != "Task deleted successfully" || res.Snapshot.CardCount() != 0 {
		t.Fatalf("unexpected delete result %#v", res)
	}
}

// TestColumnAddAndDelete verifies column creation and server-message notices.
func TestColumnAddAndDelete(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	if _, err := board.AddColumn(context.Background(), " "); NoticeFor(err) != "Please enter a column title" {
		t.Fatalf("unexpected notice %v", err)
	}
	res, err := board.AddColumn(context.Background(), "Review")
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if res.Notice != "Column added successfully" || len(res.Snapshot.Columns) != 3 {
		t.Fatalf("unexpected add column result %#v", res)
	}

	api.deleteMessage = "Column deleted. 1 card moved to To Do"
	res, err = board.DeleteColumn(context.Background(), 2)
	if err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	if res.Notice != api.deleteMessage {
		t.Fatalf("expected server message as notice, got %q", res.Notice)
	}

	api.setColumns([]domain.Column{{ID: 1, Title: "To Do"}})
	if _, err := board.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err = board.DeleteColumn(context.Background(), 1)
	if NoticeFor(err) != "Failed to delete column: Cannot delete the last column" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
}

// TestRenameColumnValidation verifies client-side checks run before any request.
func TestRenameColumnValidation(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	cases := []struct {
		columnID int64
		raw      string
		notice   string
		wantErr  error
	}{
		{columnID: 1, raw: "  ", notice: "Column title cannot be empty", wantErr: domain.ErrInvalidTitle},
		{columnID: 1, raw: "done", notice: "A column with this title already exists", wantErr: domain.ErrDuplicateColumnTitle},
		{columnID: 77, raw: "Later", notice: "Column no longer exists", wantErr: domain.ErrColumnNotFound},
	}
	for _, tc := range cases {
		_, err := board.RenameColumn(context.Background(), tc.columnID, tc.raw)
		if NoticeFor(err) != tc.notice || !errors.Is(err, tc.wantErr) {
			t.Fatalf("RenameColumn(%d, %q) = %v (notice %q), want %v (notice %q)", tc.columnID, tc.raw, err, NoticeFor(err), tc.wantErr, tc.notice)
		}
	}
	res, err := board.RenameColumn(context.Background(), 1, " To Do ")
	if err != nil || !res.Noop {
		t.Fatalf("expected unchanged rename noop, got %#v %v", res, err)
	}
	if api.callCount("rename_column") != 0 {
		t.Fatal("expected no rename requests")
	}
	res, err = board.RenameColumn(context.Background(), 1, "Backlog")
	if err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	if res.Notice != "Column renamed successfully" || res.Snapshot.Columns[0].Title != "Backlog" {
		t.Fatalf("unexpected rename result %#v", res)
	}
}

// TestReloadFailureAfterMutation verifies success is reported with the reload error attached.
func TestReloadFailureAfterMutation(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	api.errs["list"] = errors.New("offline")
	res, err := board.AddColumn(context.Background(), "Review")
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if res.Notice != "Column added successfully" || res.ReloadErr == nil {
		t.Fatalf("expected success with reload error, got %#v", res)
	}
	if len(res.Snapshot.Columns) != 2 {
		t.Fatalf("expected previous snapshot, got %d columns", len(res.Snapshot.Columns))
	}
}

// TestGeneratePromptFlow verifies success and error notices.
func TestGeneratePromptFlow(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	res, err := board.GeneratePrompt(context.Background(), 10)
	if err != nil {
		t.Fatalf("GeneratePrompt() error = %v", err)
	}
	card, _ := res.Snapshot.Card(10)
	if res.Notice != "AI prompt generated and added to notes!" || !card.HasNotes() {
		t.Fatalf("unexpected generate result %#v", res)
	}
	api.errs["generate"] = &fakeAPIError{status: 503, detail: "AI service unavailable"}
	_, err = board.GeneratePrompt(context.Background(), 10)
	if NoticeFor(err) != "Failed to generate AI prompt: AI service unavailable" {
		t.Fatalf("unexpected notice %q", NoticeFor(err))
	}
	if len(board.Generating()) != 0 {
		t.Fatal("expected generating flag cleared after failure")
	}
}

// TestDeleteCardCancelsGeneration verifies deleting a card aborts its in-flight prompt request.
func TestDeleteCardCancelsGeneration(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	entered := make(chan struct{})
	api.mu.Lock()
	api.generateEntered, api.generateBlock = entered, true
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := board.GeneratePrompt(context.Background(), 10)
		done <- err
	}()
	<-entered
	if !board.Generating()[10] {
		t.Fatal("expected card 10 to be generating")
	}
	if _, err := board.GeneratePrompt(context.Background(), 10); !errors.Is(err, ErrPromptInFlight) {
		t.Fatalf("expected ErrPromptInFlight, got %v", err)
	}

	if _, err := board.DeleteCard(context.Background(), 10); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrPromptCancelled) {
			t.Fatalf("expected ErrPromptCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generation was not cancelled")
	}
	if len(board.Generating()) != 0 {
		t.Fatal("expected no generations in flight")
	}
}

// TestCloseCancelsGeneration verifies Close aborts in-flight prompt requests.
func TestCloseCancelsGeneration(t *testing.T) {
	board, api, _ := newLoadedBoard(t)
	entered := make(chan struct{})
	api.mu.Lock()
	api.generateEntered, api.generateBlock = entered, true
	api.mu.Unlock()
	done := make(chan error, 1)
	go func() {
		_, err := board.GeneratePrompt(context.Background(), 10)
		done <- err
	}()
	<-entered
	board.Close()
	if err := <-done; !errors.Is(err, ErrPromptCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, err := board.GeneratePrompt(context.Background(), 10); !errors.Is(err, ErrBoardClosed) {
		t.Fatalf("expected ErrBoardClosed after Close, got %v", err)
	}
}
