// Package mcpapi exposes board operations as tools over stateless MCP streamable HTTP.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/kanboard/internal/adapters/boardapi"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// BoardService is the board surface the tools call into. *app.Board satisfies it.
type BoardService interface {
	Load(ctx context.Context) (app.LoadResult, error)
	AddCard(ctx context.Context, columnID int64, title, notes string) (app.Result, error)
	EditCard(ctx context.Context, cardID int64, title, notes string) (app.Result, error)
	MoveCard(ctx context.Context, cardID, columnID int64) (app.Result, error)
	DeleteCard(ctx context.Context, cardID int64) (app.Result, error)
	AddColumn(ctx context.Context, title string) (app.Result, error)
	RenameColumn(ctx context.Context, columnID int64, title string) (app.Result, error)
	DeleteColumn(ctx context.Context, columnID int64) (app.Result, error)
	GeneratePrompt(ctx context.Context, cardID int64) (app.Result, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// boardResult is the structured payload every tool returns.
type boardResult struct {
	Notice      string          `json:"notice,omitempty"`
	Noop        bool            `json:"noop,omitempty"`
	ReloadError string          `json:"reload_error,omitempty"`
	Board       domain.Snapshot `json:"board"`
}

// NewHandler builds the MCP adapter with one tool per board operation.
func NewHandler(cfg Config, board BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, board)
	registerCardTools(mcpSrv, board)
	registerColumnTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "kanboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardTools registers whole-board tools.
func registerBoardTools(srv *mcpserver.MCPServer, board BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanboard.get_board",
			mcp.WithDescription("Fetch every column with its cards, ordered by position."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			loaded, err := board.Load(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return encodeResult(boardResult{Board: loaded.Snapshot})
		},
	)
}

// registerCardTools registers card add/edit/move/delete/generate tools.
func registerCardTools(srv *mcpserver.MCPServer, board BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanboard.add_card",
			mcp.WithDescription("Create a card at the end of a column."),
			mcp.WithNumber("column_id", mcp.Required(), mcp.Description("Destination column identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Card title")),
			mcp.WithString("notes", mcp.Description("Markdown notes")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireInt("column_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return invalidRequest(err), nil
			}
			return resultOrError(board.AddCard(ctx, int64(columnID), title, req.GetString("notes", "")))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.edit_card",
			mcp.WithDescription("Replace a card's title and notes."),
			mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Card identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Card title")),
			mcp.WithString("notes", mcp.Description("Markdown notes; empty clears them")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardID, err := req.RequireInt("card_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return invalidRequest(err), nil
			}
			return resultOrError(board.EditCard(ctx, int64(cardID), title, req.GetString("notes", "")))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.move_card",
			mcp.WithDescription("Move a card to the end of another column. The board is reloaded first; an unknown column is a no-op."),
			mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Card identifier")),
			mcp.WithNumber("column_id", mcp.Required(), mcp.Description("Destination column identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardID, err := req.RequireInt("card_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			columnID, err := req.RequireInt("column_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			if failed := refresh(ctx, board); failed != nil {
				return failed, nil
			}
			return resultOrError(board.MoveCard(ctx, int64(cardID), int64(columnID)))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.delete_card",
			mcp.WithDescription("Delete a card."),
			mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Card identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardID, err := req.RequireInt("card_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			return resultOrError(board.DeleteCard(ctx, int64(cardID)))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.generate_prompt",
			mcp.WithDescription("Ask the server to append an AI implementation prompt to a card's notes."),
			mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Card identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardID, err := req.RequireInt("card_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			return resultOrError(board.GeneratePrompt(ctx, int64(cardID)))
		},
	)
}

// registerColumnTools registers column add/rename/delete tools.
func registerColumnTools(srv *mcpserver.MCPServer, board BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanboard.add_column",
			mcp.WithDescription("Append a column to the board."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Column title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return invalidRequest(err), nil
			}
			return resultOrError(board.AddColumn(ctx, title))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.rename_column",
			mcp.WithDescription("Rename a column. Titles must be non-empty and unique, ignoring case, against a freshly loaded board."),
			mcp.WithNumber("column_id", mcp.Required(), mcp.Description("Column identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New column title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireInt("column_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return invalidRequest(err), nil
			}
			if failed := refresh(ctx, board); failed != nil {
				return failed, nil
			}
			return resultOrError(board.RenameColumn(ctx, int64(columnID), title))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.delete_column",
			mcp.WithDescription("Delete a column; the server relocates its cards."),
			mcp.WithNumber("column_id", mcp.Required(), mcp.Description("Column identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireInt("column_id")
			if err != nil {
				return invalidRequest(err), nil
			}
			return resultOrError(board.DeleteColumn(ctx, int64(columnID)))
		},
	)
}

// resultOrError converts one board operation outcome into a tool result.
func resultOrError(res app.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolResultFromError(err), nil
	}
	out := boardResult{
		Notice: res.Notice,
		Noop:   res.Noop,
		Board:  res.Snapshot,
	}
	if res.ReloadErr != nil {
		out.ReloadError = app.NoticeFor(res.ReloadErr)
	}
	return encodeResult(out)
}

func encodeResult(out boardResult) (*mcp.CallToolResult, error) {
	if out.Board.Columns == nil {
		out.Board.Columns = []domain.Column{}
	}
	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return nil, fmt.Errorf("encode board result: %w", err)
	}
	return result, nil
}

func invalidRequest(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}

// refresh reloads the board before a tool validates against it.
// Other clients may have changed columns since the last call.
func refresh(ctx context.Context, board BoardService) *mcp.CallToolResult {
	if _, err := board.Load(ctx); err != nil {
		return toolResultFromError(err)
	}
	return nil
}

// toolResultFromError maps board errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrDuplicateColumnTitle),
		errors.Is(err, app.ErrPromptInFlight):
		return mcp.NewToolResultError("invalid_request: " + app.NoticeFor(err))
	case errors.Is(err, app.ErrNotFound),
		errors.Is(err, domain.ErrColumnNotFound),
		errors.Is(err, domain.ErrCardNotFound),
		boardapi.IsNotFound(err):
		return mcp.NewToolResultError("not_found: " + app.NoticeFor(err))
	case errors.Is(err, app.ErrPromptCancelled), errors.Is(err, app.ErrBoardClosed):
		return mcp.NewToolResultError("cancelled: " + app.NoticeFor(err))
	default:
		return mcp.NewToolResultError("internal_error: " + app.NoticeFor(err))
	}
}
