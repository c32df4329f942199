package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/kanboard/internal/adapters/boardapi"
	serveradapter "github.com/hylla/kanboard/internal/adapters/server"
	"github.com/hylla/kanboard/internal/adapters/storage/sqlite"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/config"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/platform"
	"github.com/hylla/kanboard/internal/tui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it out.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// executeCommand runs the root command with fang styling.
var executeCommand = func(ctx context.Context, root *cobra.Command) error {
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadDotEnv loads path into the process environment when it exists. Set variables win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// rootOptions holds the persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	apiURL     string
	appName    string
	devMode    bool
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return executeCommand(ctx, root)
}

// newRootCommand wires the TUI root command and its subcommands.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{
		appName: platform.DefaultAppName,
		devMode: version == "dev",
	}
	if envDev, ok := parseBoolEnv("KANBOARD_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("KANBOARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "kanboard",
		Short:         "Terminal client for a remote kanban board",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.apiURL, "api-url", "", "board API base URL")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newExportCommand(opts, stdout, stderr),
		newServeCommand(opts, stderr),
	)
	return root
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and database paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "exports: %s\n", paths.ExportDir)
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the board and write it as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, stderr, "export", false)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.logger.Info("command flow start", "command", "export", "format", format)
			if err := runExport(cmd.Context(), rt.board, format, outPath, stdout); err != nil {
				rt.logger.Error("command flow failed", "command", "export", "err", err)
				return fmt.Errorf("run export command: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "export")
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose board operations as MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, stderr, "serve", false)
			if err != nil {
				return err
			}
			defer rt.Close()
			if strings.TrimSpace(bind) != "" {
				rt.cfg.Server.Bind = bind
			}
			rt.logger.Info("command flow start", "command", "serve", "bind", rt.cfg.Server.Bind, "mcp_endpoint", rt.cfg.Server.MCPEndpoint)
			if _, err := rt.board.Load(cmd.Context()); err != nil {
				// serve anyway; /readyz stays unavailable until a tool call loads the board
				rt.logger.Warn("initial board load failed", "err", err)
			}
			err = serveCommandRunner(cmd.Context(), serveradapter.Config{
				HTTPBind:      rt.cfg.Server.Bind,
				MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
				ServerName:    opts.appName,
				ServerVersion: version,
			}, serveradapter.Dependencies{
				Board: rt.board,
				Ready: rt.board.Loaded,
			})
			if err != nil {
				rt.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "HTTP listen address (overrides server.bind)")
	return cmd
}

// paths resolves on-disk locations for the selected app name and mode.
func (o *rootOptions) paths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// runtime bundles the collaborators every board command needs.
type runtime struct {
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	board  *app.Board
	stderr io.Writer
}

// Close releases the board, the store, and the log sinks.
func (rt *runtime) Close() {
	rt.board.Close()
	if err := rt.repo.Close(); err != nil {
		rt.logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", err)
	}
	if err := rt.logger.Close(); err != nil && rt.logger.shouldLogToSink(rt.logger.consoleSink) {
		_, _ = fmt.Fprintf(rt.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// openRuntime resolves configuration and opens the logger, local store, and board client.
func openRuntime(opts *rootOptions, stderr io.Writer, command string, muteConsole bool) (*runtime, error) {
	paths, err := opts.paths()
	if err != nil {
		return nil, err
	}
	configPath, dbPath, dbOverridden := resolveConfigInputs(opts, paths)
	cfg, err := loadConfig(configPath, dbPath, dbOverridden, resolveAPIURL(opts))
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if muteConsole {
		// the TUI owns the terminal; runtime logs go to the dev-file sink only
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "api_url", cfg.API.BaseURL, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path)

	client, err := boardapi.New(boardapi.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.RequestTimeout(),
		GenerateTimeout: cfg.GenerateTimeout(),
		Logger:          logger,
		NewRequestID:    uuid.NewString,
	})
	if err != nil {
		_ = repo.Close()
		_ = logger.Close()
		return nil, fmt.Errorf("configure board api client: %w", err)
	}
	board := app.NewBoard(client, app.BoardConfig{
		Logger:   logger,
		Activity: repo,
	})
	logger.Debug("board client initialized", "base_url", client.BaseURL())
	return &runtime{cfg: cfg, logger: logger, repo: repo, board: board, stderr: stderr}, nil
}

// resolveConfigInputs applies flag, then env, then default precedence to config and db paths.
func resolveConfigInputs(opts *rootOptions, paths platform.Paths) (configPath, dbPath string, dbOverridden bool) {
	configPath = strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("KANBOARD_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath = strings.TrimSpace(opts.dbPath)
	dbOverridden = dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("KANBOARD_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	return configPath, dbPath, dbOverridden
}

func resolveAPIURL(opts *rootOptions) string {
	if raw := strings.TrimSpace(opts.apiURL); raw != "" {
		return raw
	}
	return strings.TrimSpace(os.Getenv("KANBOARD_API_URL"))
}

// loadConfig reads the TOML file over defaults and applies path and URL overrides.
func loadConfig(configPath, dbPath string, dbOverridden bool, apiURL string) (config.Config, error) {
	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("validate config %q: %w", configPath, err)
	}
	return cfg, nil
}

// runTUI opens the runtime and drives the board program until the user quits.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	rt, err := openRuntime(opts, stderr, "tui", true)
	if err != nil {
		return err
	}
	defer rt.Close()

	fallback, err := domain.ParseTheme(rt.cfg.UI.Theme)
	if err != nil {
		fallback = domain.ThemeLight
	}
	success, failure := rt.cfg.NoticeDurations()
	m := tui.NewModel(
		rt.board,
		tui.WithPreferences(app.NewPreferences(rt.repo, fallback, rt.logger)),
		tui.WithActivity(rt.repo),
		tui.WithTheme(fallback),
		tui.WithConfirmDelete(rt.cfg.UI.ConfirmDelete),
		tui.WithNoticeTTL(success, failure),
		tui.WithKeyConfig(tui.KeyConfig{
			Filter:      rt.cfg.UI.Keys.Filter,
			ActivityLog: rt.cfg.UI.Keys.ActivityLog,
			ToggleTheme: rt.cfg.UI.Keys.ToggleTheme,
			Grab:        rt.cfg.UI.Keys.Grab,
			Generate:    rt.cfg.UI.Keys.Generate,
		}),
	)
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	if ctx.Err() != nil {
		rt.logger.Info("tui program interrupted", "err", ctx.Err())
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runExport fetches the board once and writes it in the requested format.
func runExport(ctx context.Context, board *app.Board, format, outPath string, stdout io.Writer) error {
	loaded, err := board.Load(ctx)
	if err != nil {
		return fmt.Errorf("fetch board: %w", err)
	}
	encoded, err := encodeSnapshot(loaded.Snapshot, format)
	if err != nil {
		return err
	}

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// encodeSnapshot renders a snapshot as indented JSON or YAML.
func encodeSnapshot(snapshot domain.Snapshot, format string) ([]byte, error) {
	if snapshot.Columns == nil {
		snapshot.Columns = []domain.Column{}
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		encoded, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode snapshot json: %w", err)
		}
		return append(encoded, '\n'), nil
	case "yaml", "yml":
		encoded, err := yaml.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot yaml: %w", err)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want json or yaml)", format)
	}
}

// parseBoolEnv reads a boolean env var; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
