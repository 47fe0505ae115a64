package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/kanboard/kanboard-go/internal/history"
	"github.com/kanboard/kanboard-go/pkg/kanboard"
	"github.com/kanboard/kanboard-go/pkg/log"
)

const usage = `Usage: kanboard <command> [arguments]

Commands:
  call <procedure> [key=value ...]   call a procedure, e.g. call get_project_by_id project_id=1
                                     -o, --output table|json|yaml selects the result format
  shell                              start an interactive shell
  history [limit]                    show recorded calls
  history clear                      delete recorded calls

Procedures ending in _async are run asynchronously and awaited.
Configuration is read from the environment and from .env files.
KANBOARD_OUTPUT sets the default result format, KANBOARD_PROXY_URL an HTTP
proxy. KANBOARD_HTTP_USERNAME and KANBOARD_HTTP_PASSWORD add HTTP basic auth
when KANBOARD_AUTH_HEADER names a custom header.
`

// App holds everything a command needs.
type App struct {
	client *kanboard.Client
	store  *history.Store // nil when history is disabled
	logger log.Logger
	out    io.Writer
	format string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Print(usage)
		return
	}

	conf, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err.Error())
		os.Exit(1)
	}

	logger := log.NewZapLogger(conf.Log).WithName("kanboard")

	app, err := NewApp(conf, logger, os.Stdout)
	if err != nil {
		logger.Fatal("failed to initialize", "error", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "call":
		var format string
		var args []string
		format, args, err = extractOutputFlag(os.Args[2:])
		if err == nil && format != "" {
			err = app.SetFormat(format)
		}
		if err == nil && len(args) == 0 {
			fmt.Print(usage)
			os.Exit(2)
		}
		if err == nil {
			err = app.Call(ctx, args[0], args[1:])
		}
	case "history":
		err = app.runHistory(ctx, os.Args[2:])
	case "shell":
		stop()
		runShell(app)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func NewApp(conf *Config, logger log.Logger, out io.Writer) (*App, error) {
	format, err := parseFormat(conf.Output)
	if err != nil {
		return nil, err
	}

	client, err := kanboard.NewClient(conf.Client,
		kanboard.WithLogger(logger.WithName("client")),
		kanboard.WithMaxConcurrentCalls(conf.MaxConcurrentCalls),
	)
	if err != nil {
		return nil, err
	}

	app := &App{
		client: client,
		logger: logger,
		out:    out,
		format: format,
	}

	if !conf.History.Disabled {
		store, err := history.Open(conf.History.DSN)
		if err != nil {
			return nil, err
		}
		app.store = store
	}

	return app, nil
}

func (a *App) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close history store", "error", err)
	}
}

// Call runs one procedure and prints its result. Async names are dispatched
// in the background and awaited.
func (a *App) Call(ctx context.Context, name string, args []string) error {
	params, err := parseParams(args)
	if err != nil {
		return err
	}

	started := time.Now()
	future := a.client.Dispatch(ctx, name, params)
	result, err := future.Await(ctx)
	a.record(ctx, future.Method(), params, kanboard.IsAsyncMethodName(name), started, err)
	if err != nil {
		return err
	}

	return printResult(a.out, result, a.format)
}

// SetFormat changes the result format for later calls.
func (a *App) SetFormat(format string) error {
	f, err := parseFormat(format)
	if err != nil {
		return err
	}
	a.format = f
	return nil
}

func (a *App) record(ctx context.Context, method string, params kanboard.Params, async bool, started time.Time, callErr error) {
	if a.store == nil {
		return
	}
	rec, err := history.NewRecord(method, params, async, started, callErr)
	if err != nil {
		a.logger.Warn("failed to record call", "method", method, "error", err)
		return
	}
	if _, err := a.store.Record(ctx, rec); err != nil {
		a.logger.Warn("failed to record call", "method", method, "error", err)
	}
}

func (a *App) runHistory(ctx context.Context, args []string) error {
	if a.store == nil {
		return errors.New("history is disabled")
	}

	if len(args) > 0 && args[0] == "clear" {
		removed, err := a.store.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed %d records.\n", removed)
		return nil
	}

	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return errors.Errorf("invalid limit: %s", args[0])
		}
		limit = n
	}

	records, err := a.store.List(ctx, limit)
	if err != nil {
		return err
	}
	printHistory(a.out, records)
	return nil
}

func describeError(err error) string {
	var cerr *kanboard.ClientError
	if errors.As(err, &cerr) && cerr.Remote() {
		return fmt.Sprintf("Error: %s (code %d)", cerr.Message, cerr.Code)
	}
	return "Error: " + err.Error()
}
