package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/kballard/go-shellquote"
	"golang.org/x/term"

	"github.com/kanboard/kanboard-go/pkg/kanboard"
)

// commonProcedures seeds completion before anything has been recorded.
var commonProcedures = []string{
	"getVersion",
	"getMe",
	"getMyProjects",
	"getAllProjects",
	"getProjectById",
	"createProject",
	"removeProject",
	"getAllTasks",
	"getTask",
	"createTask",
	"updateTask",
	"closeTask",
	"openTask",
	"removeTask",
	"getAllComments",
	"createComment",
	"getAllUsers",
	"getUser",
	"createUser",
}

type pendingCall struct {
	future  *kanboard.Future
	params  kanboard.Params
	started time.Time
}

// Shell is the interactive prompt. Async calls are started immediately and
// collected with "wait".
type Shell struct {
	app *App

	mu      sync.Mutex
	pending []pendingCall

	exitCh chan struct{}
	once   sync.Once
}

func NewShell(app *App) *Shell {
	return &Shell{
		app:    app,
		exitCh: make(chan struct{}),
	}
}

func (s *Shell) Complete(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(s.complete(d), d.GetWordBeforeCursor(), true)
}

func (s *Shell) complete(d prompt.Document) []prompt.Suggest {
	args := strings.Split(d.TextBeforeCursor(), " ")
	if len(args) >= 2 {
		return nil
	}

	suggestions := []prompt.Suggest{
		{Text: "history", Description: "Show recorded calls"},
		{Text: "wait", Description: "Wait for pending async calls"},
		{Text: "output", Description: "Set the result format: table, json or yaml"},
		{Text: "exit", Description: "Exit the shell"},
	}
	for _, method := range s.knownMethods() {
		suggestions = append(suggestions, prompt.Suggest{Text: method, Description: "Call " + method})
	}
	return suggestions
}

// knownMethods merges recorded methods with commonProcedures.
func (s *Shell) knownMethods() []string {
	set := map[string]struct{}{}
	for _, method := range commonProcedures {
		set[method] = struct{}{}
	}

	if s.app.store != nil {
		recorded, err := s.app.store.Methods(context.Background())
		if err != nil {
			s.app.logger.Debug("failed to load recorded methods", "error", err)
		}
		for _, method := range recorded {
			set[method] = struct{}{}
		}
	}

	methods := make([]string, 0, len(set))
	for method := range set {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// Execute runs one line. Words are split like a POSIX shell, so quoted
// values may contain spaces: create_task title="Fix login".
func (s *Shell) Execute(line string) {
	args, err := shellquote.Split(line)
	if err != nil {
		fmt.Fprintln(s.app.out, describeError(err))
		return
	}
	if len(args) == 0 {
		return
	}

	ctx := context.Background()
	switch args[0] {
	case "exit", "quit":
		s.once.Do(func() { close(s.exitCh) })
	case "history":
		if err := s.app.runHistory(ctx, args[1:]); err != nil {
			fmt.Fprintln(s.app.out, describeError(err))
		}
	case "wait":
		s.waitPending(ctx)
	case "output":
		if len(args) < 2 {
			fmt.Fprintf(s.app.out, "Output format: %s\n", s.app.format)
			return
		}
		if err := s.app.SetFormat(args[1]); err != nil {
			fmt.Fprintln(s.app.out, describeError(err))
		}
	default:
		if kanboard.IsAsyncMethodName(args[0]) {
			s.startAsync(ctx, args[0], args[1:])
			return
		}
		if err := s.app.Call(ctx, args[0], args[1:]); err != nil {
			fmt.Fprintln(s.app.out, describeError(err))
		}
	}
}

func (s *Shell) startAsync(ctx context.Context, name string, args []string) {
	params, err := parseParams(args)
	if err != nil {
		fmt.Fprintln(s.app.out, describeError(err))
		return
	}

	future := s.app.client.Dispatch(ctx, name, params)

	s.mu.Lock()
	s.pending = append(s.pending, pendingCall{future: future, params: params, started: time.Now()})
	n := len(s.pending)
	s.mu.Unlock()

	fmt.Fprintf(s.app.out, "Started %s (%d pending). Type 'wait' to collect results.\n", future.Method(), n)
}

func (s *Shell) waitPending(ctx context.Context) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		fmt.Fprintln(s.app.out, "No pending calls.")
		return
	}

	for _, call := range pending {
		result, err := call.future.Await(ctx)
		s.app.record(ctx, call.future.Method(), call.params, true, call.started, err)

		fmt.Fprintf(s.app.out, "%s:\n", call.future.Method())
		if err != nil {
			fmt.Fprintln(s.app.out, describeError(err))
			continue
		}
		if err := printResult(s.app.out, result, s.app.format); err != nil {
			fmt.Fprintln(s.app.out, describeError(err))
		}
	}
}

// Wait is closed when the user exits the shell.
func (s *Shell) Wait() <-chan struct{} {
	return s.exitCh
}

func runShell(app *App) {
	shell := NewShell(app)

	initialState, _ := term.GetState(int(os.Stdin.Fd()))
	handleExit := func() {
		if initialState != nil {
			_ = term.Restore(int(os.Stdin.Fd()), initialState)
		}
		_ = exec.Command("stty", "sane").Run()
	}

	options := append(styleOptions(),
		prompt.OptionPrefix("kanboard> "),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(*prompt.Buffer) {
				fmt.Println("Exiting Kanboard shell.")
				handleExit()
				os.Exit(0)
			},
		}),
	)
	p := prompt.New(shell.Execute, shell.Complete, options...)

	promptExitCh := make(chan struct{})
	go func() {
		p.Run()
		close(promptExitCh)
	}()

	select {
	case <-shell.Wait():
	case <-promptExitCh:
	}
	handleExit()
	fmt.Println("Exiting Kanboard shell.")
}

func styleOptions() []prompt.Option {
	return []prompt.Option{
		prompt.OptionTitle("Kanboard shell"),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionSelectedSuggestionBGColor(prompt.Green),
		prompt.OptionDescriptionBGColor(prompt.LightGray),
		prompt.OptionMaxSuggestion(12),
	}
}
