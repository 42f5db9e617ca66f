// Package dispatch interprets one xcf action against the persisted session
// state and carries out its effect.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CodeFreezeAI/xcf/internal/action"
	"github.com/CodeFreezeAI/xcf/internal/automation"
	"github.com/CodeFreezeAI/xcf/internal/catalog"
	"github.com/CodeFreezeAI/xcf/internal/history"
	"github.com/CodeFreezeAI/xcf/internal/session"
	"github.com/CodeFreezeAI/xcf/internal/sys"
	"github.com/CodeFreezeAI/xcf/internal/ui"
	"go.uber.org/zap"
)

// Settings is the configuration surface behind the config action.
type Settings interface {
	Keys() []string
	Get(key string) (string, error)
	Set(key, value string) error
}

// Options wires the dispatcher to its collaborators. Registry, Store,
// Catalog, Backend and Printer are required.
type Options struct {
	Registry *action.Registry
	Store    session.Store
	Catalog  catalog.Catalog
	Backend  automation.Backend
	History  history.Recorder
	Settings Settings
	Printer  *ui.Printer
	Logger   *zap.Logger

	// Environment and Snapshot feed the env action.
	Environment func() []sys.EnvVar
	Snapshot    func() (sys.Snapshot, error)

	// Input is read by interactive mode.
	Input io.Reader
	// OnInteractive runs when interactive mode starts; the returned func
	// runs when it ends.
	OnInteractive func(ctx context.Context) func()

	Now func() time.Time
}

// Dispatcher executes actions.
type Dispatcher struct {
	Options
	tool        string
	interactive bool
}

// New creates a dispatcher, filling optional collaborators with no-ops.
func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.History == nil {
		opts.History = history.Nop{}
	}
	if opts.Environment == nil {
		name := opts.Registry.ToolName()
		opts.Environment = func() []sys.EnvVar { return sys.Environment(name) }
	}
	if opts.Snapshot == nil {
		opts.Snapshot = sys.NewMonitor().GetSnapshot
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{Options: opts, tool: opts.Registry.ToolName()}
}

// run is the per-invocation context: the loaded state and whether it changed.
type run struct {
	state   session.State
	mutated bool
}

// Execute resolves and runs one action. All output, including the error
// line, is written to the printer; the returned error only carries the kind
// for ExitCode.
func (d *Dispatcher) Execute(ctx context.Context, input []string) error {
	act, args := d.Registry.Resolve(input)
	if act == action.Unrecognized {
		err := d.unrecognized(input)
		d.report(err)
		d.Printer.Newline()
		d.help()
		return err
	}

	r := &run{state: d.Store.Load()}
	d.Logger.Debug("dispatching", zap.Stringer("action", act), zap.Strings("args", args))

	err := d.dispatch(ctx, r, act, args)
	if err != nil {
		d.report(err)
	}

	if r.mutated {
		if saveErr := d.Store.Save(r.state); saveErr != nil {
			d.Logger.Error("saving session state", zap.Error(saveErr))
			d.Printer.Warning(fmt.Sprintf("could not save session state: %v", saveErr))
			if err == nil {
				err = &Error{Kind: ErrStateNotSaved, Message: "session state not saved", Err: saveErr}
			}
		}
	}
	return err
}

func (d *Dispatcher) report(err error) {
	var de *Error
	if errors.As(err, &de) {
		d.Printer.Error(de.Error())
		return
	}
	d.Printer.Error(err.Error())
}

func (d *Dispatcher) dispatch(ctx context.Context, r *run, act action.Action, args []string) error {
	switch act {
	case action.Help:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		d.help()
		return nil
	case action.UseMode:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.use(ctx, r)
	case action.Grant:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.grant(r)
	case action.List:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.list(ctx, r)
	case action.Select:
		return d.selectProject(ctx, r, args)
	case action.Run:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.automate(ctx, r, automation.ModeRun)
	case action.Build:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.automate(ctx, r, automation.ModeBuild)
	case action.Current:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.current(ctx, r)
	case action.Env:
		if err := d.noArgs(act, args); err != nil {
			return err
		}
		return d.env(r)
	case action.History:
		return d.history(ctx, args)
	case action.Config:
		return d.config(args)
	}
	return &Error{Kind: ErrUnrecognized, Message: fmt.Sprintf("action %s is not implemented", act)}
}

func (d *Dispatcher) noArgs(act action.Action, args []string) error {
	if len(args) == 0 {
		return nil
	}
	hint := d.helpHint()
	if spec, ok := d.Registry.Lookup(act); ok {
		hint = "usage: " + d.cmd(spec.Usage())
	}
	return newError(ErrInvalidArgument, hint, "%s takes no arguments, got %q", act, strings.Join(args, " "))
}

func (d *Dispatcher) cmd(s string) string {
	return "`" + d.tool + " " + s + "`"
}

func (d *Dispatcher) helpHint() string {
	return "run " + d.cmd("help") + " for usage"
}

func (d *Dispatcher) unrecognized(input []string) *Error {
	if len(input) == 0 {
		return newError(ErrUnrecognized, d.helpHint(), "no action given")
	}
	word := strings.Join(input, " ")
	if len(input) > 2 {
		word = strings.Join(input[:2], " ")
	}
	e := newError(ErrUnrecognized, d.helpHint(), "unknown action %q", word)
	if s, ok := d.Registry.Suggest(input[0]); ok {
		e.Hint = "did you mean " + d.cmd(s) + "? " + e.Hint
	}
	return e
}

func (d *Dispatcher) help() {
	d.Printer.Plain(d.Registry.HelpText())
	d.Printer.Plain(ExitCodesText())
}

func (d *Dispatcher) grant(r *run) error {
	if r.state.PermissionGranted {
		d.Printer.Info("Automation permission was already granted.")
		return nil
	}
	r.state.Grant(d.Now())
	r.mutated = true
	d.Printer.Success(fmt.Sprintf("%s may now build and run projects.", d.tool))
	return nil
}

func (d *Dispatcher) list(ctx context.Context, r *run) error {
	entries := d.Catalog.List(ctx)
	if len(entries) == 0 {
		d.Printer.Info("no projects found")
		return nil
	}

	selected := ""
	if r.state.HasSelection() {
		selected = r.state.Selected.Path
	}

	rows := make([]ui.Row, len(entries))
	for i, e := range entries {
		rows[i] = ui.Row{
			Index: i + 1,
			Name:  e.Name,
			Meta:  string(e.Kind) + "  " + e.Path,
			Mark:  e.Path == selected,
		}
	}

	d.Printer.Title("📂", "PROJECTS")
	d.Printer.Rows(rows)
	d.Printer.Newline()
	d.Printer.Command("Use", d.cmd("select <n>"), "to choose a project.")
	return nil
}

func (d *Dispatcher) selectProject(ctx context.Context, r *run, args []string) error {
	listHint := "run " + d.cmd("list") + " to see project numbers"
	if len(args) != 1 {
		return newError(ErrInvalidArgument, listHint, "select needs exactly one project number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return newError(ErrInvalidArgument, listHint, "%q is not a project number", args[0])
	}

	entries := d.Catalog.List(ctx)
	if len(entries) == 0 {
		return newError(ErrInvalidArgument, "", "no projects found, so there is nothing to select")
	}
	if n < 1 || n > len(entries) {
		return newError(ErrInvalidArgument, listHint, "project number must be between 1 and %d, got %d", len(entries), n)
	}

	e := entries[n-1]
	r.state.Select(e.Name, e.Path)
	r.mutated = true

	d.Printer.Success(fmt.Sprintf("Selected %s", e.Name))
	d.Printer.KeyValue("Path", e.Path)
	return nil
}

// resolveSelection returns the catalog entry behind the saved selection,
// clearing the selection when the project is gone.
func (d *Dispatcher) resolveSelection(ctx context.Context, r *run) (catalog.Entry, error) {
	selectHint := "run " + d.cmd("select <n>") + " first"
	if !r.state.HasSelection() {
		return catalog.Entry{}, newError(ErrNoProjectSelected, selectHint, "no project selected")
	}

	sel := *r.state.Selected
	e, ok := catalog.Find(d.Catalog.List(ctx), sel.Path)
	if !ok {
		d.Logger.Info("clearing stale selection", zap.String("path", sel.Path))
		r.state.ClearSelection()
		r.mutated = true
		return catalog.Entry{}, newError(ErrNoProjectSelected,
			"run "+d.cmd("list")+" and "+d.cmd("select <n>")+" first",
			"previously selected project %s is no longer available", sel.Name)
	}
	if e.Name != sel.Name {
		r.state.Select(e.Name, e.Path)
		r.mutated = true
	}
	return e, nil
}

func (d *Dispatcher) automate(ctx context.Context, r *run, mode automation.Mode) error {
	if !r.state.PermissionGranted {
		return newError(ErrPermissionRequired, "run "+d.cmd("grant")+" first",
			"permission required to %s projects", mode)
	}
	e, err := d.resolveSelection(ctx, r)
	if err != nil {
		return err
	}

	d.Printer.Status(strings.ToUpper(string(mode)), e.Name)
	res, invokeErr := d.Backend.Invoke(ctx, automation.Request{Project: e, Mode: mode})

	if res.ID != "" {
		rec := history.Run{
			ID:        res.ID,
			Mode:      string(mode),
			Project:   e.Name,
			Path:      e.Path,
			OK:        invokeErr == nil && res.OK,
			Message:   res.Message,
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
		}
		if err := d.History.Record(ctx, rec); err != nil {
			d.Logger.Warn("recording run history", zap.Error(err))
		}
	}

	if invokeErr != nil || !res.OK {
		msg := res.Message
		if msg == "" && invokeErr != nil {
			msg = invokeErr.Error()
		}
		return &Error{Kind: ErrAutomationFailed, Message: msg, Err: invokeErr}
	}
	d.Printer.Success(res.Message)
	return nil
}

func (d *Dispatcher) current(ctx context.Context, r *run) error {
	if !r.state.HasSelection() {
		d.Printer.Info("no project selected")
		return nil
	}
	e, err := d.resolveSelection(ctx, r)
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			d.Printer.Warning(de.Message)
		}
		d.Printer.Info("no project selected")
		return nil
	}

	d.Printer.KeyValueHighlight("Project", e.Name)
	d.Printer.KeyValue("Kind   ", string(e.Kind))
	d.Printer.KeyValue("Path   ", e.Path)
	return nil
}

func (d *Dispatcher) env(r *run) error {
	d.Printer.Title("🌐", "ENVIRONMENT")
	for _, v := range d.Environment() {
		if !v.Set {
			d.Printer.KeyValueMuted(v.Name, "(unset)")
			continue
		}
		d.Printer.KeyValue(v.Name, v.Value)
	}

	d.Printer.Title("🔐", "SESSION")
	d.Printer.KeyValue("Permission", strconv.FormatBool(r.state.PermissionGranted))
	if r.state.HasSelection() {
		d.Printer.KeyValue("Selected  ", r.state.Selected.Name+" ("+r.state.Selected.Path+")")
	} else {
		d.Printer.KeyValueMuted("Selected  ", "(none)")
	}
	d.Printer.KeyValue("Mode      ", d.mode())

	d.Printer.Title("🖥", "SYSTEM")
	snap, err := d.Snapshot()
	if err != nil {
		d.Logger.Warn("system snapshot incomplete", zap.Error(err))
	}
	d.Printer.KeyValue("Platform", fmt.Sprintf("%s/%s %s", snap.OS, snap.Arch, snap.Platform))
	d.Printer.KeyValue("Host    ", snap.Hostname)
	d.Printer.KeyValue("CPU     ", fmt.Sprintf("%.1f%%", snap.CPUUsage))
	d.Printer.KeyValue("Memory  ", fmt.Sprintf("%.1f%%", snap.MemoryUsage))
	d.Printer.KeyValue("CWD     ", snap.WorkingDir)
	return nil
}

func (d *Dispatcher) mode() string {
	if d.interactive {
		return "interactive"
	}
	return "one-shot"
}

func (d *Dispatcher) history(ctx context.Context, args []string) error {
	n := 10
	if len(args) > 1 {
		return newError(ErrInvalidArgument, d.helpHint(), "history takes at most one argument")
	}
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return newError(ErrInvalidArgument, "", "history count must be a positive number, got %q", args[0])
		}
		n = v
	}

	runs, err := d.History.Recent(ctx, n)
	if err != nil {
		return &Error{Kind: ErrInternal, Message: "could not read run history", Err: err}
	}
	if len(runs) == 0 {
		d.Printer.Info("no builds or runs recorded yet")
		return nil
	}

	d.Printer.Title("🕘", "HISTORY")
	for _, run := range runs {
		mark := "✓"
		if !run.OK {
			mark = "✗"
		}
		d.Printer.Plain(fmt.Sprintf("%s %-5s %-20s %s  %s  %s",
			mark, run.Mode, run.Project,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Duration.Round(time.Millisecond), run.Message))
	}
	return nil
}

func (d *Dispatcher) config(args []string) error {
	if d.Settings == nil {
		return &Error{Kind: ErrInternal, Message: "configuration is unavailable"}
	}

	switch len(args) {
	case 0:
		d.Printer.Title("⚙️ ", "CONFIGURATION")
		for _, key := range d.Settings.Keys() {
			v, err := d.Settings.Get(key)
			if err != nil {
				d.Logger.Warn("reading config key", zap.String("key", key), zap.Error(err))
				continue
			}
			d.Printer.KeyValue(key, v)
		}
		return nil
	case 1:
		v, err := d.Settings.Get(args[0])
		if err != nil {
			return &Error{Kind: ErrInvalidArgument, Message: err.Error(), Hint: "run " + d.cmd("config") + " to list keys"}
		}
		d.Printer.Plain(v)
		return nil
	default:
		key, value := args[0], strings.Join(args[1:], " ")
		if err := d.Settings.Set(key, value); err != nil {
			return &Error{Kind: ErrInvalidArgument, Message: err.Error(), Hint: "run " + d.cmd("config") + " to list keys"}
		}
		d.Printer.Success(fmt.Sprintf("%s = %s", key, value))
		return nil
	}
}
