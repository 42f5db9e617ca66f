package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/CodeFreezeAI/xcf/internal/sys"
	"go.uber.org/zap"
)

const modeInteractive = "interactive"

func (d *Dispatcher) modeEnv() string {
	return sys.EnvPrefix(d.tool) + "_MODE"
}

// use engages interactive mode: every line read from Input is dispatched as
// its own command until exit, quit or EOF.
func (d *Dispatcher) use(ctx context.Context, r *run) error {
	if d.interactive || os.Getenv(d.modeEnv()) == modeInteractive {
		d.Printer.Info("interactive mode is already active")
		return nil
	}

	// Lines in the loop load and save state themselves, so the activation
	// is persisted before the first one runs.
	r.state.Activate(d.Now())
	var saveErr error
	if err := d.Store.Save(r.state); err != nil {
		d.Logger.Error("saving session state", zap.Error(err))
		d.Printer.Warning(fmt.Sprintf("could not save session state: %v", err))
		saveErr = &Error{Kind: ErrStateNotSaved, Message: "session state not saved", Err: err}
	}

	prev, hadPrev := os.LookupEnv(d.modeEnv())
	os.Setenv(d.modeEnv(), modeInteractive)
	d.interactive = true
	defer func() {
		d.interactive = false
		if hadPrev {
			os.Setenv(d.modeEnv(), prev)
		} else {
			os.Unsetenv(d.modeEnv())
		}
	}()

	if d.OnInteractive != nil {
		if stop := d.OnInteractive(ctx); stop != nil {
			defer stop()
		}
	}

	d.Printer.Success(fmt.Sprintf("%s interactive mode. Type `help` for actions, `exit` to leave.", d.tool))
	d.Logger.Info("interactive mode started")

	d.loop(ctx)

	d.Logger.Info("interactive mode ended")
	return saveErr
}

func (d *Dispatcher) loop(ctx context.Context) {
	done := make(chan struct{})
	defer close(done)
	lines := d.readLines(done)
	prompt := d.tool + "> "

	for {
		fmt.Fprint(d.Printer.Writer(), prompt)

		var text string
		select {
		case <-ctx.Done():
			fmt.Fprintln(d.Printer.Writer())
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(d.Printer.Writer())
				return
			}
			text = line
		}

		fields := strings.Fields(text)
		// "xcf list" and "list" mean the same thing at the prompt.
		if len(fields) > 1 && fields[0] == d.tool {
			fields = fields[1:]
		}
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 && (fields[0] == "exit" || fields[0] == "quit") {
			return
		}

		if err := d.Execute(ctx, fields); err != nil {
			d.Logger.Debug("interactive command failed", zap.Strings("input", fields), zap.Error(err))
		}
	}
}

// readLines feeds Input to the returned channel so the loop can also wait on
// cancellation. The channel is closed at EOF or when done is closed.
func (d *Dispatcher) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(d.Input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			d.Logger.Warn("reading interactive input", zap.Error(err))
		}
	}()
	return lines
}
