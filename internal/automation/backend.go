// Package automation builds and runs a selected project by shelling out to
// the toolchain. The dispatcher treats it as a black box that reports success
// or failure plus a message.
package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/CodeFreezeAI/xcf/internal/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects what the backend does with a project.
type Mode string

const (
	ModeBuild Mode = "build"
	ModeRun   Mode = "run"
)

// Request asks the backend to act on one project.
type Request struct {
	Project catalog.Entry
	Mode    Mode
}

// Result is what the backend reports back.
type Result struct {
	ID        string
	OK        bool
	Message   string
	Command   string
	StartedAt time.Time
	Duration  time.Duration
}

// Backend executes build and run requests.
type Backend interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// ErrNoCommand means no build or run command could be determined.
var ErrNoCommand = errors.New("no command configured")

// Options configure an ExecBackend.
type Options struct {
	Timeout      time.Duration
	BuildCommand string
	RunCommand   string
	// Output receives the command's stdout and stderr.
	Output io.Writer
	// Env is appended to the process environment.
	Env []string
}

// ExecBackend runs commands through sh in the project directory.
type ExecBackend struct {
	opts   Options
	logger *zap.Logger
}

// NewExecBackend creates a shell-backed backend.
func NewExecBackend(opts Options, logger *zap.Logger) *ExecBackend {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecBackend{opts: opts, logger: logger}
}

// CommandFor picks the command for a request: the project's .xcf.yaml first,
// then the configured override, then a default for the project kind.
func (b *ExecBackend) CommandFor(req Request) (string, error) {
	p := req.Project
	if m := p.Manifest; m != nil {
		if req.Mode == ModeBuild && m.Build != "" {
			return m.Build, nil
		}
		if req.Mode == ModeRun && m.Run != "" {
			return m.Run, nil
		}
	}
	if req.Mode == ModeBuild && b.opts.BuildCommand != "" {
		return b.opts.BuildCommand, nil
	}
	if req.Mode == ModeRun && b.opts.RunCommand != "" {
		return b.opts.RunCommand, nil
	}

	switch p.Kind {
	case catalog.KindPackage:
		return "swift " + string(req.Mode), nil
	case catalog.KindWorkspace, catalog.KindProject:
		flag := "-project"
		if p.Kind == catalog.KindWorkspace {
			flag = "-workspace"
		}
		scheme := p.Name
		if p.Manifest != nil && p.Manifest.Scheme != "" {
			scheme = p.Manifest.Scheme
		}
		build := fmt.Sprintf("xcodebuild %s %s -scheme %s -configuration Debug -derivedDataPath .xcf-build build",
			flag, shellQuote(p.Target), shellQuote(scheme))
		if req.Mode == ModeBuild {
			return build, nil
		}
		app := filepath.Join(".xcf-build", "Build", "Products", "Debug", scheme+".app")
		return build + " && open " + shellQuote(app), nil
	}
	return "", fmt.Errorf("%w to %s %s; add %q to %s", ErrNoCommand, req.Mode, p.Name, string(req.Mode)+":", catalog.ManifestName)
}

// Invoke runs the command for req. A command that fails is reported through
// Result; the error return is reserved for requests that cannot start.
func (b *ExecBackend) Invoke(ctx context.Context, req Request) (Result, error) {
	res := Result{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	command, err := b.CommandFor(req)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.Command = command

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = req.Project.Path
	cmd.Stdout = b.opts.Output
	cmd.Stderr = b.opts.Output
	// Grandchildren may hold the output pipe open after sh is killed.
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(), b.opts.Env...)
	cmd.Env = append(cmd.Env,
		"XCF_PROJECT="+req.Project.Path,
		"XCF_ACTION="+string(req.Mode),
	)

	b.logger.Info("invoking automation",
		zap.String("id", res.ID),
		zap.String("mode", string(req.Mode)),
		zap.String("project", req.Project.Path),
		zap.String("command", command))

	runErr := cmd.Run()
	res.Duration = time.Since(res.StartedAt)

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		res.OK = true
		res.Message = fmt.Sprintf("%s of %s succeeded in %s", req.Mode, req.Project.Name, res.Duration.Round(time.Millisecond))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Message = fmt.Sprintf("%s of %s timed out after %s", req.Mode, req.Project.Name, b.opts.Timeout)
	case errors.As(runErr, &exitErr):
		res.Message = fmt.Sprintf("%s of %s failed: exit status %d", req.Mode, req.Project.Name, exitErr.ExitCode())
	default:
		res.Message = fmt.Sprintf("%s of %s could not start: %v", req.Mode, req.Project.Name, runErr)
		b.logger.Error("automation start failed", zap.String("id", res.ID), zap.Error(runErr))
		return res, runErr
	}

	b.logger.Info("automation finished",
		zap.String("id", res.ID),
		zap.Bool("ok", res.OK),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
