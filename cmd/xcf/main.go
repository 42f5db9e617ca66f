package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/CodeFreezeAI/xcf/internal/action"
	"github.com/CodeFreezeAI/xcf/internal/dispatch"
	"github.com/CodeFreezeAI/xcf/internal/doctor"
	"github.com/CodeFreezeAI/xcf/internal/sys"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// ToolName is the command name and the second word of `use <tool>`.
var ToolName = "xcf"

func init() {
	// Fill Version and Commit from build info when not set by -ldflags.
	if info, ok := debug.ReadBuildInfo(); ok {
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}

		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if Commit == "none" {
					Commit = setting.Value
				}
			case "vcs.time":
				if BuildDate == "unknown" {
					BuildDate = setting.Value
				}
			}
		}
	}
}

type flags struct {
	verbose bool
	noColor bool
}

// newRootCmd builds the command tree from the action registry. Every action
// is routed through the dispatcher; the cobra layer only parses flags.
func newRootCmd(reg *action.Registry, f *flags, exec func(cmd *cobra.Command, input []string) error) *cobra.Command {
	root := &cobra.Command{
		Use:     reg.ToolName() + " <action> [args]",
		Version: Version,
		Short:   reg.ToolName() + " automates Xcode project workflows from the terminal",
		// Unknown words reach the dispatcher, which reports them.
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exec(cmd, args)
		},
	}
	// An unknown word followed by a flag is still an unknown action.
	root.FParseErrWhitelist.UnknownFlags = true
	root.SetVersionTemplate(fmt.Sprintf("%s %s (commit %s, built %s, %s/%s, %s)\n",
		reg.ToolName(), Version, Commit, BuildDate, runtime.GOOS, runtime.GOARCH, runtime.Version()))

	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().BoolVar(&f.noColor, "no-color", false, "disable colored output")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		msg := err.Error()
		if strings.HasPrefix(msg, "unknown shorthand flag") || strings.HasPrefix(msg, "unknown flag") {
			msg = "invalid argument: " + msg
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s; run `%s help` for usage\n", msg, reg.ToolName())
		return &dispatch.Error{Kind: dispatch.ErrInvalidArgument, Message: msg, Err: err}
	})

	for _, spec := range reg.Specs() {
		spec := spec
		c := &cobra.Command{
			Use:   strings.TrimSpace(spec.Keyword + " " + strings.TrimSpace(spec.Phrase+" "+spec.Args)),
			Short: spec.Summary,
			Args:  cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return exec(cmd, append([]string{spec.Keyword}, args...))
			},
		}
		if spec.Action == action.Help {
			root.SetHelpCommand(c)
			continue
		}
		root.AddCommand(c)
	}

	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		_ = exec(cmd, []string{"help"})
	})
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

func run() int {
	dataDir, err := sys.DataDir(ToolName)
	if err != nil {
		dataDir = os.TempDir()
	}
	doc := doctor.New(ToolName, dataDir, Version)
	defer doc.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := action.NewRegistry(ToolName)
	f := &flags{}

	var a *app
	exec := func(cmd *cobra.Command, input []string) error {
		if a == nil {
			var err error
			a, err = newApp(cmd, reg, f)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", ToolName, err)
				return err
			}
		}
		return a.dispatcher.Execute(cmd.Context(), input)
	}
	defer func() {
		if a != nil {
			a.Close()
		}
	}()

	root := newRootCmd(reg, f, exec)
	root.SetArgs(os.Args[1:])
	return dispatch.ExitCode(root.ExecuteContext(ctx))
}

func main() {
	os.Exit(run())
}
