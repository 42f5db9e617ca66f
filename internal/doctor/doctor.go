// Package doctor turns an unexpected panic into a crash report on disk and a
// distinct exit code.
package doctor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// ExitCrash is the exit code after a recovered panic.
const ExitCrash = 70

// HealthScore summarizes recent crash history.
type HealthScore int

const (
	HealthUnknown HealthScore = iota
	HealthGood
	HealthDegraded
	HealthCritical
)

func (h HealthScore) String() string {
	switch h {
	case HealthGood:
		return "good"
	case HealthDegraded:
		return "degraded"
	case HealthCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Report is the JSON document written for each crash.
type Report struct {
	Error     string    `json:"error"`
	Stack     string    `json:"stack"`
	Version   string    `json:"version"`
	Args      []string  `json:"args"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
}

// Doctor writes crash reports into Dir.
type Doctor struct {
	Tool    string
	Dir     string
	Version string
	Out     io.Writer
	exit    func(int)
}

// New creates a doctor that keeps reports under <dataDir>/crash_logs.
func New(tool, dataDir, version string) *Doctor {
	return &Doctor{
		Tool:    tool,
		Dir:     filepath.Join(dataDir, "crash_logs"),
		Version: version,
		Out:     os.Stderr,
		exit:    os.Exit,
	}
}

// Recover is deferred at the top of main. It catches a panic, saves a report
// and exits with ExitCrash.
func (d *Doctor) Recover() {
	r := recover()
	if r == nil {
		return
	}

	err := fmt.Errorf("panic: %v", r)
	fmt.Fprintf(d.Out, "\n%s crashed: %v\n", d.Tool, err)

	path, logErr := d.LogCrash(err, string(debug.Stack()))
	if logErr != nil {
		fmt.Fprintf(d.Out, "could not save crash report: %v\n", logErr)
	} else {
		fmt.Fprintf(d.Out, "Crash report saved to %s\n", path)
	}

	if d.AnalyzeHealth(time.Now()) == HealthCritical {
		fmt.Fprintln(d.Out, "Several crashes in the last hour. Check the reports above before retrying.")
	}

	d.exit(ExitCrash)
}

// LogCrash writes a crash report and returns its path.
func (d *Doctor) LogCrash(err error, stack string) (string, error) {
	if mkErr := os.MkdirAll(d.Dir, 0755); mkErr != nil {
		return "", fmt.Errorf("creating crash log dir: %w", mkErr)
	}

	now := time.Now()
	report := Report{
		Error:     err.Error(),
		Stack:     stack,
		Version:   d.Version,
		Args:      os.Args,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Timestamp: now,
	}
	data, mErr := json.MarshalIndent(report, "", "  ")
	if mErr != nil {
		return "", fmt.Errorf("encoding crash report: %w", mErr)
	}

	path := filepath.Join(d.Dir, fmt.Sprintf("crash_%s.json", now.Format("20060102_150405.000")))
	if wErr := os.WriteFile(path, data, 0644); wErr != nil {
		return "", fmt.Errorf("writing crash report: %w", wErr)
	}
	return path, nil
}

// AnalyzeHealth counts crash reports written within the hour before now.
func (d *Doctor) AnalyzeHealth(now time.Time) HealthScore {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return HealthGood
		}
		return HealthUnknown
	}

	recent := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "crash_") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= time.Hour {
			recent++
		}
	}

	switch {
	case recent >= 3:
		return HealthCritical
	case recent >= 1:
		return HealthDegraded
	default:
		return HealthGood
	}
}
