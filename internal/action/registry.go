// Package action owns the set of verbs xcf understands and the help text that
// documents them. Both are built from one table so they cannot drift apart.
package action

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Action is one of the fixed CLI verbs.
type Action int

const (
	Unrecognized Action = iota
	Help
	UseMode
	Grant
	List
	Select
	Run
	Build
	Current
	Env
	History
	Config
)

func (a Action) String() string {
	switch a {
	case Help:
		return "help"
	case UseMode:
		return "use"
	case Grant:
		return "grant"
	case List:
		return "list"
	case Select:
		return "select"
	case Run:
		return "run"
	case Build:
		return "build"
	case Current:
		return "current"
	case Env:
		return "env"
	case History:
		return "history"
	case Config:
		return "config"
	default:
		return "unrecognized"
	}
}

// Spec pairs an Action with its keyword and the text shown for it in help.
type Spec struct {
	Action  Action
	Keyword string
	// Phrase is the literal second token required after Keyword (used by "use <tool>").
	Phrase  string
	Args    string
	Summary string
}

// Usage is the left-hand column of the help text, e.g. "select <n>".
func (s Spec) Usage() string {
	parts := []string{s.Keyword}
	if s.Phrase != "" {
		parts = append(parts, s.Phrase)
	}
	if s.Args != "" {
		parts = append(parts, s.Args)
	}
	return strings.Join(parts, " ")
}

// Registry resolves raw keywords into Actions.
type Registry struct {
	toolName string
	specs    []Spec
	byWord   map[string]Spec
}

// NewRegistry builds the keyword table for a tool. The tool name is the
// second token of the activation phrase and is interpolated into the help text.
func NewRegistry(toolName string) *Registry {
	specs := []Spec{
		{Action: Help, Keyword: "help", Summary: "Show this help"},
		{Action: UseMode, Keyword: "use", Phrase: toolName, Summary: fmt.Sprintf("Start an interactive %s session", toolName)},
		{Action: Grant, Keyword: "grant", Summary: fmt.Sprintf("Allow %s to build and run projects", toolName)},
		{Action: List, Keyword: "list", Summary: "List discovered projects with their index"},
		{Action: Select, Keyword: "select", Args: "<n>", Summary: "Select project number n from the list"},
		{Action: Run, Keyword: "run", Summary: "Build and run the selected project"},
		{Action: Build, Keyword: "build", Summary: "Build the selected project"},
		{Action: Current, Keyword: "current", Summary: "Show the selected project"},
		{Action: Env, Keyword: "env", Summary: "Show environment variables and system state"},
		{Action: History, Keyword: "history", Args: "[n]", Summary: "Show the last n build and run results"},
		{Action: Config, Keyword: "config", Args: "[key] [value]", Summary: "View or update configuration settings"},
	}

	byWord := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byWord[s.Keyword] = s
	}

	return &Registry{
		toolName: toolName,
		specs:    specs,
		byWord:   byWord,
	}
}

// ToolName returns the name the registry was built for.
func (r *Registry) ToolName() string {
	return r.toolName
}

// Resolve matches the leading token(s) of input and returns the Action plus
// the remaining arguments. Matching is exact and case-sensitive.
func (r *Registry) Resolve(input []string) (Action, []string) {
	if len(input) == 0 {
		return Unrecognized, nil
	}
	spec, ok := r.byWord[input[0]]
	if !ok {
		return Unrecognized, input[1:]
	}
	rest := input[1:]
	if spec.Phrase != "" {
		if len(rest) == 0 || rest[0] != spec.Phrase {
			return Unrecognized, rest
		}
		rest = rest[1:]
	}
	return spec.Action, rest
}

// Specs returns a copy of the keyword table in help order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Lookup returns the table row for an action.
func (r *Registry) Lookup(a Action) (Spec, bool) {
	for _, s := range r.specs {
		if s.Action == a {
			return s, true
		}
	}
	return Spec{}, false
}

// Phrases returns the full invocation phrase for every action, e.g. "use xcf".
func (r *Registry) Phrases() []string {
	out := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		if s.Phrase != "" {
			out = append(out, s.Keyword+" "+s.Phrase)
			continue
		}
		out = append(out, s.Keyword)
	}
	return out
}

// HelpText renders the help screen.
func (r *Registry) HelpText() string {
	width := 0
	for _, s := range r.specs {
		if n := len(s.Usage()); n > width {
			width = n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s automates Xcode project workflows from the terminal.\n\n", r.toolName)
	b.WriteString("Usage:\n")
	fmt.Fprintf(&b, "  %s <action> [args]\n\n", r.toolName)
	b.WriteString("Actions:\n")
	for _, s := range r.specs {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, s.Usage(), s.Summary)
	}
	return b.String()
}

// Suggest returns the keyword closest to word, if any is within two edits.
func (r *Registry) Suggest(word string) (string, bool) {
	if word == "" {
		return "", false
	}
	best, bestDist := "", 3
	for _, phrase := range r.Phrases() {
		keyword := strings.Fields(phrase)[0]
		d := levenshtein.ComputeDistance(strings.ToLower(word), keyword)
		if d < bestDist {
			best, bestDist = phrase, d
		}
	}
	return best, best != ""
}
