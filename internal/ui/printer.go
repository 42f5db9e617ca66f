// Package ui renders xcf's console output.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// xcf Color Palette
var (
	ColorPrimary = lipgloss.Color("#7C3AED") // Violet
	ColorAccent  = lipgloss.Color("#F59E0B") // Amber

	ColorSuccess = lipgloss.Color("#10B981") // Emerald
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue

	ColorMuted = lipgloss.Color("#6B7280") // Gray
	ColorBold  = lipgloss.Color("#F3F4F6") // Almost White

	ColorMagic   = lipgloss.Color("#EC4899") // Pink
	ColorNeon    = lipgloss.Color("#22D3EE") // Bright Cyan
	ColorSunrise = lipgloss.Color("#FB923C") // Orange
)

// Printer writes styled lines to one writer. Color is detected from the
// writer, so output to pipes and buffers is plain text.
type Printer struct {
	w    io.Writer
	errW io.Writer

	title     lipgloss.Style
	success   lipgloss.Style
	errStyle  lipgloss.Style
	warning   lipgloss.Style
	info      lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	muted     lipgloss.Style
	bullet    lipgloss.Style
	command   lipgloss.Style
	highlight lipgloss.Style

	badgeSuccess lipgloss.Style
	badgeError   lipgloss.Style
	badgeInfo    lipgloss.Style
	badgeWarning lipgloss.Style
}

// New creates a printer for w. color=false forces plain output.
func New(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Printer{
		w:         w,
		errW:      w,
		title:     r.NewStyle().Bold(true).Foreground(ColorPrimary),
		success:   r.NewStyle().Bold(true).Foreground(ColorSuccess),
		errStyle:  r.NewStyle().Bold(true).Foreground(ColorError),
		warning:   r.NewStyle().Foreground(ColorWarning),
		info:      r.NewStyle().Foreground(ColorInfo),
		label:     r.NewStyle().Foreground(ColorNeon).Bold(true),
		value:     r.NewStyle().Foreground(ColorBold),
		muted:     r.NewStyle().Foreground(ColorMuted),
		bullet:    r.NewStyle().Foreground(ColorMagic).Bold(true),
		command:   r.NewStyle().Foreground(ColorSunrise).Bold(true),
		highlight: r.NewStyle().Foreground(ColorAccent).Bold(true),

		badgeSuccess: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#000")).Background(ColorSuccess),
		badgeError:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFF")).Background(ColorError),
		badgeInfo:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFF")).Background(ColorInfo),
		badgeWarning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#000")).Background(ColorWarning),
	}
}

// Writer returns the underlying writer, e.g. for streaming subprocess output.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// WithErrors sends Error and Warning lines to w instead of the main writer.
func (p *Printer) WithErrors(w io.Writer) *Printer {
	p.errW = w
	return p
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

// Plain writes s unstyled.
func (p *Printer) Plain(s string) {
	fmt.Fprint(p.w, s)
	if !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) Title(emoji, title string) {
	p.println("")
	p.println(p.title.Render(emoji + " " + title))
	p.println(p.muted.Render("─────────────────────────────────────────────"))
}

func (p *Printer) KeyValue(key, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(key+":"), p.value.Render(value))
}

func (p *Printer) KeyValueHighlight(key, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(key+":"), p.highlight.Render(value))
}

// KeyValueMuted is used for unset or default values.
func (p *Printer) KeyValueMuted(key, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(key+":"), p.muted.Render(value))
}

func (p *Printer) Success(message string) {
	p.println(p.badgeSuccess.Render(" OK ") + " " + p.success.Render(message))
}

func (p *Printer) Error(message string) {
	fmt.Fprintln(p.errW, p.badgeError.Render(" ERROR ")+" "+p.errStyle.Render(message))
}

func (p *Printer) Warning(message string) {
	fmt.Fprintln(p.errW, p.badgeWarning.Render(" WARN ")+" "+p.warning.Render(message))
}

func (p *Printer) Info(message string) {
	p.println(p.info.Render(message))
}

func (p *Printer) Status(badge, message string) {
	p.println(p.badgeInfo.Render(" "+badge+" ") + " " + p.value.Render(message))
}

// Command prints a hint such as `run "xcf grant" first`.
func (p *Printer) Command(prefix, cmd, suffix string) {
	line := p.info.Render(prefix) + " " + p.command.Render(cmd)
	if suffix != "" {
		line += " " + p.info.Render(suffix)
	}
	p.println(line)
}

// Row is one line of an indexed listing.
type Row struct {
	Index int
	Name  string
	Meta  string
	Mark  bool
}

// Rows prints an indexed listing with names padded to a common display
// width. Marked rows are highlighted.
func (p *Printer) Rows(rows []Row) {
	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.Name); w > width {
			width = w
		}
	}
	digits := len(fmt.Sprint(len(rows)))

	for _, r := range rows {
		idx := fmt.Sprintf("%*d.", digits, r.Index)
		name := runewidth.FillRight(r.Name, width)
		nameStyle := p.value
		marker := " "
		if r.Mark {
			nameStyle = p.highlight
			marker = "*"
		}
		fmt.Fprintf(p.w, "%s %s %s  %s\n", p.bullet.Render(marker), p.label.Render(idx), nameStyle.Render(name), p.muted.Render(r.Meta))
	}
}

func (p *Printer) Newline() {
	p.println("")
}
