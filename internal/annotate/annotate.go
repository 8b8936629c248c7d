// SPDX-License-Identifier: MPL-2.0

// Package annotate writes diagnostics that a CI platform renders in its UI.
//
// In GitHub mode every message is a workflow command (`::warning::...`), the
// syntax GitHub Actions turns into warning and error annotations. In plain
// mode the same calls produce styled human-readable lines instead, so local
// runs stay readable.
package annotate

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const (
	// ModeAuto selects ModeGitHub inside GitHub Actions and ModePlain elsewhere.
	ModeAuto Mode = "auto"
	// ModeGitHub emits workflow commands.
	ModeGitHub Mode = "github"
	// ModePlain emits styled human-readable lines.
	ModePlain Mode = "plain"

	// LevelError marks a failure.
	LevelError Level = "error"
	// LevelWarning marks a recoverable problem.
	LevelWarning Level = "warning"
	// LevelNotice marks informational output worth surfacing.
	LevelNotice Level = "notice"
	// LevelDebug is only shown when the job runs with debug logging.
	LevelDebug Level = "debug"

	// GitHubActionsEnv is set to "true" by GitHub Actions runners.
	GitHubActionsEnv = "GITHUB_ACTIONS"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid annotation mode")

type (
	// Mode selects the output syntax.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	InvalidModeError struct {
		Value Mode
	}

	// Level is the severity of an annotation.
	Level string

	// Properties are the optional location fields of an annotation.
	Properties struct {
		Title string
		File  string
		Line  int
	}

	// Annotator writes annotations to a single writer. It is safe for
	// concurrent use.
	Annotator struct {
		mu    sync.Mutex
		w     io.Writer
		mode  Mode
		style plainStyles
	}

	plainStyles struct {
		error   lipgloss.Style
		warning lipgloss.Style
		notice  lipgloss.Style
		debug   lipgloss.Style
		group   lipgloss.Style
	}
)

// Error implements the error interface for InvalidModeError.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid annotation mode %q (valid: auto, github, plain)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// Validate returns an error if the Mode is not recognized. The zero value is
// treated as ModeAuto.
func (m Mode) Validate() error {
	switch m {
	case "", ModeAuto, ModeGitHub, ModePlain:
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// Resolve turns ModeAuto (or "") into a concrete mode using getenv to look
// up GITHUB_ACTIONS.
func (m Mode) Resolve(getenv func(string) string) Mode {
	if m == ModeGitHub || m == ModePlain {
		return m
	}
	if getenv != nil && getenv(GitHubActionsEnv) == "true" {
		return ModeGitHub
	}
	return ModePlain
}

// New creates an Annotator. mode must already be resolved; ModeAuto behaves
// like ModePlain.
func New(w io.Writer, mode Mode) *Annotator {
	r := lipgloss.NewRenderer(w)
	return &Annotator{
		w:    w,
		mode: mode,
		style: plainStyles{
			error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
			warning: r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
			notice:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
			debug:   r.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
			group:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		},
	}
}

// Mode returns the output syntax in use.
func (a *Annotator) Mode() Mode { return a.mode }

// Error writes an error annotation.
func (a *Annotator) Error(msg string) { a.Annotate(LevelError, Properties{}, msg) }

// Warning writes a warning annotation.
func (a *Annotator) Warning(msg string) { a.Annotate(LevelWarning, Properties{}, msg) }

// Notice writes a notice annotation.
func (a *Annotator) Notice(msg string) { a.Annotate(LevelNotice, Properties{}, msg) }

// Debug writes a debug message.
func (a *Annotator) Debug(msg string) { a.Annotate(LevelDebug, Properties{}, msg) }

// Annotate writes one annotation at level with optional properties.
func (a *Annotator) Annotate(level Level, props Properties, msg string) {
	if a.mode == ModeGitHub {
		a.writeLine(FormatCommand(string(level), props.pairs(), msg))
		return
	}

	var style lipgloss.Style
	switch level {
	case LevelError:
		style = a.style.error
	case LevelWarning:
		style = a.style.warning
	case LevelNotice:
		style = a.style.notice
	default:
		style = a.style.debug
	}
	prefix := string(level) + ":"
	if props.Title != "" {
		prefix = string(level) + " (" + props.Title + "):"
	}
	a.writeLine(style.Render(prefix) + " " + msg)
}

// Group opens a collapsible log group. Every Group must be closed with EndGroup.
func (a *Annotator) Group(title string) {
	if a.mode == ModeGitHub {
		a.writeLine(FormatCommand("group", nil, title))
		return
	}
	a.writeLine(a.style.group.Render("── " + title + " ──"))
}

// EndGroup closes the innermost log group.
func (a *Annotator) EndGroup() {
	if a.mode == ModeGitHub {
		a.writeLine(FormatCommand("endgroup", nil, ""))
	}
}

func (a *Annotator) writeLine(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintln(a.w, line)
}

// pairs returns the non-empty properties in the order GitHub documents them.
func (p Properties) pairs() [][2]string {
	var out [][2]string
	if p.Title != "" {
		out = append(out, [2]string{"title", p.Title})
	}
	if p.File != "" {
		out = append(out, [2]string{"file", p.File})
	}
	if p.Line > 0 {
		out = append(out, [2]string{"line", strconv.Itoa(p.Line)})
	}
	return out
}

// FormatCommand renders a workflow command line: `::name k=v,k=v::message`.
func FormatCommand(name string, props [][2]string, msg string) string {
	var b strings.Builder
	b.WriteString("::")
	b.WriteString(name)
	for i, kv := range props {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(EscapeProperty(kv[1]))
	}
	b.WriteString("::")
	b.WriteString(EscapeData(msg))
	return b.String()
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

// EscapeData escapes a workflow command message.
func EscapeData(s string) string { return dataEscaper.Replace(s) }

// EscapeProperty escapes a workflow command property value.
func EscapeProperty(s string) string { return propertyEscaper.Replace(s) }
