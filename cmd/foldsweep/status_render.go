package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"foldsweep/internal/preflight"
)

type checkState int

const (
	checkInfo checkState = iota
	checkPass
	checkWarn
	checkFail
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

var checkStyles = map[checkState]struct{ tag, color string }{
	checkInfo: {"INFO", ansiCyan},
	checkPass: {"OK", ansiGreen},
	checkWarn: {"WARN", ansiYellow},
	checkFail: {"FAIL", ansiRed},
}

const checkLabelWidth = 22

// statusReport collects the lines printed by `foldsweep status`.
type statusReport struct {
	lines    []string
	colorize bool
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{colorize: shouldColorize(w)}
}

func (r *statusReport) paint(color, text string) string {
	if !r.colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	title = strings.TrimSpace(title)
	r.lines = append(r.lines,
		r.paint(ansiCyan, title),
		r.paint(ansiCyan, strings.Repeat("=", len(title))),
	)
}

func (r *statusReport) line(label string, state checkState, message string) {
	style := checkStyles[state]
	text := fmt.Sprintf("  %-*s [%s]", checkLabelWidth, label+":", style.tag)
	if message != "" {
		text += " " + message
	}
	r.lines = append(r.lines, r.paint(style.color, text))
}

// checks writes a summary followed by one line per result. Warnings are
// printed under the result they belong to.
func (r *statusReport) checks(results []preflight.Result) {
	var failed, warned int
	for _, result := range results {
		switch checkStateOf(result) {
		case checkFail:
			failed++
		case checkWarn:
			warned++
		}
	}
	switch {
	case len(results) == 0:
		r.line("Summary", checkInfo, "no checks ran")
	case failed > 0:
		r.line("Summary", checkFail, fmt.Sprintf("%d of %d checks failed", failed, len(results)))
	case warned > 0:
		r.line("Summary", checkWarn, fmt.Sprintf("all checks passed, %d with warnings", warned))
	default:
		r.line("Summary", checkPass, "all checks passed")
	}
	for _, result := range results {
		state := checkStateOf(result)
		r.line(result.Name, state, result.Detail)
		if state == checkWarn {
			r.lines = append(r.lines, r.paint(ansiYellow, fmt.Sprintf("  %-*s %s", checkLabelWidth, "", result.Warning)))
		}
	}
}

func (r *statusReport) String() string {
	return strings.Join(r.lines, "\n")
}

func checkStateOf(result preflight.Result) checkState {
	switch {
	case !result.Passed:
		return checkFail
	case result.Warning != "":
		return checkWarn
	default:
		return checkPass
	}
}

// shouldColorize reports whether w is a terminal and NO_COLOR is unset.
func shouldColorize(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
