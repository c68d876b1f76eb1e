package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// statusEntry is one checked item in a status report.
type statusEntry struct {
	label  string
	kind   statusKind
	detail string
}

// statusSection groups entries under a heading such as "Dependencies".
type statusSection struct {
	title   string
	entries []statusEntry
}

func (s *statusSection) add(label string, kind statusKind, detail string) {
	s.entries = append(s.entries, statusEntry{label: label, kind: kind, detail: strings.TrimSpace(detail)})
}

// renderStatusReport aligns labels across every section and closes with a
// tally of warnings and errors.
func renderStatusReport(sections []statusSection, colorize bool) string {
	width := 0
	for _, section := range sections {
		for _, e := range section.entries {
			width = max(width, len(e.label)+1)
		}
	}

	var b strings.Builder
	counts := map[statusKind]int{}
	for i, section := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		heading := "== " + section.title + " =="
		b.WriteString(paint(heading, statusStyles[statusInfo].color, colorize))
		b.WriteByte('\n')
		for _, e := range section.entries {
			counts[e.kind]++
			tag := "[" + statusStyles[e.kind].label + "]"
			if e.detail != "" {
				tag += " " + e.detail
			}
			line := fmt.Sprintf("  %-*s %s", width, e.label+":", tag)
			b.WriteString(paint(line, statusStyles[e.kind].color, colorize))
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "\n%d ok, %d warnings, %d errors", counts[statusOK], counts[statusWarn], counts[statusError])
	return b.String()
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
