package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/xiaot623/pairtalk/internal/domain"
)

const (
	defaultWidth = 78
	minWidth     = 40
)

// screenWidth returns the column count of w when it is a terminal, and
// defaultWidth otherwise.
func screenWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	if width < minWidth {
		return minWidth
	}
	return width
}

// render redraws the whole transcript: own lines on the left, the partner's
// lines right-aligned, warnings underneath.
func render(w io.Writer, view *domain.TranscriptView) {
	renderWidth(w, view, screenWidth(w))
}

func renderWidth(w io.Writer, view *domain.TranscriptView, width int) {
	rule := strings.Repeat("-", width)
	fmt.Fprint(w, "\033[H\033[2J")
	fmt.Fprintf(w, "%s  |  %s\n", view.PairName, view.Topic)
	fmt.Fprintln(w, rule)
	for _, line := range view.Lines {
		if line.Side == domain.SideLeft {
			fmt.Fprintln(w, line.Raw)
			continue
		}
		// Padding counts display columns, so wide characters take two.
		fmt.Fprintln(w, runewidth.FillLeft(line.Raw, width))
	}
	fmt.Fprintln(w, rule)
	for _, warn := range view.Warnings {
		fmt.Fprintf(w, "! %s\n", warn.Message)
	}
}
