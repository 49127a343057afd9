package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/typegraph/layout"
	"github.com/wippyai/typegraph/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func useColor() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// renderRows prints a layout dump. The first row is the type itself.
func renderRows(w io.Writer, rows []layout.Row, color bool) {
	if len(rows) == 0 {
		return
	}
	head := fmt.Sprintf("%s %s, %d bits", rows[0].TypeName, rows[0].Name, rows[0].Size)
	if color {
		head = titleStyle.Render(head)
	}
	fmt.Fprintln(w, head)

	for _, r := range rows[1:] {
		offset := fmt.Sprintf("%6d +%-5d", r.Offset, r.Size)
		indent := strings.Repeat("  ", r.Depth)
		name, typ := r.Name, r.TypeName
		if color {
			offset = offsetStyle.Render(offset)
			name = nameStyle.Render(name)
			typ = typeStyle.Render(typ)
		}
		fmt.Fprintf(w, "%s %s%s %s\n", offset, indent, name, typ)
	}
}

func listTypes(w io.Writer, all []*types.Type, color bool) {
	for _, t := range all {
		name := fmt.Sprintf("%-32s", t.Name())
		cat := fmt.Sprintf("%-18s", t.Category())
		if color {
			name = nameStyle.Render(name)
			cat = typeStyle.Render(cat)
		}
		fmt.Fprintf(w, "%4d %s %s %d bits\n", t.ID(), name, cat, t.BitSize())
	}
}
