package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sweep banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`  ___ __ __ __ ___ ___ ___ `, "#22d3ee"},
		{` (_-< \ V  V // -_) -_) _ \`, "#38bdf8"},
		{` /__/  \_/\_/ \___\___| .__/`, "#60a5fa"},
		{`                      |_|   `, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
