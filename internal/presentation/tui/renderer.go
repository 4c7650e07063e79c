package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/sweep/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// Without a terminal the markdown is returned as is.
func NewRenderer(styled bool) func(string) (string, error) {
	if !styled {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// Summary describes a finished scan.
type Summary struct {
	Name      string
	State     domain.ScanState
	Completed int
	Total     int
	Duration  time.Duration
	Output    string
	Err       error
}

// Markdown formats the summary as a small report.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Scan `%s`\n\n", s.Name)
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| State | **%s** |\n", s.State)
	fmt.Fprintf(&b, "| Positions | %d / %d |\n", s.Completed, s.Total)
	fmt.Fprintf(&b, "| Duration | %s |\n", s.Duration.Round(time.Millisecond))
	if s.Output != "" {
		fmt.Fprintf(&b, "| Data | `%s` |\n", s.Output)
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "\n> %s\n", s.Err)
	}
	return b.String()
}
