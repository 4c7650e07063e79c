package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sweep/pkg/domain"
)

func TestProgress_NotATerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	p.Update(0, 4)
	p.Update(2, 4)
	p.Update(4, 4)
	p.Done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], " 2/4"))
	assert.Equal(t, barWidth, strings.Count(lines[2], "█"))
}

func TestSummary_Markdown(t *testing.T) {
	s := Summary{
		Name:      "quad",
		State:     domain.StateAborted,
		Completed: 3,
		Total:     12,
		Duration:  1500 * time.Millisecond,
		Err:       errors.New("scan aborted by user"),
	}

	md := s.Markdown()
	assert.Contains(t, md, "# Scan `quad`")
	assert.Contains(t, md, "**aborted**")
	assert.Contains(t, md, "3 / 12")
	assert.Contains(t, md, "1.5s")
	assert.Contains(t, md, "> scan aborted by user")

	out, err := NewRenderer(false)(md)
	require.NoError(t, err)
	assert.Equal(t, md, out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), `\_/\_/`)
}
