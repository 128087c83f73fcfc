package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Console prints operator-facing progress lines. It complements the structured logger:
// progress and the completion marker go to out, problems go to errOut.
type Console struct {
	out    io.Writer
	errOut io.Writer

	progress lipgloss.Style
	failure  lipgloss.Style
}

// NewConsole constructs a Console. Nil writers default to stdout and stderr.
func NewConsole(out, errOut io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	renderer := lipgloss.NewRenderer(out)
	errRenderer := lipgloss.NewRenderer(errOut)
	return &Console{
		out:      out,
		errOut:   errOut,
		progress: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		failure:  errRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

// Progressf prints a highlighted progress line.
func (c *Console) Progressf(format string, args ...any) {
	if c == nil {
		return
	}
	_, _ = fmt.Fprintln(c.out, c.progress.Render(fmt.Sprintf(format, args...)))
}

// Failuref prints a highlighted problem line to the error stream.
func (c *Console) Failuref(format string, args ...any) {
	if c == nil {
		return
	}
	_, _ = fmt.Fprintln(c.errOut, c.failure.Render(fmt.Sprintf(format, args...)))
}

// Done prints the completion marker.
func (c *Console) Done() {
	c.Progressf("all jobs done.")
}
