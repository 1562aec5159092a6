package report

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazz-dev/urlmedic/internal/checker"
)

const (
	iconTick    = "✔"
	iconCross   = "✖"
	iconWarning = "⚠"
	arrowRight  = "→"
)

// Printer renders check progress and status changes. Colors are only emitted
// when the writer is a terminal.
type Printer struct {
	out      io.Writer
	total    int
	width    int
	progress int

	okStyle   lipgloss.Style
	failStyle lipgloss.Style
	warnStyle lipgloss.Style
	boldStyle lipgloss.Style
}

// NewPrinter creates a Printer for a batch of total URLs.
func NewPrinter(w io.Writer, total int) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:       w,
		total:     total,
		width:     len(strconv.Itoa(total)),
		okStyle:   r.NewStyle().Foreground(lipgloss.Color("2")),
		failStyle: r.NewStyle().Foreground(lipgloss.Color("1")),
		warnStyle: r.NewStyle().Foreground(lipgloss.Color("3")),
		boldStyle: r.NewStyle().Bold(true),
	}
}

// Progress prints one line for a completed check, e.g. "01/12  ✔  200  https://example.com/".
// It has the signature of checker.Request.OnProgress.
func (p *Printer) Progress(res checker.Result) {
	p.progress++
	line := fmt.Sprintf("%0*d/%d  %s  %s  %s",
		p.width, p.progress, p.total, icon(res), res.StatusLabel(), res.URL)
	fmt.Fprintln(p.out, p.style(res).Render(line))
}

// Changes prints a "Changes" section listing every status transition.
// Nothing is printed when there are no changes.
func (p *Printer) Changes(entries []checker.CompareEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.boldStyle.Render("Changes"))
	fmt.Fprintln(p.out)
	for _, e := range entries {
		fmt.Fprintf(p.out, "%s %s  %s  %s\n",
			p.style(e.Previous).Render(e.Previous.StatusLabel()),
			arrowRight,
			p.style(e.Current).Render(e.Current.StatusLabel()),
			e.Previous.URL,
		)
	}
}

func (p *Printer) style(res checker.Result) lipgloss.Style {
	switch {
	case res.StatusCode == http.StatusOK:
		return p.okStyle
	case res.Failed() || res.StatusCode == http.StatusInternalServerError:
		return p.failStyle
	default:
		return p.warnStyle
	}
}

func icon(res checker.Result) string {
	switch {
	case res.StatusCode == http.StatusOK:
		return iconTick
	case res.Failed() || res.StatusCode == http.StatusInternalServerError:
		return iconCross
	default:
		return iconWarning
	}
}
