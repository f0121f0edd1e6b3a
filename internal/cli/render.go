package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorWarn   = lipgloss.Color("#DA702C")
)

// Table is a bordered text table for command output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Align sets per-column alignment; missing entries align left.
	Align []lipgloss.Position
}

// Renderer draws titles and tables for one output stream. Colours are
// dropped when the stream is not a terminal, so piped output stays plain.
type Renderer struct {
	title  lipgloss.Style
	header lipgloss.Style
	value  lipgloss.Style
	warn   lipgloss.Style
	dim    lipgloss.Style
	box    lipgloss.Style
}

func NewRenderer(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		title:  r.NewStyle().Bold(true).Foreground(colorText),
		header: r.NewStyle().Bold(true).Foreground(colorAccent),
		value:  r.NewStyle().Foreground(colorText),
		warn:   r.NewStyle().Foreground(colorWarn),
		dim:    r.NewStyle().Foreground(colorBorder),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
	}
}

// Title renders title inside a rounded box.
func (r *Renderer) Title(title string) string {
	return r.box.Render(r.title.Render(title))
}

// Warn renders a highlighted single line.
func (r *Renderer) Warn(s string) string {
	return r.warn.Render(s)
}

// Table renders t with a header row. A row holding the single cell "---"
// is drawn as a separator.
func (r *Renderer) Table(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i := 0; i < numCols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(r.header.Render(t.Title))
		b.WriteString("\n")
	}

	r.rule(&b, widths, "╭", "┬", "╮")
	if len(t.Headers) > 0 {
		r.row(&b, widths, t.Headers, nil, r.header)
		r.rule(&b, widths, "├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			r.rule(&b, widths, "├", "┼", "┤")
			continue
		}
		r.row(&b, widths, row, t.Align, r.value)
	}
	r.rule(&b, widths, "╰", "┴", "╯")
	return b.String()
}

func (r *Renderer) rule(b *strings.Builder, widths []int, left, mid, right string) {
	b.WriteString(r.dim.Render(left))
	for i, w := range widths {
		b.WriteString(r.dim.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			b.WriteString(r.dim.Render(mid))
		}
	}
	b.WriteString(r.dim.Render(right))
	b.WriteString("\n")
}

func (r *Renderer) row(b *strings.Builder, widths []int, cells []string, align []lipgloss.Position, style lipgloss.Style) {
	b.WriteString(r.dim.Render("│"))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pos := lipgloss.Left
		if i < len(align) {
			pos = align[i]
		}
		b.WriteString(style.Render(" " + lipgloss.PlaceHorizontal(w, pos, cell) + " "))
		b.WriteString(r.dim.Render("│"))
	}
	b.WriteString("\n")
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == "---"
}
