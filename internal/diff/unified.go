package diff

import (
	"bufio"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// DefaultContext is the number of context lines used when Options.Context is 0.
const DefaultContext = 3

// Options controls unified rendering.
type Options struct {
	// Context controls the number of CONTEXT LINES in unified hunks.
	// If 0, default to 3.
	Context int

	// Color styles headers, hunk ranges and +/- lines. Styling follows the
	// capabilities of the destination writer, so a pipe or a file still gets
	// plain text.
	Color bool
}

// WriteUnified renders d as a unified patch for aName↦bName.
// Nothing is written when the two sides are identical.
func (d *Diff) WriteUnified(w io.Writer, aName, bName string, opt Options) error {
	if !d.Changed() {
		return nil
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = DefaultContext
	}
	var pal *palette
	if opt.Color {
		pal = newPalette(w)
	}

	// GetGroupedOpCodes rewrites the matcher's cached opcodes, so each
	// rendering gets its own matcher over the same lines.
	m := newMatcher(d.a, d.b)

	bw := bufio.NewWriter(w)
	pal.line(bw, pal.headStyle(), "--- "+aName)
	pal.line(bw, pal.headStyle(), "+++ "+bName)
	for _, g := range m.GetGroupedOpCodes(ctx) {
		first, last := g[0], g[len(g)-1]
		pal.line(bw, pal.hunkStyle(), fmt.Sprintf("@@ -%s +%s @@",
			formatRange(first.I1, last.I2), formatRange(first.J1, last.J2)))
		for _, op := range g {
			if op.Tag == 'e' {
				pal.lines(bw, Equal, d.a[op.I1:op.I2])
				continue
			}
			if op.Tag == 'r' || op.Tag == 'd' {
				pal.lines(bw, Delete, d.a[op.I1:op.I2])
			}
			if op.Tag == 'r' || op.Tag == 'i' {
				pal.lines(bw, Insert, d.b[op.J1:op.J2])
			}
		}
	}
	return bw.Flush()
}

// formatRange converts a half-open line range to unified "start,length"
// notation. Lines are 1-based; an empty range names the line before it.
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

// palette holds the lipgloss styles for coloured output. A nil palette
// writes plain text.
type palette struct {
	head, hunk, add, del lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return &palette{
		head: base.Bold(true),
		hunk: base.Foreground(lipgloss.Color("6")),
		add:  base.Foreground(lipgloss.Color("2")),
		del:  base.Foreground(lipgloss.Color("1")),
	}
}

func (p *palette) headStyle() *lipgloss.Style {
	if p == nil {
		return nil
	}
	return &p.head
}

func (p *palette) hunkStyle() *lipgloss.Style {
	if p == nil {
		return nil
	}
	return &p.hunk
}

func (p *palette) kindStyle(k Kind) *lipgloss.Style {
	if p == nil {
		return nil
	}
	switch k {
	case Insert:
		return &p.add
	case Delete:
		return &p.del
	}
	return nil
}

func (p *palette) lines(w *bufio.Writer, k Kind, lines []string) {
	st := p.kindStyle(k)
	for _, l := range lines {
		p.line(w, st, k.prefix()+l)
	}
}

// line writes s and a newline, styled when st is non-nil. Errors surface
// from the final Flush.
func (p *palette) line(w *bufio.Writer, st *lipgloss.Style, s string) {
	if st != nil {
		s = st.Render(s)
	}
	_, _ = w.WriteString(s)
	_ = w.WriteByte('\n')
}
