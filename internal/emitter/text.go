package emitter

import (
	"strings"
	"unicode/utf8"
)

// Wrap breaks text into lines of at most width runes. Words longer than
// width get a line of their own. Existing line breaks are treated as spaces.
func Wrap(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	n := 0
	for _, word := range strings.Fields(text) {
		wl := utf8.RuneCountInString(word)
		if n > 0 && n+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(word)
		n += wl
	}
	if n > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// WrapIndent wraps text and prefixes every line, one line per "\n".
func WrapIndent(text, prefix string, width int) string {
	var b strings.Builder
	for _, l := range Wrap(text, width) {
		b.WriteString(prefix)
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// Table lays out rows in fixed-width columns. A column is as wide as its
// widest cell, header included, and never narrower than its floor.
type Table struct {
	indent  string
	gap     string
	headers []string
	floors  []int
	rows    [][]string
}

// NewTable starts a table with the given header row.
func NewTable(indent string, headers ...string) *Table {
	return &Table{indent: indent, gap: "   ", headers: headers}
}

// Floor sets minimum column widths, in column order.
func (t *Table) Floor(widths ...int) *Table {
	t.floors = widths
	return t
}

// Add appends a row. Missing cells are empty.
func (t *Table) Add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) widths() []int {
	w := make([]int, len(t.headers))
	for i, h := range t.headers {
		w[i] = utf8.RuneCountInString(h)
		if i < len(t.floors) {
			w[i] = max(w[i], t.floors[i])
		}
	}
	for _, row := range t.rows {
		for i := 0; i < len(w) && i < len(row); i++ {
			w[i] = max(w[i], utf8.RuneCountInString(row[i]))
		}
	}
	return w
}

// String renders the header, a rule and the rows. Lines carry no trailing
// whitespace.
func (t *Table) String() string {
	w := t.widths()
	var b strings.Builder
	t.line(&b, w, t.headers)
	total := 0
	for i, n := range w {
		total += n
		if i > 0 {
			total += len(t.gap)
		}
	}
	b.WriteString(t.indent)
	b.WriteString(strings.Repeat("-", total))
	b.WriteByte('\n')
	for _, row := range t.rows {
		t.line(&b, w, row)
	}
	return b.String()
}

func (t *Table) line(b *strings.Builder, w []int, cells []string) {
	var l strings.Builder
	l.WriteString(t.indent)
	for i := range w {
		if i > 0 {
			l.WriteString(t.gap)
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		l.WriteString(cell)
		l.WriteString(strings.Repeat(" ", w[i]-utf8.RuneCountInString(cell)))
	}
	b.WriteString(strings.TrimRight(l.String(), " "))
	b.WriteByte('\n')
}
