package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

var (
	_ slip.Grid = (*Table)(nil)
	_ slip.Cell = (*Cell)(nil)
)

// Table addresses a w:tbl by row and grid column. A cell spanning several
// grid columns answers for each of them; a vertically merged continuation
// resolves to the cell where the merge starts.
type Table struct {
	el   *etree.Element
	grid [][]*etree.Element
}

func newTable(el *etree.Element) *Table {
	t := &Table{el: el}
	for _, tr := range children(el, "tr") {
		var row []*etree.Element
		if trPr := child(tr, "trPr"); trPr != nil {
			if before := child(trPr, "gridBefore"); before != nil {
				row = make([]*etree.Element, intAttr(before, "val", 0))
			}
		}
		for _, tc := range children(tr, "tc") {
			target := tc
			if above := t.above(len(row)); above != nil && continuesMerge(tc) {
				target = above
			}
			for range gridSpan(tc) {
				row = append(row, target)
			}
		}
		t.grid = append(t.grid, row)
	}
	return t
}

func (t *Table) above(col int) *etree.Element {
	if len(t.grid) == 0 {
		return nil
	}
	prev := t.grid[len(t.grid)-1]
	if col >= len(prev) {
		return nil
	}
	return prev[col]
}

func gridSpan(tc *etree.Element) int {
	if tcPr := child(tc, "tcPr"); tcPr != nil {
		if span := child(tcPr, "gridSpan"); span != nil {
			if n := intAttr(span, "val", 1); n > 1 {
				return n
			}
		}
	}
	return 1
}

func continuesMerge(tc *etree.Element) bool {
	tcPr := child(tc, "tcPr")
	if tcPr == nil {
		return false
	}
	vm := child(tcPr, "vMerge")
	if vm == nil {
		return false
	}
	v, ok := attr(vm, "val")
	return !ok || v == "continue"
}

func intAttr(el *etree.Element, key string, fallback int) int {
	v, ok := attr(el, key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Rows returns the number of table rows.
func (t *Table) Rows() int {
	return len(t.grid)
}

// Cell implements slip.Grid.
func (t *Table) Cell(row, col int) (slip.Cell, error) {
	return t.At(row, col)
}

// At returns the cell covering (row, col).
func (t *Table) At(row, col int) (*Cell, error) {
	if row < 0 || row >= len(t.grid) || col < 0 || col >= len(t.grid[row]) || t.grid[row][col] == nil {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrCellOutOfRange, row, col)
	}
	return &Cell{tc: t.grid[row][col]}, nil
}

// RowCells implements slip.Grid. Merged cells are returned once.
func (t *Table) RowCells(row int) ([]slip.Cell, error) {
	if row < 0 || row >= len(t.grid) {
		return nil, fmt.Errorf("%w: row %d", ErrCellOutOfRange, row)
	}
	var cells []slip.Cell
	seen := make(map[*etree.Element]bool)
	for _, tc := range t.grid[row] {
		if tc == nil || seen[tc] {
			continue
		}
		seen[tc] = true
		cells = append(cells, &Cell{tc: tc})
	}
	return cells, nil
}

// Cell is one w:tc.
type Cell struct {
	tc *etree.Element
}

// Text returns the cell's paragraphs joined by newlines.
func (c *Cell) Text() string {
	var lines []string
	for _, p := range children(c.tc, "p") {
		lines = append(lines, paragraphText(p))
	}
	return strings.Join(lines, "\n")
}

// Paragraphs returns the text of each paragraph.
func (c *Cell) Paragraphs() []string {
	var out []string
	for _, p := range children(c.tc, "p") {
		out = append(out, paragraphText(p))
	}
	return out
}

// SetText keeps the first paragraph's properties, drops every other
// paragraph and writes text as a single run.
func (c *Cell) SetText(text string, font slip.Font, align slip.Alignment) {
	ps := children(c.tc, "p")
	var p *etree.Element
	if len(ps) == 0 {
		p = c.tc.CreateElement(ns + ":p")
	} else {
		p = ps[0]
		for _, extra := range ps[1:] {
			c.tc.RemoveChild(extra)
		}
		clearParagraph(p)
	}
	appendRun(p, text, font)
	justify(p, align)
}

// SetParagraphs replaces every paragraph of the cell with ps. A cell must
// end in a paragraph, so an empty ps leaves one empty paragraph behind.
func (c *Cell) SetParagraphs(ps []slip.Paragraph, font slip.Font) {
	for _, p := range children(c.tc, "p") {
		c.tc.RemoveChild(p)
	}
	if len(ps) == 0 {
		c.tc.CreateElement(ns + ":p")
		return
	}
	for _, para := range ps {
		p := c.tc.CreateElement(ns + ":p")
		pPr := p.CreateElement(ns + ":pPr")
		if para.FirstLineIndentPt > 0 {
			setAttr(pPr.CreateElement(ns+":ind"), "firstLine", twips(para.FirstLineIndentPt))
		}
		setAttr(pPr.CreateElement(ns+":jc"), "val", jcValue(para.Align))
		appendRun(p, para.Text, font)
	}
}

// SetAlignment implements slip.Cell.
func (c *Cell) SetAlignment(align slip.Alignment) {
	for _, p := range children(c.tc, "p") {
		justify(p, align)
	}
}

// Alignments implements slip.Cell.
func (c *Cell) Alignments() []slip.Alignment {
	var out []slip.Alignment
	for _, p := range children(c.tc, "p") {
		out = append(out, paragraphAlignment(p))
	}
	return out
}

// FirstLineIndents reports each paragraph's first-line indent in twips.
func (c *Cell) FirstLineIndents() []int {
	var out []int
	for _, p := range children(c.tc, "p") {
		indent := 0
		if pPr := child(p, "pPr"); pPr != nil {
			if ind := child(pPr, "ind"); ind != nil {
				indent = intAttr(ind, "firstLine", 0)
			}
		}
		out = append(out, indent)
	}
	return out
}

func clearParagraph(p *etree.Element) {
	for _, el := range p.ChildElements() {
		if !isW(el, "pPr") {
			p.RemoveChild(el)
		}
	}
}

// appendRun writes text as one run in font; tabs and line breaks become
// their Word elements.
func appendRun(p *etree.Element, text string, font slip.Font) {
	r := p.CreateElement(ns + ":r")
	rPr := r.CreateElement(ns + ":rPr")
	fonts := ensureOrdered(rPr, "rFonts", rPrOrder)
	setAttr(fonts, "ascii", font.Name)
	setAttr(fonts, "hAnsi", font.Name)
	setAttr(fonts, "eastAsia", font.Name)
	setAttr(ensureOrdered(rPr, "sz", rPrOrder), "val", halfPoints(font.SizePt))

	text = strings.ReplaceAll(text, "\r\n", "\n")
	var chunk strings.Builder
	flush := func() {
		if chunk.Len() == 0 {
			return
		}
		t := r.CreateElement(ns + ":t")
		s := chunk.String()
		if strings.TrimSpace(s) != s {
			t.CreateAttr("xml:space", "preserve")
		}
		t.SetText(s)
		chunk.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.CreateElement(ns + ":tab")
		case '\n', '\r':
			flush()
			r.CreateElement(ns + ":br")
		default:
			chunk.WriteRune(ch)
		}
	}
	flush()
}

func justify(p *etree.Element, align slip.Alignment) {
	pPr := ensureFirst(p, "pPr")
	setAttr(ensureOrdered(pPr, "jc", pPrOrder), "val", jcValue(align))
}

func jcValue(a slip.Alignment) string {
	switch a {
	case slip.AlignCenter:
		return "center"
	case slip.AlignRight:
		return "right"
	}
	return "left"
}

func paragraphAlignment(p *etree.Element) slip.Alignment {
	pPr := child(p, "pPr")
	if pPr == nil {
		return slip.AlignLeft
	}
	jc := child(pPr, "jc")
	if jc == nil {
		return slip.AlignLeft
	}
	switch v, _ := attr(jc, "val"); v {
	case "center":
		return slip.AlignCenter
	case "right", "end":
		return slip.AlignRight
	}
	return slip.AlignLeft
}

func paragraphText(p *etree.Element) string {
	var b strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			switch {
			case isW(c, "t"):
				b.WriteString(c.Text())
			case isW(c, "tab"):
				b.WriteByte('\t')
			case isW(c, "br"):
				b.WriteByte('\n')
			case isW(c, "r"), isW(c, "hyperlink"), isW(c, "ins"), isW(c, "smartTag"):
				walk(c)
			}
		}
	}
	walk(p)
	return b.String()
}
