package slip

import (
	"fmt"
	"slices"
)

// Alignment is a paragraph's horizontal alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return fmt.Sprintf("Alignment(%d)", int(a))
}

// Font is the face and size every written run uses.
type Font struct {
	Name   string
	SizePt float64
}

// DefaultFont is the document face of the routing slip.
var DefaultFont = Font{Name: "仿宋_GB2312", SizePt: 10.5}

// DefaultFirstLineIndentPt is the first-line indent of indented opinion text.
const DefaultFirstLineIndentPt = 21

// Paragraph is one paragraph to emit into a cell.
type Paragraph struct {
	Text              string
	Align             Alignment
	FirstLineIndentPt float64
}

// Cell is one writable cell of a template grid.
type Cell interface {
	// SetText replaces the cell content with a single paragraph.
	SetText(text string, font Font, align Alignment)
	// SetParagraphs removes every paragraph and emits ps in order.
	SetParagraphs(ps []Paragraph, font Font)
	// SetAlignment aligns every paragraph of the cell.
	SetAlignment(align Alignment)
	// Alignments reports the alignment of each paragraph.
	Alignments() []Alignment
}

// Grid addresses cells of the template's first table by 0-based row and
// grid column. Merged cells answer for every position they cover.
type Grid interface {
	Cell(row, col int) (Cell, error)
	RowCells(row int) ([]Cell, error)
}

// Placement writes a field into a cell on a single line. Date fields are
// written in their long form.
type Placement struct {
	Field Field
	Row   int
	Col   int
}

// MultilinePolicy writes a long-text field as split paragraphs.
type MultilinePolicy struct {
	Field           Field
	Row             int
	Col             int
	Enabled         bool
	LastLineRight   bool
	FirstLineIndent bool
}

// Layout is where each field lands in the grid.
type Layout struct {
	Single     []Placement
	Multiline  []MultilinePolicy
	CenterRows []int
}

// DefaultLayout is the routing-slip grid: header rows 0-3 centered, draft
// opinion written as paragraphs, the other long-text fields wired but off.
func DefaultLayout() Layout {
	return Layout{
		Single: []Placement{
			{Field: FieldSender, Row: 1, Col: 1},
			{Field: FieldIssueDate, Row: 1, Col: 3},
			{Field: FieldReceiptDate, Row: 1, Col: 5},
			{Field: FieldReferenceNumber, Row: 2, Col: 1},
			{Field: FieldCopyCount, Row: 2, Col: 3},
			{Field: FieldPageCount, Row: 2, Col: 5},
			{Field: FieldIncomingType, Row: 3, Col: 1},
			{Field: FieldDisclosureLevel, Row: 3, Col: 3},
			{Field: FieldUrgency, Row: 3, Col: 5},
			{Field: FieldSourceReferenceNumber, Row: 4, Col: 1},
			{Field: FieldSupervisionDeadline, Row: 4, Col: 5},
			{Field: FieldTitle, Row: 5, Col: 1},
		},
		Multiline: []MultilinePolicy{
			{Field: FieldDraftOpinion, Row: 6, Col: 1, Enabled: true},
			{Field: FieldApprovalOpinion, Row: 7, Col: 1},
			{Field: FieldCirculationOpinion, Row: 8, Col: 1},
			{Field: FieldHandlingStatus, Row: 9, Col: 1},
		},
		CenterRows: []int{0, 1, 2, 3},
	}
}

// Check returns an error naming the first position of l that g lacks.
// Disabled multiline fields are not checked.
func (l Layout) Check(g Grid) error {
	for _, p := range l.Single {
		if _, err := g.Cell(p.Row, p.Col); err != nil {
			return fmt.Errorf("field %s: %w", p.Field, err)
		}
	}
	for _, m := range l.Multiline {
		if !m.Enabled {
			continue
		}
		if _, err := g.Cell(m.Row, m.Col); err != nil {
			return fmt.Errorf("field %s: %w", m.Field, err)
		}
	}
	for _, row := range l.CenterRows {
		if _, err := g.RowCells(row); err != nil {
			return fmt.Errorf("center row %d: %w", row, err)
		}
	}
	return nil
}

// FillerConfig configures a Filler. Zero fields take the routing-slip defaults.
type FillerConfig struct {
	Layout            *Layout
	Font              Font
	FirstLineIndentPt float64
	Dates             DateNormalizer
	Splitter          Splitter
}

// Filler writes records into template grids.
type Filler struct {
	layout   Layout
	font     Font
	indentPt float64
	dates    DateNormalizer
	splitter Splitter
}

// NewFiller returns a Filler for cfg.
func NewFiller(cfg FillerConfig) *Filler {
	f := &Filler{
		layout:   DefaultLayout(),
		font:     cfg.Font,
		indentPt: cfg.FirstLineIndentPt,
		dates:    cfg.Dates,
		splitter: cfg.Splitter,
	}
	if cfg.Layout != nil {
		f.layout = *cfg.Layout
	}
	if f.font.Name == "" {
		f.font.Name = DefaultFont.Name
	}
	if f.font.SizePt <= 0 {
		f.font.SizePt = DefaultFont.SizePt
	}
	if f.indentPt <= 0 {
		f.indentPt = DefaultFirstLineIndentPt
	}
	if f.dates.UnknownMarker == "" {
		f.dates = NewDateNormalizer("")
	}
	if f.splitter == nil {
		f.splitter = MarkerSplitter{Marker: DefaultParagraphMarker}
	}
	return f
}

// Fill writes rec into g, then centers the header rows. It only mutates g.
func (f *Filler) Fill(g Grid, rec Record) error {
	for _, p := range f.layout.Single {
		cell, err := g.Cell(p.Row, p.Col)
		if err != nil {
			return fmt.Errorf("field %s: %w", p.Field, err)
		}
		cell.SetText(f.singleLine(rec, p.Field), f.font, AlignLeft)
	}

	for _, m := range f.layout.Multiline {
		if !m.Enabled {
			continue
		}
		cell, err := g.Cell(m.Row, m.Col)
		if err != nil {
			return fmt.Errorf("field %s: %w", m.Field, err)
		}
		cell.SetParagraphs(f.paragraphs(rec.Text(m.Field), m), f.font)
	}

	for _, row := range f.layout.CenterRows {
		cells, err := g.RowCells(row)
		if err != nil {
			return fmt.Errorf("center row %d: %w", row, err)
		}
		for _, cell := range cells {
			cell.SetAlignment(AlignCenter)
		}
	}
	return nil
}

func (f *Filler) singleLine(rec Record, field Field) string {
	if field.IsDate() {
		return f.dates.Normalize(rec.Value(field)).Long
	}
	return rec.Text(field)
}

func (f *Filler) paragraphs(text string, m MultilinePolicy) []Paragraph {
	parts := slices.Collect(f.splitter.Split(text))
	ps := make([]Paragraph, 0, len(parts))
	for i, part := range parts {
		p := Paragraph{Text: part, Align: AlignLeft}
		if m.LastLineRight && i == len(parts)-1 {
			p.Align = AlignRight
		}
		if m.FirstLineIndent && i == 0 {
			p.FirstLineIndentPt = f.indentPt
		}
		ps = append(ps, p)
	}
	return ps
}
