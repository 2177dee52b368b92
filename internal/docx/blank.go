package docx

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

	gridColumns = 6
	columnWidth = 1418 // twips
)

// blankCell is one w:tc of the built-in layout.
type blankCell struct {
	label string
	span  int
}

// blankRows is the built-in routing-slip grid. Label cells sit in even grid
// columns; value cells are left empty for the filler.
func blankRows(title string) [][]blankCell {
	h := slip.DefaultHeader
	triple := func(a, b, c slip.Field) []blankCell {
		return []blankCell{{label: h(a)}, {}, {label: h(b)}, {}, {label: h(c)}, {}}
	}
	wide := func(f slip.Field) []blankCell {
		return []blankCell{{label: h(f)}, {span: 5}}
	}
	return [][]blankCell{
		{{label: title, span: gridColumns}},
		triple(slip.FieldSender, slip.FieldIssueDate, slip.FieldReceiptDate),
		triple(slip.FieldReferenceNumber, slip.FieldCopyCount, slip.FieldPageCount),
		triple(slip.FieldIncomingType, slip.FieldDisclosureLevel, slip.FieldUrgency),
		{{label: h(slip.FieldSourceReferenceNumber)}, {span: 3}, {label: h(slip.FieldSupervisionDeadline)}, {}},
		wide(slip.FieldTitle),
		wide(slip.FieldDraftOpinion),
		wide(slip.FieldApprovalOpinion),
		wide(slip.FieldCirculationOpinion),
		wide(slip.FieldHandlingStatus),
	}
}

// opinionRowHeight is the minimum height of the long-text rows, in twips.
const opinionRowHeight = 2400

// BlankTemplate builds the built-in routing-slip template: a ten-row grid
// with the register captions as labels and title across the first row.
func BlankTemplate(title string) (*Template, error) {
	data, err := BlankTemplateBytes(title)
	if err != nil {
		return nil, err
	}
	return NewTemplate(data)
}

// BlankTemplateBytes returns the built-in template as a .docx package.
func BlankTemplateBytes(title string) ([]byte, error) {
	if title == "" {
		title = slip.DefaultSlipLabel
	}
	body, err := blankDocumentXML(title)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{mainPart, body},
	}
	for _, part := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("failed to create part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize blank template: %w", err)
	}
	return buf.Bytes(), nil
}

func blankDocumentXML(title string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement(ns + ":document")
	root.CreateAttr("xmlns:"+ns, wordNamespace)
	body := root.CreateElement(ns + ":body")

	tbl := body.CreateElement(ns + ":tbl")
	tblPr := tbl.CreateElement(ns + ":tblPr")
	tblW := tblPr.CreateElement(ns + ":tblW")
	setAttr(tblW, "w", "5000")
	setAttr(tblW, "type", "pct")
	borders := tblPr.CreateElement(ns + ":tblBorders")
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		b := borders.CreateElement(ns + ":" + side)
		setAttr(b, "val", "single")
		setAttr(b, "sz", "4")
		setAttr(b, "space", "0")
		setAttr(b, "color", "000000")
	}
	setAttr(tblPr.CreateElement(ns+":tblLayout"), "type", "fixed")

	grid := tbl.CreateElement(ns + ":tblGrid")
	for range gridColumns {
		setAttr(grid.CreateElement(ns+":gridCol"), "w", fmt.Sprint(columnWidth))
	}

	rows := blankRows(title)
	for i, cells := range rows {
		tr := tbl.CreateElement(ns + ":tr")
		if i > 5 {
			h := tr.CreateElement(ns + ":trPr").CreateElement(ns + ":trHeight")
			setAttr(h, "val", fmt.Sprint(opinionRowHeight))
		}
		for _, cell := range cells {
			span := max(cell.span, 1)
			tc := tr.CreateElement(ns + ":tc")
			tcPr := tc.CreateElement(ns + ":tcPr")
			tcW := tcPr.CreateElement(ns + ":tcW")
			setAttr(tcW, "w", fmt.Sprint(columnWidth*span))
			setAttr(tcW, "type", "dxa")
			if span > 1 {
				setAttr(tcPr.CreateElement(ns+":gridSpan"), "val", fmt.Sprint(span))
			}
			setAttr(tcPr.CreateElement(ns+":vAlign"), "val", "center")

			p := tc.CreateElement(ns + ":p")
			if cell.label != "" {
				appendRun(p, cell.label, slip.DefaultFont)
			}
			justify(p, slip.AlignLeft)
		}
	}

	body.CreateElement(ns + ":p")
	sectPr := body.CreateElement(ns + ":sectPr")
	pgSz := sectPr.CreateElement(ns + ":pgSz")
	setAttr(pgSz, "w", "11906")
	setAttr(pgSz, "h", "16838")
	pgMar := sectPr.CreateElement(ns + ":pgMar")
	for _, m := range [][2]string{{"top", "1440"}, {"right", "1800"}, {"bottom", "1440"}, {"left", "1800"}, {"header", "851"}, {"footer", "992"}, {"gutter", "0"}} {
		setAttr(pgMar, m[0], m[1])
	}

	return doc.WriteToBytes()
}
