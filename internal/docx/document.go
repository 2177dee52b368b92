// Package docx opens Word (.docx) templates, exposes the first table as a
// writable grid and saves the result. Only word/document.xml is rewritten;
// every other part of the package is copied through unchanged.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

const mainPart = "word/document.xml"

var (
	// ErrNotDocx is returned for data that is not a Word package.
	ErrNotDocx = errors.New("not a docx package")
	// ErrNoTable is returned when the document body holds no table.
	ErrNoTable = errors.New("document has no table")
	// ErrCellOutOfRange is returned for grid positions the table does not cover.
	ErrCellOutOfRange = errors.New("cell out of range")
)

// Template is an immutable .docx template. Every Instance is an independent
// copy, so nothing written into one instance reaches another.
type Template struct {
	data []byte
}

// NewTemplate checks that data is a Word package with at least one table.
func NewTemplate(data []byte) (*Template, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	if _, err := doc.Table(); err != nil {
		return nil, err
	}
	return &Template{data: bytes.Clone(data)}, nil
}

// LoadTemplate reads and checks the template at path.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	tpl, err := NewTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return tpl, nil
}

// Instance opens a fresh copy of the template.
func (t *Template) Instance() (*Document, error) {
	return Open(t.data)
}

// Document is one opened Word package.
type Document struct {
	parts []*zip.File
	xml   *etree.Document
}

// Open parses a Word package held in data. data must not be modified while
// the Document is in use.
func Open(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	var main *zip.File
	for _, f := range zr.File {
		if f.Name == mainPart {
			main = f
			break
		}
	}
	if main == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, mainPart)
	}

	rc, err := main.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", mainPart, err)
	}
	defer rc.Close()

	xml := etree.NewDocument()
	if _, err := xml.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", mainPart, err)
	}

	return &Document{parts: zr.File, xml: xml}, nil
}

// Table returns the first table of the document body.
func (d *Document) Table() (*Table, error) {
	var body *etree.Element
	if root := d.xml.Root(); root != nil && root.Space == "w" && root.Tag == "document" {
		body = child(root, "body")
	}
	if body == nil {
		return nil, fmt.Errorf("%w: missing w:body", ErrNotDocx)
	}
	tbl := firstDescendant(body, "w", "tbl")
	if tbl == nil {
		return nil, ErrNoTable
	}
	return newTable(tbl), nil
}

// Grid returns the first table as a slip.Grid.
func (d *Document) Grid() (slip.Grid, error) {
	t, err := d.Table()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Save writes the package to w. Parts keep their original order and
// metadata, so saving the same content twice yields identical bytes.
func (d *Document) Save(w io.Writer) error {
	body, err := d.xml.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", mainPart, err)
	}

	zw := zip.NewWriter(w)
	for _, f := range d.parts {
		if f.Name != mainPart {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("failed to copy part %s: %w", f.Name, err)
			}
			continue
		}
		hdr := &zip.FileHeader{Name: mainPart, Method: zip.Deflate, Modified: f.Modified}
		pw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to create part %s: %w", mainPart, err)
		}
		if _, err := pw.Write(body); err != nil {
			return fmt.Errorf("failed to write part %s: %w", mainPart, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize docx: %w", err)
	}
	return nil
}

// Bytes returns the saved package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// firstDescendant walks el depth-first in document order.
func firstDescendant(el *etree.Element, space, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Space == space && child.Tag == tag {
			return child
		}
		if found := firstDescendant(child, space, tag); found != nil {
			return found
		}
	}
	return nil
}
