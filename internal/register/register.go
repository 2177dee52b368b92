// Package register reads the incoming-document register, an .xlsx workbook
// with one received document per row.
package register

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

// ErrHeaderMismatch is returned when a register's captions do not match the column table.
var ErrHeaderMismatch = errors.New("register header does not match column table")

// Options selects what part of the workbook is read.
type Options struct {
	// Sheet names the worksheet; empty means the active sheet.
	Sheet string
}

// Register is a workbook opened for reading. It is never written back.
type Register struct {
	f        *excelize.File
	sheet    string
	date1904 bool
}

var _ slip.RowSource = (*Register)(nil)

// Open opens the workbook at path.
func Open(path string, opts Options) (*Register, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open register %s: %w", path, err)
	}
	return newRegister(f, opts)
}

// OpenReader opens a workbook from r.
func OpenReader(r io.Reader, opts Options) (*Register, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open register: %w", err)
	}
	return newRegister(f, opts)
}

func newRegister(f *excelize.File, opts Options) (*Register, error) {
	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("register has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("register has no sheet %q", sheet)
	}
	props, err := f.GetWorkbookProps()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read workbook properties: %w", err)
	}
	r := &Register{f: f, sheet: sheet}
	if props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	return r, nil
}

// Close releases the workbook.
func (r *Register) Close() error {
	return r.f.Close()
}

// Sheet returns the name of the sheet being read.
func (r *Register) Sheet() string {
	return r.sheet
}

// Cell returns the value at the 1-based row and column: nil for a blank
// cell, bool, time.Time for ISO date cells and for numbers carrying a date
// format (converted with the workbook's own epoch), float64 for other
// numbers and string otherwise.
func (r *Register) Cell(row, column int) (any, error) {
	name, err := excelize.CoordinatesToCellName(column, row)
	if err != nil {
		return nil, err
	}
	raw, err := r.f.GetCellValue(r.sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("cell %s: %w", name, err)
	}
	if raw == "" {
		return nil, nil
	}
	typ, err := r.f.GetCellType(r.sheet, name)
	if err != nil {
		return nil, fmt.Errorf("cell %s: %w", name, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t, nil
		}
		return raw, nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, nil
		}
		isDate, err := r.hasDateFormat(name)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", name, err)
		}
		if isDate {
			if t, err := excelize.ExcelDateToTime(serial, r.date1904); err == nil {
				return t, nil
			}
		}
		return serial, nil
	}
	return raw, nil
}

// hasDateFormat reports whether the cell's number format renders a date.
func (r *Register) hasDateFormat(cell string) (bool, error) {
	idx, err := r.f.GetCellStyle(r.sheet, cell)
	if err != nil {
		return false, err
	}
	style, err := r.f.GetStyle(idx)
	if err != nil {
		return false, err
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt), nil
	}
	return isBuiltInDateFormat(style.NumFmt), nil
}

// isBuiltInDateFormat covers the built-in date and date-time formats,
// including the East Asian ones.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code has a year, month
// or day token outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	var quoted, bracketed, escaped bool
	for _, c := range code {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = c != '"'
		case bracketed:
			bracketed = c != ']'
		case c == '\\':
			escaped = true
		case c == '"':
			quoted = true
		case c == '[':
			bracketed = true
		case strings.ContainsRune("yYdD", c):
			return true
		case (c == 'm' || c == 'M') && !strings.ContainsAny(code, "hHsS"):
			return true
		}
	}
	return false
}

// LastRow returns the 1-based index of the last row holding any value.
func (r *Register) LastRow() (int, error) {
	rows, err := r.f.GetRows(r.sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows of %q: %w", r.sheet, err)
	}
	return len(rows), nil
}

// VerifyHeader compares the captions in headerRow with the column table.
// Columns without an expected header are not checked.
func (r *Register) VerifyHeader(headerRow int, columns slip.ColumnMap) error {
	for _, c := range columns {
		if c.Header == "" {
			continue
		}
		v, err := r.Cell(headerRow, c.Index)
		if err != nil {
			return err
		}
		got := strings.TrimSpace(fmt.Sprint(valueOrEmpty(v)))
		if got != c.Header {
			col, _ := excelize.ColumnNumberToName(c.Index)
			return fmt.Errorf("%w: column %s (field %s) is %q, want %q", ErrHeaderMismatch, col, c.Field, got, c.Header)
		}
	}
	return nil
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
