package slip

import "fmt"

// RowSource reads one cell by 1-based row and column.
type RowSource interface {
	Cell(row, column int) (any, error)
}

// Extractor reads records out of a register through a fixed column table.
type Extractor struct {
	columns ColumnMap
}

// NewExtractor validates columns and returns an Extractor bound to them.
func NewExtractor(columns ColumnMap) (*Extractor, error) {
	if err := columns.Validate(); err != nil {
		return nil, fmt.Errorf("invalid column table: %w", err)
	}
	return &Extractor{columns: columns}, nil
}

// Columns returns the table the extractor reads through.
func (e *Extractor) Columns() ColumnMap {
	return e.columns
}

// Extract reads every mapped cell of row.
func (e *Extractor) Extract(src RowSource, row int) (Record, error) {
	values := make(map[Field]any, len(e.columns))
	for _, c := range e.columns {
		v, err := src.Cell(row, c.Index)
		if err != nil {
			return Record{}, fmt.Errorf("row %d, field %s (column %d): %w", row, c.Field, c.Index, err)
		}
		if v != nil {
			values[c.Field] = v
		}
	}
	return Record{Row: row, values: values}, nil
}

// AdmissibleRows returns, in order, the rows in [first, last] whose sender is set.
func (e *Extractor) AdmissibleRows(src RowSource, first, last int) ([]int, error) {
	sender, _ := e.columns.Lookup(FieldSender)
	var rows []int
	for row := first; row <= last; row++ {
		v, err := src.Cell(row, sender.Index)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		rec := Record{Row: row, values: map[Field]any{FieldSender: v}}
		if rec.Admissible() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
