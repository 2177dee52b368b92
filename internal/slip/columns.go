package slip

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a column table names a field the record model lacks.
var ErrUnknownField = errors.New("unknown field")

// DefaultFirstColumn is the 1-based register column holding the sender.
const DefaultFirstColumn = 2

// defaultHeaders are the register's column captions in field order.
var defaultHeaders = map[Field]string{
	FieldSender:                "来文单位",
	FieldIssueDate:             "发文日期",
	FieldReceiptDate:           "收文日期",
	FieldReferenceNumber:       "文件编号",
	FieldCopyCount:             "文件份数",
	FieldPageCount:             "文件页数",
	FieldIncomingType:          "来文类型",
	FieldDisclosureLevel:       "公开属性",
	FieldUrgency:               "缓急程度",
	FieldSourceReferenceNumber: "来文文号",
	FieldTitle:                 "文件标题",
	FieldDraftOpinion:          "拟办意见",
	FieldApprovalOpinion:       "批示意见",
	FieldCirculationOpinion:    "传阅意见",
	FieldHandlingStatus:        "办理情况",
	FieldSupervisionDeadline:   "督办时间",
}

// DefaultHeader returns the conventional register caption for f.
func DefaultHeader(f Field) string {
	return defaultHeaders[f]
}

// Column binds a record field to a 1-based register column. Header, when
// set, is the caption the register is expected to carry above the data.
type Column struct {
	Field  Field
	Index  int
	Header string
}

// ColumnMap is the explicit field-to-column table a register must satisfy.
type ColumnMap []Column

// DefaultColumns lays the sixteen fields out in consecutive columns starting at first.
func DefaultColumns(first int) ColumnMap {
	m := make(ColumnMap, 0, len(Fields))
	for i, f := range Fields {
		m = append(m, Column{Field: f, Index: first + i, Header: defaultHeaders[f]})
	}
	return m
}

// Validate checks that every field is known and bound once, that columns
// are positive and distinct, and that the sender is mapped.
func (m ColumnMap) Validate() error {
	fields := make(map[Field]bool, len(m))
	indexes := make(map[int]Field, len(m))
	for _, c := range m {
		if !c.Field.IsKnown() {
			return fmt.Errorf("column %d: %w %q", c.Index, ErrUnknownField, c.Field)
		}
		if c.Index < 1 {
			return fmt.Errorf("field %s: column index must be positive, got %d", c.Field, c.Index)
		}
		if fields[c.Field] {
			return fmt.Errorf("field %s is mapped more than once", c.Field)
		}
		if other, ok := indexes[c.Index]; ok {
			return fmt.Errorf("column %d is mapped to both %s and %s", c.Index, other, c.Field)
		}
		fields[c.Field] = true
		indexes[c.Index] = c.Field
	}
	if !fields[FieldSender] {
		return fmt.Errorf("field %s must be mapped", FieldSender)
	}
	return nil
}

// Lookup returns the column bound to f.
func (m ColumnMap) Lookup(f Field) (Column, bool) {
	for _, c := range m {
		if c.Field == f {
			return c, true
		}
	}
	return Column{}, false
}
