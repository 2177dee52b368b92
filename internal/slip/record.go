// Package slip turns rows of an incoming-document register into filled
// routing-slip documents. It owns the record model, date normalization,
// paragraph splitting, template filling and output naming. Reading the
// register and writing the document container live in sibling packages.
package slip

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names one attribute of a Record.
type Field string

const (
	FieldSender                Field = "sender"
	FieldIssueDate             Field = "issueDate"
	FieldReceiptDate           Field = "receiptDate"
	FieldReferenceNumber       Field = "referenceNumber"
	FieldCopyCount             Field = "copyCount"
	FieldPageCount             Field = "pageCount"
	FieldIncomingType          Field = "incomingType"
	FieldDisclosureLevel       Field = "disclosureLevel"
	FieldUrgency               Field = "urgency"
	FieldSourceReferenceNumber Field = "sourceReferenceNumber"
	FieldTitle                 Field = "title"
	FieldDraftOpinion          Field = "draftOpinion"
	FieldApprovalOpinion       Field = "approvalOpinion"
	FieldCirculationOpinion    Field = "circulationOpinion"
	FieldHandlingStatus        Field = "handlingStatus"
	FieldSupervisionDeadline   Field = "supervisionDeadline"
)

// Fields lists every field in register column order.
var Fields = []Field{
	FieldSender,
	FieldIssueDate,
	FieldReceiptDate,
	FieldReferenceNumber,
	FieldCopyCount,
	FieldPageCount,
	FieldIncomingType,
	FieldDisclosureLevel,
	FieldUrgency,
	FieldSourceReferenceNumber,
	FieldTitle,
	FieldDraftOpinion,
	FieldApprovalOpinion,
	FieldCirculationOpinion,
	FieldHandlingStatus,
	FieldSupervisionDeadline,
}

// IsKnown reports whether f is one of the register fields.
func (f Field) IsKnown() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// IsDate reports whether f holds a date-like value.
func (f Field) IsDate() bool {
	switch f {
	case FieldIssueDate, FieldReceiptDate, FieldSupervisionDeadline:
		return true
	}
	return false
}

// Record is the read-only view of one register row. Values are kept as read
// from the register (string, float64, bool, time.Time or nil).
type Record struct {
	Row    int
	values map[Field]any
}

// NewRecord builds a Record from raw values. The map is copied.
func NewRecord(row int, values map[Field]any) Record {
	copied := make(map[Field]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Record{Row: row, values: copied}
}

// Value returns the raw value of f, or nil when absent.
func (r Record) Value(f Field) any {
	return r.values[f]
}

// Text returns the display form of f; absent and zero values render empty.
func (r Record) Text(f Field) string {
	return textOf(r.values[f])
}

// Admissible reports whether the row carries a sender and should produce a slip.
func (r Record) Admissible() bool {
	return strings.TrimSpace(r.Text(FieldSender)) != ""
}

// textOf renders a register value the way it reads in the sheet. Zero numbers
// and false render empty, like blank cells.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == 0 {
			return ""
		}
		return formatNumber(x)
	case float32:
		if x == 0 {
			return ""
		}
		return formatNumber(float64(x))
	case int:
		if x == 0 {
			return ""
		}
		return strconv.Itoa(x)
	case int64:
		if x == 0 {
			return ""
		}
		return strconv.FormatInt(x, 10)
	case bool:
		if !x {
			return ""
		}
		return "TRUE"
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
