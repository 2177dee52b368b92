package slip

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultUnknownDateMarker replaces the compact date when a value cannot be read as a date.
const DefaultUnknownDateMarker = "日期未知"

const (
	longDateLayout    = "2006年01月02日"
	compactDateLayout = "20060102"

	// Spreadsheet serial 0 is 1899-12-30; serial 1 is 1899-12-31.
	minSerial = -693593 // 0001-01-01
	maxSerial = 2958465 // 9999-12-31
)

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Date is a date-like register value in its two rendered forms.
type Date struct {
	Long    string
	Compact string
}

// DateNormalizer renders date-like register values. It never fails: values
// that are not dates keep their raw text as Long and carry UnknownMarker as
// Compact.
type DateNormalizer struct {
	UnknownMarker string
}

// NewDateNormalizer returns a normalizer using marker for unreadable dates,
// or DefaultUnknownDateMarker when marker is empty.
func NewDateNormalizer(marker string) DateNormalizer {
	if marker == "" {
		marker = DefaultUnknownDateMarker
	}
	return DateNormalizer{UnknownMarker: marker}
}

// Normalize renders value. Empty values yield two empty strings.
func (n DateNormalizer) Normalize(value any) Date {
	if textOf(value) == "" {
		return Date{}
	}
	t, ok := asDate(value)
	if !ok {
		return Date{Long: textOf(value), Compact: n.marker()}
	}
	return Date{Long: t.Format(longDateLayout), Compact: t.Format(compactDateLayout)}
}

func (n DateNormalizer) marker() string {
	if n.UnknownMarker == "" {
		return DefaultUnknownDateMarker
	}
	return n.UnknownMarker
}

// SerialToDate converts a spreadsheet day serial to a calendar date.
func SerialToDate(serial int64) (time.Time, bool) {
	if serial < minSerial || serial > maxSerial {
		return time.Time{}, false
	}
	return serialEpoch.AddDate(0, 0, int(serial)), true
}

func asDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case float64:
		return floatSerial(v)
	case float32:
		return floatSerial(float64(v))
	case int:
		return SerialToDate(int64(v))
	case int64:
		return SerialToDate(v)
	case int32:
		return SerialToDate(int64(v))
	case string:
		serial, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return SerialToDate(serial)
	}
	return time.Time{}, false
}

// floatSerial drops the time-of-day fraction, truncating toward zero.
func floatSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= minSerial-1 || f >= maxSerial+1 {
		return time.Time{}, false
	}
	return SerialToDate(int64(f))
}
