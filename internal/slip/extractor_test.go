package slip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource serves cells from a row -> column -> value map.
type mapSource struct {
	rows map[int]map[int]any
	fail map[int]error
}

func (s mapSource) Cell(row, column int) (any, error) {
	if err := s.fail[row]; err != nil {
		return nil, err
	}
	return s.rows[row][column], nil
}

func TestDefaultColumns(t *testing.T) {
	cols := DefaultColumns(DefaultFirstColumn)
	require.Len(t, cols, 16)
	require.NoError(t, cols.Validate())

	first, ok := cols.Lookup(FieldSender)
	require.True(t, ok)
	assert.Equal(t, Column{Field: FieldSender, Index: 2, Header: "来文单位"}, first)

	last, ok := cols.Lookup(FieldSupervisionDeadline)
	require.True(t, ok)
	assert.Equal(t, 17, last.Index)
	assert.Equal(t, "督办时间", last.Header)
}

func TestColumnMapValidate(t *testing.T) {
	tests := []struct {
		name string
		cols ColumnMap
		want string
	}{
		{"unknown field", ColumnMap{{Field: FieldSender, Index: 1}, {Field: "author", Index: 2}}, "unknown field"},
		{"non-positive index", ColumnMap{{Field: FieldSender, Index: 0}}, "must be positive"},
		{"duplicate field", ColumnMap{{Field: FieldSender, Index: 1}, {Field: FieldSender, Index: 2}}, "more than once"},
		{"shared column", ColumnMap{{Field: FieldSender, Index: 1}, {Field: FieldTitle, Index: 1}}, "mapped to both"},
		{"no sender", ColumnMap{{Field: FieldTitle, Index: 1}}, "must be mapped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cols.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	err := ColumnMap{{Field: "author", Index: 1}}.Validate()
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestExtract(t *testing.T) {
	ex, err := NewExtractor(DefaultColumns(DefaultFirstColumn))
	require.NoError(t, err)

	src := mapSource{rows: map[int]map[int]any{
		4: {1: "序号", 2: "市委办公室", 3: float64(45366), 12: "通知", 13: "拟办br转办", 17: "月底"},
	}}
	rec, err := ex.Extract(src, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, rec.Row)
	assert.Equal(t, "市委办公室", rec.Text(FieldSender))
	assert.Equal(t, float64(45366), rec.Value(FieldIssueDate))
	assert.Equal(t, "通知", rec.Text(FieldTitle))
	assert.Equal(t, "拟办br转办", rec.Text(FieldDraftOpinion))
	assert.Equal(t, "月底", rec.Text(FieldSupervisionDeadline))
	assert.Nil(t, rec.Value(FieldReceiptDate))
	assert.True(t, rec.Admissible())
}

func TestExtractSurfacesReadErrors(t *testing.T) {
	ex, err := NewExtractor(DefaultColumns(DefaultFirstColumn))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = ex.Extract(mapSource{fail: map[int]error{7: boom}}, 7)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "row 7")
}

func TestNewExtractorRejectsBadTable(t *testing.T) {
	_, err := NewExtractor(ColumnMap{{Field: FieldTitle, Index: 3}})
	assert.Error(t, err)
}

func TestAdmissible(t *testing.T) {
	assert.False(t, NewRecord(1, nil).Admissible())
	assert.False(t, NewRecord(1, map[Field]any{FieldSender: "  "}).Admissible())
	assert.False(t, NewRecord(1, map[Field]any{FieldSender: float64(0)}).Admissible())
	assert.True(t, NewRecord(1, map[Field]any{FieldSender: "单位"}).Admissible())
}

func TestAdmissibleRows(t *testing.T) {
	ex, err := NewExtractor(DefaultColumns(DefaultFirstColumn))
	require.NoError(t, err)

	src := mapSource{rows: map[int]map[int]any{
		4: {2: "甲"},
		5: {2: ""},
		6: {3: float64(45366)},
		7: {2: "乙"},
	}}
	rows, err := ex.AdmissibleRows(src, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, rows)
}

func TestRecordIsNotAliased(t *testing.T) {
	values := map[Field]any{FieldSender: "甲"}
	rec := NewRecord(1, values)
	values[FieldSender] = "乙"
	assert.Equal(t, "甲", rec.Text(FieldSender))
}
