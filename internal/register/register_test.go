package register

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

// buildWorkbook writes a register with captions in row 3 and data from row 4.
func buildWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := "Sheet1"

	require.NoError(t, f.SetCellValue(sheet, "A1", "收文登记簿"))
	for _, c := range slip.DefaultColumns(slip.DefaultFirstColumn) {
		cell, err := excelize.CoordinatesToCellName(c.Index, 3)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, c.Header))
	}

	require.NoError(t, f.SetCellValue(sheet, "B4", "市委办公室"))
	require.NoError(t, f.SetCellValue(sheet, "C4", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "D4", 45367))
	require.NoError(t, f.SetCellValue(sheet, "F4", 2))
	require.NoError(t, f.SetCellValue(sheet, "H4", true))
	require.NoError(t, f.SetCellValue(sheet, "L4", "关于做好年度考核工作的通知"))
	require.NoError(t, f.SetCellValue(sheet, "M4", "拟请阅示br转干部科"))

	require.NoError(t, f.SetCellValue(sheet, "C5", 45368))

	require.NoError(t, f.SetCellValue(sheet, "B6", "市政府办公室"))
	return f
}

func openBuilt(t *testing.T, f *excelize.File, opts Options) *Register {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	r, err := OpenReader(bytes.NewReader(buf.Bytes()), opts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestCellTypes(t *testing.T) {
	r := openBuilt(t, buildWorkbook(t), Options{})
	assert.Equal(t, "Sheet1", r.Sheet())

	v, err := r.Cell(4, 2)
	require.NoError(t, err)
	assert.Equal(t, "市委办公室", v)

	v, err = r.Cell(4, 3)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), v)

	v, err = r.Cell(4, 4)
	require.NoError(t, err)
	assert.Equal(t, float64(45367), v)

	v, err = r.Cell(4, 8)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = r.Cell(4, 5)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = r.Cell(0, 2)
	assert.Error(t, err)
}

func TestExtractFromWorkbook(t *testing.T) {
	r := openBuilt(t, buildWorkbook(t), Options{})
	ex, err := slip.NewExtractor(slip.DefaultColumns(slip.DefaultFirstColumn))
	require.NoError(t, err)

	rec, err := ex.Extract(r, 4)
	require.NoError(t, err)
	dates := slip.NewDateNormalizer("")
	assert.Equal(t, "市委办公室", rec.Text(slip.FieldSender))
	assert.Equal(t, "2024年03月15日", dates.Normalize(rec.Value(slip.FieldIssueDate)).Long)
	assert.Equal(t, "20240316", dates.Normalize(rec.Value(slip.FieldReceiptDate)).Compact)
	assert.Equal(t, "2", rec.Text(slip.FieldCopyCount))
	assert.Equal(t, "拟请阅示br转干部科", rec.Text(slip.FieldDraftOpinion))

	last, err := r.LastRow()
	require.NoError(t, err)
	assert.Equal(t, 6, last)

	rows, err := ex.AdmissibleRows(r, 4, last)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 6}, rows)
}

func TestVerifyHeader(t *testing.T) {
	f := buildWorkbook(t)
	cols := slip.DefaultColumns(slip.DefaultFirstColumn)

	r := openBuilt(t, f, Options{})
	assert.NoError(t, r.VerifyHeader(3, cols))

	err := r.VerifyHeader(4, cols)
	assert.ErrorIs(t, err, ErrHeaderMismatch)

	require.NoError(t, f.SetCellValue("Sheet1", "D3", "收件日期"))
	shifted := openBuilt(t, f, Options{})
	err = shifted.VerifyHeader(3, cols)
	require.ErrorIs(t, err, ErrHeaderMismatch)
	assert.Contains(t, err.Error(), "column D")
	assert.Contains(t, err.Error(), "receiptDate")
}

func TestOpenNamedSheet(t *testing.T) {
	f := buildWorkbook(t)
	_, err := f.NewSheet("登记")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("登记", "B4", "另一单位"))

	r := openBuilt(t, f, Options{Sheet: "登记"})
	v, err := r.Cell(4, 2)
	require.NoError(t, err)
	assert.Equal(t, "另一单位", v)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	_, err = OpenReader(bytes.NewReader(buf.Bytes()), Options{Sheet: "missing"})
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "register.xlsx")
	require.NoError(t, buildWorkbook(t).SaveAs(path))

	r, err := Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()

	v, err := r.Cell(6, 2)
	require.NoError(t, err)
	assert.Equal(t, "市政府办公室", v)

	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"), Options{})
	assert.Error(t, err)
}

func TestDateFormattedCellsUseWorkbookEpoch(t *testing.T) {
	for _, date1904 := range []bool{false, true} {
		f := excelize.NewFile()
		require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}))

		serial := 45366
		if date1904 {
			serial = 43904
		}
		builtIn, err := f.NewStyle(&excelize.Style{NumFmt: 14})
		require.NoError(t, err)
		custom := "yyyy年mm月dd日"
		customStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
		require.NoError(t, err)

		require.NoError(t, f.SetCellValue("Sheet1", "B4", "市委办公室"))
		require.NoError(t, f.SetCellValue("Sheet1", "C4", serial))
		require.NoError(t, f.SetCellStyle("Sheet1", "C4", "C4", customStyle))
		require.NoError(t, f.SetCellValue("Sheet1", "D4", serial))
		require.NoError(t, f.SetCellStyle("Sheet1", "D4", "D4", builtIn))
		require.NoError(t, f.SetCellValue("Sheet1", "F4", serial))

		r := openBuilt(t, f, Options{})
		want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		for _, col := range []int{3, 4} {
			v, err := r.Cell(4, col)
			require.NoError(t, err)
			assert.Equal(t, want, v, "1904=%v column %d", date1904, col)
		}

		// a plain number keeps its value
		v, err := r.Cell(4, 6)
		require.NoError(t, err)
		assert.Equal(t, float64(serial), v)

		ex, err := slip.NewExtractor(slip.DefaultColumns(slip.DefaultFirstColumn))
		require.NoError(t, err)
		rec, err := ex.Extract(r, 4)
		require.NoError(t, err)
		d := slip.NewDateNormalizer("").Normalize(rec.Value(slip.FieldReceiptDate))
		assert.Equal(t, slip.Date{Long: "2024年03月15日", Compact: "20240315"}, d)
	}
}

func TestIsDateFormatCode(t *testing.T) {
	dates := []string{"yyyy-mm-dd", "m/d/yy", "[$-F800]dddd, mmmm dd, yyyy", `yyyy"年"m"月"`, "mmm-yy"}
	for _, code := range dates {
		assert.True(t, isDateFormatCode(code), code)
	}
	others := []string{"0.00", "#,##0", "h:mm:ss", "[h]:mm", `0 "days"`, "General", "[Red]0.0"}
	for _, code := range others {
		assert.False(t, isDateFormatCode(code), code)
	}
}
