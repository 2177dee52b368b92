package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

// packageWith wraps a document.xml body in a minimal Word package.
func packageWith(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string]string{
		"[Content_Types].xml": contentTypesXML,
		mainPart: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="` + wordNamespace + `"><w:body>` + body + `</w:body></w:document>`,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const mergedTable = `<w:p><w:r><w:t>before</w:t></w:r></w:p>` +
	`<w:tbl>` +
	`<w:tr><w:tc><w:tcPr><w:gridSpan w:val="3"/></w:tcPr><w:p><w:r><w:t>head</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:tcPr><w:vMerge w:val="restart"/></w:tcPr><w:p><w:r><w:t>top</w:t></w:r></w:p></w:tc><w:tc><w:p/></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc><w:tc><w:tcPr><w:vMerge/></w:tcPr><w:p/></w:tc><w:tc><w:p><w:r><w:t>c</w:t></w:r></w:p></w:tc></w:tr>` +
	`</w:tbl>` +
	`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>second table</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

func TestTableAddressesMergedCells(t *testing.T) {
	doc, err := Open(packageWith(t, mergedTable))
	require.NoError(t, err)
	tbl, err := doc.Table()
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Rows())

	for col := 0; col < 3; col++ {
		c, err := tbl.At(0, col)
		require.NoError(t, err)
		assert.Equal(t, "head", c.Text())
	}

	below, err := tbl.At(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "top", below.Text())

	right, err := tbl.At(2, 2)
	require.NoError(t, err)
	assert.Equal(t, "c", right.Text())

	_, err = tbl.At(3, 0)
	assert.ErrorIs(t, err, ErrCellOutOfRange)
	_, err = tbl.At(1, 3)
	assert.ErrorIs(t, err, ErrCellOutOfRange)

	cells, err := tbl.RowCells(0)
	require.NoError(t, err)
	assert.Len(t, cells, 1)
}

func TestOpenRejectsNonDocx(t *testing.T) {
	_, err := Open([]byte("not a zip"))
	assert.ErrorIs(t, err, ErrNotDocx)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = Open(buf.Bytes())
	assert.ErrorIs(t, err, ErrNotDocx)
}

func TestNewTemplateRequiresTable(t *testing.T) {
	_, err := NewTemplate(packageWith(t, `<w:p/>`))
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestSetTextReplacesContent(t *testing.T) {
	body := `<w:tbl><w:tr><w:tc>` +
		`<w:p><w:pPr><w:spacing w:after="0"/><w:rPr><w:b/></w:rPr></w:pPr><w:r><w:t>old</w:t></w:r><w:r><w:t>er</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>second</w:t></w:r></w:p>` +
		`</w:tc></w:tr></w:tbl>`
	doc, err := Open(packageWith(t, body))
	require.NoError(t, err)
	tbl, err := doc.Table()
	require.NoError(t, err)
	cell, err := tbl.At(0, 0)
	require.NoError(t, err)

	cell.SetText(" 新值\t第二列\n第二行", slip.DefaultFont, slip.AlignLeft)

	assert.Equal(t, []string{" 新值\t第二列\n第二行"}, cell.Paragraphs())
	assert.Equal(t, []slip.Alignment{slip.AlignLeft}, cell.Alignments())

	out, err := doc.xml.WriteToString()
	require.NoError(t, err)
	assert.Contains(t, out, `<w:spacing w:after="0"/><w:jc w:val="left"/><w:rPr><w:b/></w:rPr>`)
	assert.Contains(t, out, `<w:rFonts w:ascii="仿宋_GB2312" w:hAnsi="仿宋_GB2312" w:eastAsia="仿宋_GB2312"/><w:sz w:val="21"/>`)
	assert.Contains(t, out, `<w:t xml:space="preserve"> 新值</w:t><w:tab/>`)
	assert.NotContains(t, out, "old")
	assert.NotContains(t, out, "second")
}

func TestSetParagraphs(t *testing.T) {
	tpl, err := BlankTemplate("")
	require.NoError(t, err)
	doc, err := tpl.Instance()
	require.NoError(t, err)
	tbl, err := doc.Table()
	require.NoError(t, err)
	cell, err := tbl.At(6, 3)
	require.NoError(t, err)

	cell.SetParagraphs([]slip.Paragraph{
		{Text: "第一段", Align: slip.AlignLeft, FirstLineIndentPt: 21},
		{Text: "第二段", Align: slip.AlignLeft},
		{Text: "落款", Align: slip.AlignRight},
	}, slip.DefaultFont)

	assert.Equal(t, []string{"第一段", "第二段", "落款"}, cell.Paragraphs())
	assert.Equal(t, []slip.Alignment{slip.AlignLeft, slip.AlignLeft, slip.AlignRight}, cell.Alignments())
	assert.Equal(t, []int{420, 0, 0}, cell.FirstLineIndents())

	cell.SetParagraphs(nil, slip.DefaultFont)
	assert.Equal(t, []string{""}, cell.Paragraphs())
}

func TestSetAlignmentCoversEveryParagraph(t *testing.T) {
	doc, err := Open(packageWith(t, mergedTable))
	require.NoError(t, err)
	tbl, err := doc.Table()
	require.NoError(t, err)
	cell, err := tbl.At(1, 0)
	require.NoError(t, err)

	cell.SetParagraphs([]slip.Paragraph{{Text: "x"}, {Text: "y", Align: slip.AlignRight}}, slip.DefaultFont)
	cell.SetAlignment(slip.AlignCenter)
	assert.Equal(t, []slip.Alignment{slip.AlignCenter, slip.AlignCenter}, cell.Alignments())
}

func TestBlankTemplateLayout(t *testing.T) {
	tpl, err := BlankTemplate("")
	require.NoError(t, err)
	doc, err := tpl.Instance()
	require.NoError(t, err)
	tbl, err := doc.Table()
	require.NoError(t, err)
	require.Equal(t, 10, tbl.Rows())

	labels := map[[2]int]string{
		{0, 0}: slip.DefaultSlipLabel,
		{0, 5}: slip.DefaultSlipLabel,
		{1, 0}: "来文单位",
		{1, 4}: "收文日期",
		{4, 0}: "来文文号",
		{4, 4}: "督办时间",
		{5, 0}: "文件标题",
		{9, 0}: "办理情况",
		{1, 1}: "",
		{4, 3}: "",
		{6, 5}: "",
	}
	for pos, want := range labels {
		c, err := tbl.At(pos[0], pos[1])
		require.NoError(t, err)
		assert.Equal(t, want, c.Text(), "cell %v", pos)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tpl, err := BlankTemplate("")
	require.NoError(t, err)
	doc, err := tpl.Instance()
	require.NoError(t, err)
	tbl, err := doc.Table()
	require.NoError(t, err)
	cell, err := tbl.At(5, 1)
	require.NoError(t, err)
	cell.SetText("关于<测试>&“引号”", slip.DefaultFont, slip.AlignLeft)

	data, err := doc.Bytes()
	require.NoError(t, err)

	reopened, err := Open(data)
	require.NoError(t, err)
	tbl2, err := reopened.Table()
	require.NoError(t, err)
	c2, err := tbl2.At(5, 4)
	require.NoError(t, err)
	assert.Equal(t, "关于<测试>&“引号”", c2.Text())

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"[Content_Types].xml", "_rels/.rels", mainPart}, names)
}

func TestInstancesAreIndependent(t *testing.T) {
	tpl, err := BlankTemplate("")
	require.NoError(t, err)

	first, err := tpl.Instance()
	require.NoError(t, err)
	tbl, err := first.Table()
	require.NoError(t, err)
	cell, err := tbl.At(1, 1)
	require.NoError(t, err)
	cell.SetText("甲单位", slip.DefaultFont, slip.AlignLeft)

	second, err := tpl.Instance()
	require.NoError(t, err)
	tbl2, err := second.Table()
	require.NoError(t, err)
	cell2, err := tbl2.At(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "", cell2.Text())
}

func TestSaveIsDeterministic(t *testing.T) {
	tpl, err := BlankTemplate("")
	require.NoError(t, err)

	render := func() []byte {
		doc, err := tpl.Instance()
		require.NoError(t, err)
		tbl, err := doc.Table()
		require.NoError(t, err)
		cell, err := tbl.At(1, 1)
		require.NoError(t, err)
		cell.SetText("同一内容", slip.DefaultFont, slip.AlignLeft)
		data, err := doc.Bytes()
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, render(), render())
}
