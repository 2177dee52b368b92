package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeRegister(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	for cell, v := range map[string]any{
		"B4": "市委办公室", "D4": 45366, "L4": "年度考核通知",
		"L5": "没有来文单位",
		"B6": "市政府办公室", "D6": 45367, "L6": "会议通知",
	} {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	path := filepath.Join(t.TempDir(), "register.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configFile, outputDir, templatePath, sheetName, rowSpec = "", "", "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	out, err := run(t, "list", writeRegister(t))
	require.NoError(t, err)
	assert.Equal(t, "4\t20240315 - 年度考核通知\n6\t20240316 - 会议通知\n", out)
}

func TestGenerateCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "slips")
	out, err := run(t, "generate", writeRegister(t), "--output", dir, "--rows", "4-6")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 2 routing slip(s)")
	assert.Contains(t, out, "[5]")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"20240315党委组织部（党校）收文处理笺（年度考核通知）.docx",
		"20240316党委组织部（党校）收文处理笺（会议通知）.docx",
	}, names)
}

func TestGenerateCommandRejectsRowsPastRegister(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "slips")
	_, err := run(t, "generate", writeRegister(t), "--output", dir, "--rows", "4-2000000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past the last register row 6")
	assert.NoDirExists(t, dir)
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	out, err := run(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default settings")

	out, err = run(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}
