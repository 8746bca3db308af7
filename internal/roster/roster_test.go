package roster

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, cells map[string]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseXLSX(t *testing.T) {
	buf := workbook(t, map[string]string{
		"A1": "Name",
		"A2": "Alice",
		"B2": "ignored",
		"A3": "  Bob ",
		"A5": "Carol",
		"A6": "   ",
	})

	names, err := ParseXLSX(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	_, err := ParseXLSX(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Clean([]string{" a", "", "b ", "\t"}))
	assert.Empty(t, Clean(nil))
}
