package costsheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/partstream/bomsheet/internal/domain/profile"
)

func TestWriteBuildsWorkbookFromLayout(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	rows := [][]string{
		{"1", "ACME", "AB-100", "Widget", "2", "5.00", "10.00", "", ""},
		{"2", "", "AB-200", "Gadget", "1", "", "", "", "unparsable quantity"},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := NewWriter(nil)
	require.NoError(t, w.Write(path, rows, prof))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := prof.Layout.SheetName
	headerRow := prof.Layout.HeaderRow

	got, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), headerRow+2)

	// Rows above the header stay empty; headers land on the configured row.
	header := got[headerRow-1]
	require.GreaterOrEqual(t, len(header), 3)
	assert.Equal(t, "ITEM", header[0])
	assert.Equal(t, "COMMERCIAL PART#", header[2])

	first := got[headerRow]
	assert.Equal(t, "AB-100", first[2])
	assert.Equal(t, "10.00", first[6])

	// Blank price cells stay truly empty in the written sheet.
	second := got[headerRow+1]
	if len(second) > 5 {
		assert.Empty(t, second[5])
	}
}

func TestWriteFillsTemplate(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	// Build a template with branding above the header row.
	tmplPath := filepath.Join(t.TempDir(), "template.xlsx")
	tmpl := excelize.NewFile()
	require.NoError(t, tmpl.SetSheetName(tmpl.GetSheetName(0), prof.Layout.SheetName))
	require.NoError(t, tmpl.SetCellValue(prof.Layout.SheetName, "A1", "OMNI MANUFACTURING"))
	require.NoError(t, tmpl.SaveAs(tmplPath))
	require.NoError(t, tmpl.Close())

	prof.Layout.TemplateFile = tmplPath

	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := NewWriter(nil)
	require.NoError(t, w.Write(path, [][]string{{"1", "", "AB-1", "Widget", "1", "", "", "", ""}}, prof))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	branding, err := f.GetCellValue(prof.Layout.SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "OMNI MANUFACTURING", branding)

	part, err := f.GetCellValue(prof.Layout.SheetName, "C13")
	require.NoError(t, err)
	assert.Equal(t, "AB-1", part)
}

func TestWriteTemplateMissingSheetFallsBack(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	tmplPath := filepath.Join(t.TempDir(), "template.xlsx")
	tmpl := excelize.NewFile() // default sheet name, not "Cost Sheet"
	require.NoError(t, tmpl.SaveAs(tmplPath))
	require.NoError(t, tmpl.Close())

	prof.Layout.TemplateFile = tmplPath

	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := NewWriter(nil)
	require.NoError(t, w.Write(path, nil, prof))
}

func TestWriteTemplateUnreadable(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)
	prof.Layout.TemplateFile = filepath.Join(t.TempDir(), "missing.xlsx")

	w := NewWriter(nil)
	err := w.Write(filepath.Join(t.TempDir(), "out.xlsx"), nil, prof)
	require.Error(t, err)
}
