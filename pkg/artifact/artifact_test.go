package artifact

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/pkg/money"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		suffix string
		outDir string
		want   string
	}{
		{
			name:   "beside input",
			input:  "/jobs/acme/quote.pdf",
			suffix: SuffixExtracted,
			want:   "/jobs/acme/quote_extracted.xlsx",
		},
		{
			name:   "output dir override",
			input:  "/jobs/acme/quote.pdf",
			suffix: SuffixCostSheet,
			outDir: "/tmp/out",
			want:   "/tmp/out/quote_cost_sheet.xlsx",
		},
		{
			name:   "no extension",
			input:  "/jobs/quote",
			suffix: SuffixPriced,
			want:   "/jobs/quote_priced.xlsx",
		},
		{
			name:   "dots in name",
			input:  "/jobs/rev.2.quote.pdf",
			suffix: SuffixMerged,
			want:   "/jobs/rev.2.quote_merged.xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(tt.input, tt.suffix, tt.outDir))
		})
	}
}

func TestPathIsDeterministic(t *testing.T) {
	a := Path("/jobs/quote.pdf", SuffixCostSheet, "")
	b := Path("/jobs/quote.pdf", SuffixCostSheet, "")
	assert.Equal(t, a, b)
}

func testRecords(t *testing.T) []*bom.Record {
	t.Helper()
	gofakeit.Seed(11)

	priced := &bom.Record{
		PartNumber:   "AB-100",
		Description:  gofakeit.ProductName(),
		Manufacturer: gofakeit.Company(),
		Unit:         "EA",
		Quantity:     decimal.NewFromInt(3),
		Status:       bom.StatusValid,
	}
	priced.AttachPrice(&bom.PriceResult{
		PartNumber: "AB-100",
		UnitPrice:  money.New(1500, money.USD),
		Currency:   money.USD,
		Status:     bom.LookupFound,
		Source:     "test",
	})

	flagged := &bom.Record{
		PartNumber:    "ZZ-9",
		Description:   gofakeit.ProductName(),
		Quantity:      decimal.NewFromInt(1),
		Status:        bom.StatusNeedsReview,
		ReviewReasons: []string{"missing quantity", "low-confidence column mapping"},
	}

	return []*bom.Record{priced, flagged}
}

func TestWriteGrids(t *testing.T) {
	grids := []bom.TableGrid{
		bom.NewTableGrid(1, [][]string{{"P/N", "Qty"}, {"AB-1", "2"}}, bom.MethodLines),
		bom.NewTableGrid(3, [][]string{{"X"}}, bom.MethodText),
	}

	path := filepath.Join(t.TempDir(), "quote_extracted.xlsx")
	w := NewWriter(nil)
	require.NoError(t, w.WriteGrids(path, grids))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Page1_Table1", sheets[0])
	assert.Equal(t, "Page3_Table2", sheets[1])

	rows, err := f.GetRows("Page1_Table1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"P/N", "Qty"}, rows[0])
	assert.Equal(t, []string{"AB-1", "2"}, rows[1])
}

func TestWriteRecords(t *testing.T) {
	records := testRecords(t)

	path := filepath.Join(t.TempDir(), "quote_priced.xlsx")
	w := NewWriter(nil)
	require.NoError(t, w.WriteRecords(path, records, true))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("BoM")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Part Number", rows[0][0])
	assert.Equal(t, "Unit Price", rows[0][8])

	assert.Equal(t, "AB-100", rows[1][0])
	assert.Equal(t, "15.00", rows[1][8])
	assert.Equal(t, "found", rows[1][10])

	assert.Equal(t, "ZZ-9", rows[2][0])
	assert.Equal(t, "needs_review", rows[2][6])
	assert.Contains(t, rows[2][7], "missing quantity")
}

func TestWriteRecordsWithoutPrices(t *testing.T) {
	records := testRecords(t)

	path := filepath.Join(t.TempDir(), "quote_merged.xlsx")
	w := NewWriter(nil)
	require.NoError(t, w.WriteRecords(path, records, false))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("BoM")
	require.NoError(t, err)
	assert.Len(t, rows[0], len(recordHeaders))
}

func TestWriteCSV(t *testing.T) {
	records := testRecords(t)

	path := filepath.Join(t.TempDir(), "quote_priced.csv")
	w := NewWriter(nil)
	require.NoError(t, w.WriteCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "part_number", rows[0][0])
	assert.Equal(t, "AB-100", rows[1][0])
	assert.Equal(t, "15.00", rows[1][6])

	// Unpriced record: price cells empty, review notes carried through.
	assert.Equal(t, "", rows[2][6])
	assert.Contains(t, rows[2][9], "missing quantity")
}
