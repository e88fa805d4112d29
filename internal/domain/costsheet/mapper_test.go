package costsheet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/profile"
	"github.com/partstream/bomsheet/pkg/money"
)

func pricedRecord(part string, qty string, cents int64) *bom.Record {
	rec := &bom.Record{
		PartNumber:  part,
		Description: "Widget",
		Quantity:    decimal.RequireFromString(qty),
		Status:      bom.StatusValid,
	}
	rec.AttachPrice(&bom.PriceResult{
		PartNumber: part,
		UnitPrice:  money.New(cents, money.USD),
		Currency:   money.USD,
		Status:     bom.LookupFound,
		Source:     "test",
	})
	return rec
}

func unpricedRecord(part string) *bom.Record {
	rec := &bom.Record{
		PartNumber: part,
		Quantity:   decimal.NewFromInt(1),
		Status:     bom.StatusValid,
	}
	rec.AttachPrice(&bom.PriceResult{PartNumber: part, Status: bom.LookupNotFound, Source: "test"})
	return rec
}

func columnIndex(t *testing.T, p *profile.Profile, header string) int {
	t.Helper()
	for i, col := range p.Layout.Columns {
		if col.Header == header {
			return i
		}
	}
	t.Fatalf("no column %q in profile %s", header, p.ID)
	return -1
}

func TestMapExtendedTotals(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	records := []*bom.Record{
		pricedRecord("AB-1", "3", 500),   // 3 × $5.00
		pricedRecord("AB-2", "2.5", 200), // 2.5 × $2.00
	}

	m := NewMapper(nil)
	rows := m.Map(records, prof)
	require.Len(t, rows, 2)

	cost := columnIndex(t, prof, "COST EACH")
	ext := columnIndex(t, prof, "EXT COST")

	assert.Equal(t, "5.00", rows[0][cost])
	assert.Equal(t, "15.00", rows[0][ext])
	assert.Equal(t, "2.00", rows[1][cost])
	assert.Equal(t, "5.00", rows[1][ext])
}

func TestMapUnpricedCellsAreBlank(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	m := NewMapper(nil)
	rows := m.Map([]*bom.Record{unpricedRecord("NOPE-1")}, prof)
	require.Len(t, rows, 1)

	// Blank, not "0.00": a zero would read as a real price.
	assert.Empty(t, rows[0][columnIndex(t, prof, "COST EACH")])
	assert.Empty(t, rows[0][columnIndex(t, prof, "EXT COST")])
	assert.Equal(t, "NOPE-1", rows[0][columnIndex(t, prof, "COMMERCIAL PART#")])
}

func TestMapItemSequence(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	m := NewMapper(nil)
	rows := m.Map([]*bom.Record{
		pricedRecord("AB-1", "1", 100),
		pricedRecord("AB-2", "1", 100),
		pricedRecord("AB-3", "1", 100),
	}, prof)

	item := columnIndex(t, prof, "ITEM")
	assert.Equal(t, "1", rows[0][item])
	assert.Equal(t, "2", rows[1][item])
	assert.Equal(t, "3", rows[2][item])
}

func TestMapReviewColumn(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	flagged := pricedRecord("AB-1", "1", 100)
	flagged.FlagReview("unparsable quantity \"N/A\"")
	clean := pricedRecord("AB-2", "1", 100)

	m := NewMapper(nil)
	rows := m.Map([]*bom.Record{flagged, clean}, prof)

	review := columnIndex(t, prof, "REVIEW")
	assert.Contains(t, rows[0][review], "unparsable quantity")
	assert.Empty(t, rows[1][review])
}

func TestMapMarkup(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)
	prof.MarkupPercent = decimal.RequireFromString("10")

	m := NewMapper(nil)
	rows := m.Map([]*bom.Record{pricedRecord("AB-1", "2", 1000)}, prof)
	require.Len(t, rows, 1)

	// $10.00 + 10% = $11.00 each, $22.00 extended.
	assert.Equal(t, "11.00", rows[0][columnIndex(t, prof, "COST EACH")])
	assert.Equal(t, "22.00", rows[0][columnIndex(t, prof, "EXT COST")])
}

func TestMapIsDeterministic(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDNEL)
	require.True(t, ok)

	records := []*bom.Record{
		pricedRecord("AB-1", "3", 500),
		unpricedRecord("NOPE-1"),
	}
	records[0].Reference = "P-100"

	m := NewMapper(nil)
	first := m.Map(records, prof)
	second := m.Map(records, prof)
	assert.Equal(t, first, second)

	assert.Equal(t, "P-100", first[0][columnIndex(t, prof, "CUST PART #")])
}

func TestMapNeedsReviewStatusFillsReviewColumn(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDGeneric)
	require.True(t, ok)

	rec := &bom.Record{
		PartNumber:    "AB-1",
		Quantity:      decimal.NewFromInt(1),
		Status:        bom.StatusNeedsReview,
		ReviewReasons: []string{"empty part identifier"},
	}

	m := NewMapper(nil)
	rows := m.Map([]*bom.Record{rec}, prof)
	assert.Equal(t, "empty part identifier", rows[0][columnIndex(t, prof, "REVIEW")])
}
