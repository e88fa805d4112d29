package validate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/normalize"
	"github.com/partstream/bomsheet/internal/domain/profile"
)

func standardTable(rows ...[]string) *normalize.Table {
	return &normalize.Table{
		GridID: uuid.NewString(),
		Page:   1,
		Mapping: bom.ColumnMapping{
			Columns: map[bom.CanonicalField]int{
				bom.FieldPartNumber:  0,
				bom.FieldDescription: 1,
				bom.FieldQuantity:    2,
			},
			HeaderRow:  0,
			Confidence: 0.75,
		},
		Rows:        rows,
		SplitColumn: -1,
	}
}

func newTestValidator(defaultQty bool) *Validator {
	return NewValidator(Config{DefaultQuantity: defaultQty}, nil)
}

func TestValidateCleanRows(t *testing.T) {
	table := standardTable(
		[]string{"ab-100", "Widget", "2"},
		[]string{"AB-200", "Gadget", "5"},
	)

	v := newTestValidator(true)
	records, stats := v.Validate(table, nil, uuid.New())

	require.Len(t, records, 2)
	assert.Equal(t, 2, stats.Valid)
	assert.Equal(t, 0, stats.NeedsReview)

	// Part numbers are canonicalized to upper case.
	assert.Equal(t, "AB-100", records[0].PartNumber)
	assert.Equal(t, bom.StatusValid, records[0].Status)
	assert.Equal(t, "2", records[0].Quantity.String())
}

func TestValidateFlagsInsteadOfDropping(t *testing.T) {
	tests := []struct {
		name       string
		row        []string
		wantReason string
	}{
		{name: "empty part", row: []string{"", "Widget", "1"}, wantReason: "empty part identifier"},
		{name: "decorative separator", row: []string{"-----", "", ""}, wantReason: "decorative separator row"},
		{name: "unparsable quantity", row: []string{"AB-1", "Widget", "N/A"}, wantReason: `unparsable quantity "N/A"`},
		{name: "negative quantity", row: []string{"AB-1", "Widget", "-3"}, wantReason: `non-positive quantity "-3"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := standardTable(tt.row)
			v := newTestValidator(true)
			records, stats := v.Validate(table, nil, uuid.New())

			// The row is kept, classified, never lost.
			require.Len(t, records, 1)
			assert.Equal(t, bom.StatusNeedsReview, records[0].Status)
			assert.Contains(t, records[0].ReviewReasons, tt.wantReason)
			assert.Equal(t, 1, stats.NeedsReview)
		})
	}
}

func TestValidateQuantityDefaulting(t *testing.T) {
	t.Run("policy on defaults quietly", func(t *testing.T) {
		table := standardTable([]string{"AB-1", "Widget", ""})
		v := newTestValidator(true)
		records, stats := v.Validate(table, nil, uuid.New())

		require.Len(t, records, 1)
		assert.Equal(t, "1", records[0].Quantity.String())
		assert.Equal(t, bom.StatusValid, records[0].Status)
		assert.Equal(t, 1, stats.Valid)
	})

	t.Run("policy off flags missing quantity", func(t *testing.T) {
		table := standardTable([]string{"AB-1", "Widget", ""})
		v := newTestValidator(false)
		records, _ := v.Validate(table, nil, uuid.New())

		require.Len(t, records, 1)
		assert.Equal(t, bom.StatusNeedsReview, records[0].Status)
		assert.Contains(t, records[0].ReviewReasons, "missing quantity")
	})
}

func TestValidateQuantityFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2", "2"},
		{"2.5", "2.5"},
		{"1,000", "1000"},
		{"10 EA", "10"},
		{"3 ea", "3"},
		{"5 Ea", "5"},
	}
	for _, tt := range tests {
		table := standardTable([]string{"AB-1", "Widget", tt.raw})
		v := newTestValidator(true)
		records, _ := v.Validate(table, nil, uuid.New())
		require.Len(t, records, 1, tt.raw)
		assert.Equal(t, tt.want, records[0].Quantity.String(), tt.raw)
		assert.Equal(t, bom.StatusValid, records[0].Status, tt.raw)
	}
}

func TestValidateDeduplicatesExactRows(t *testing.T) {
	table := standardTable(
		[]string{"AB-1", "Widget", "2"},
		[]string{"AB-1", "Widget", "2"}, // exact duplicate
		[]string{"AB-1", "Widget", "3"}, // same part, different quantity: kept
	)

	v := newTestValidator(true)
	records, stats := v.Validate(table, nil, uuid.New())

	assert.Len(t, records, 2)
	assert.Equal(t, 1, stats.Duplicates)
}

func TestValidateProfileRejectKeywords(t *testing.T) {
	prof, ok := profile.Builtin(profile.IDPrimetals)
	require.True(t, ok)

	table := standardTable(
		[]string{"AB-1", "Widget", "2"},
		[]string{"AB-2", "PRIMETALS TECHNOLOGIES CONFIDENTIAL", "1"},
	)

	v := newTestValidator(true)
	records, stats := v.Validate(table, prof, uuid.New())

	require.Len(t, records, 2)
	assert.Equal(t, bom.StatusValid, records[0].Status)
	assert.Equal(t, bom.StatusNeedsReview, records[1].Status)
	assert.Contains(t, records[1].ReviewReasons, "matches profile reject keyword")
	assert.Equal(t, 1, stats.NeedsReview)
}

func TestValidateSplitMfgPart(t *testing.T) {
	table := &normalize.Table{
		GridID: uuid.NewString(),
		Mapping: bom.ColumnMapping{
			Columns: map[bom.CanonicalField]int{
				bom.FieldPartNumber:   1,
				bom.FieldManufacturer: 1,
				bom.FieldDescription:  2,
				bom.FieldQuantity:     3,
			},
			HeaderRow:  0,
			Confidence: 0.75,
		},
		Rows: [][]string{
			{"1", "ACME / AB-100", "Widget", "2"},
			{"2", "NO-SLASH-PN", "Gadget", "1"},
		},
		SplitColumn: 1,
	}

	v := newTestValidator(true)
	records, _ := v.Validate(table, nil, uuid.New())

	require.Len(t, records, 2)
	assert.Equal(t, "AB-100", records[0].PartNumber)
	assert.Equal(t, "ACME", records[0].Manufacturer)

	// No separator: the whole cell is the part number.
	assert.Equal(t, "NO-SLASH-PN", records[1].PartNumber)
	assert.Empty(t, records[1].Manufacturer)
}

func TestValidateLowConfidenceMappingFlags(t *testing.T) {
	table := standardTable([]string{"AB-1", "Widget", "2"})
	table.NeedsReview = true

	v := newTestValidator(true)
	records, _ := v.Validate(table, nil, uuid.New())

	require.Len(t, records, 1)
	assert.Equal(t, bom.StatusNeedsReview, records[0].Status)
	assert.Contains(t, records[0].ReviewReasons, "low-confidence column mapping")
}

func TestValidateTracksSource(t *testing.T) {
	tableID := uuid.New()
	table := standardTable(
		[]string{"AB-1", "Widget", "2"},
		[]string{"AB-2", "Gadget", "1"},
	)

	v := newTestValidator(true)
	records, _ := v.Validate(table, nil, tableID)

	require.Len(t, records, 2)
	assert.Equal(t, tableID, records[0].SourceTableID)
	assert.Equal(t, 0, records[0].SourceRow)
	assert.Equal(t, 1, records[1].SourceRow)
}
