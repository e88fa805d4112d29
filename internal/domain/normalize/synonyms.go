package normalize

import (
	"regexp"
	"strings"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// baseSynonyms maps canonical fields to the header labels seen across
// vendor BoMs. Profiles layer customer-specific labels on top.
var baseSynonyms = map[bom.CanonicalField][]string{
	bom.FieldPartNumber: {
		"part number", "part no", "part no.", "part#", "part #", "p/n", "pn",
		"mpn", "mfr part number", "manufacturer part number",
		"commercial part#", "vendor p/n", "catalog number", "cat no",
	},
	bom.FieldDescription: {
		"description", "desc", "descrip", "item description",
		"material description", "details", "comments",
	},
	bom.FieldQuantity: {
		"qty", "quantity", "qty.", "qty req", "quantity required", "ea qty",
	},
	bom.FieldUnit: {
		"unit", "uom", "u/m", "units", "unit of measure",
	},
	bom.FieldManufacturer: {
		"manufacturer", "mfg", "mfr", "make", "brand",
	},
	bom.FieldReference: {
		"reference", "ref", "ref des", "designator", "reference designator",
		"internal reference", "notes",
	},
	bom.FieldItem: {
		"item", "item no", "item number", "line", "line no", "pos",
	},
	bom.FieldUnitPriceHint: {
		"price", "unit price", "cost", "unit cost", "cost each", "price each",
	},
}

// fieldOrder fixes the priority when one label could match several fields:
// identifying columns win over bookkeeping ones.
var fieldOrder = []bom.CanonicalField{
	bom.FieldPartNumber,
	bom.FieldQuantity,
	bom.FieldDescription,
	bom.FieldManufacturer,
	bom.FieldUnit,
	bom.FieldReference,
	bom.FieldUnitPriceHint,
	bom.FieldItem,
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeLabel canonicalizes a header cell for dictionary comparison.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ":;")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return whitespaceRE.ReplaceAllString(s, " ")
}

// mergedSynonyms layers profile synonyms over the base dictionary.
func mergedSynonyms(extra map[bom.CanonicalField][]string) map[bom.CanonicalField][]string {
	if len(extra) == 0 {
		return baseSynonyms
	}
	merged := make(map[bom.CanonicalField][]string, len(baseSynonyms))
	for f, syns := range baseSynonyms {
		merged[f] = syns
	}
	for f, syns := range extra {
		merged[f] = append(append([]string{}, syns...), merged[f]...)
	}
	return merged
}

// combinedMfgPartRE spots headers like "MFG / PART NUMBER" that hold both
// the manufacturer and the part identifier in one column.
var combinedMfgPartRE = regexp.MustCompile(`(?i)\bm(f|anu)\w*\s*[/ ]\s*pa(rt|f)`)
