package profile

import (
	"github.com/shopspring/decimal"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// Builtin profile IDs for the customers shipped with the application.
const (
	IDGeneric   = "generic"
	IDFarrell   = "farrell"
	IDNEL       = "nel"
	IDPrimetals = "primetals"
)

// omniLayout is the shared cost-sheet shape: headers on row 12, data below.
func omniLayout() Layout {
	return Layout{
		SheetName: "Cost Sheet",
		HeaderRow: 12,
		Columns: []TemplateColumn{
			{Header: "ITEM", Role: RoleItemSeq},
			{Header: "MFR", Role: RoleField, Field: bom.FieldManufacturer},
			{Header: "COMMERCIAL PART#", Role: RoleField, Field: bom.FieldPartNumber},
			{Header: "DESCRIPTION", Role: RoleField, Field: bom.FieldDescription},
			{Header: "UNIT QTY", Role: RoleField, Field: bom.FieldQuantity},
			{Header: "COST EACH", Role: RoleUnitPrice},
			{Header: "EXT COST", Role: RoleExtendedTotal},
			{Header: "SUPPLIER / NOTES", Role: RoleField, Field: bom.FieldReference},
			{Header: "REVIEW", Role: RoleReview},
		},
	}
}

func builtins() map[string]*Profile {
	return map[string]*Profile{
		IDGeneric: {
			ID:       IDGeneric,
			Name:     "Generic/Other",
			Currency: "USD",
			Rounding: 2,
			Layout:   omniLayout(),
		},
		IDFarrell: {
			ID:   IDFarrell,
			Name: "Farrell",
			HeaderSynonyms: map[bom.CanonicalField][]string{
				bom.FieldPartNumber:   {"internal part number", "paf part number"},
				bom.FieldManufacturer: {"mfg / part number", "mfg/part number", "mfg part"},
			},
			RejectKeywords: []string{"PRINTED DRAWING", "REFERENCE ONLY"},
			DetectKeywords: []string{"FARRELL"},
			SplitMfgPart:   true,
			Currency:       "USD",
			Rounding:       2,
			Layout:         omniLayout(),
		},
		IDNEL: {
			ID:   IDNEL,
			Name: "NEL",
			HeaderSynonyms: map[bom.CanonicalField][]string{
				bom.FieldReference:  {"proton p/n", "customer p/n"},
				bom.FieldPartNumber: {"vendor p/n", "commercial p/n"},
			},
			RejectKeywords: []string{"CUT BACK", "SHRINK TUBING", "DRAWING NUMBER"},
			DetectKeywords: []string{"NEL HYDROGEN", "PROTON ENERGY", "PROTON P/N"},
			Currency:       "USD",
			Rounding:       2,
			Layout: Layout{
				SheetName: "Cost Sheet",
				HeaderRow: 12,
				Columns: []TemplateColumn{
					{Header: "OMNI PART #", Role: RoleItemSeq},
					{Header: "CUST PART #", Role: RoleField, Field: bom.FieldReference},
					{Header: "COMMERCIAL PART#", Role: RoleField, Field: bom.FieldPartNumber},
					{Header: "DESCRIPTION", Role: RoleField, Field: bom.FieldDescription},
					{Header: "MFR", Role: RoleField, Field: bom.FieldManufacturer},
					{Header: "UNIT QTY", Role: RoleField, Field: bom.FieldQuantity},
					{Header: "COST EACH", Role: RoleUnitPrice},
					{Header: "EXT COST", Role: RoleExtendedTotal},
					{Header: "REVIEW", Role: RoleReview},
				},
			},
		},
		IDPrimetals: {
			ID:   IDPrimetals,
			Name: "Primetals",
			HeaderSynonyms: map[bom.CanonicalField][]string{
				bom.FieldPartNumber:   {"mfgpart", "mfg part number"},
				bom.FieldManufacturer: {"mfg"},
			},
			RejectKeywords: []string{"PRIMETALS TECHNOLOGIES", "CONFIDENTIAL", "PROPRIETARY"},
			DetectKeywords: []string{"PRIMETALS", "PRIMETALS TECHNOLOGIES"},
			Currency:       "USD",
			Rounding:       2,
			MarkupPercent:  decimal.Zero,
			Layout:         omniLayout(),
		},
	}
}

// Builtin returns a shipped profile by ID.
func Builtin(id string) (*Profile, bool) {
	p, ok := builtins()[id]
	return p, ok
}

// All returns every shipped profile.
func All() []*Profile {
	m := builtins()
	out := make([]*Profile, 0, len(m))
	for _, id := range []string{IDGeneric, IDFarrell, IDNEL, IDPrimetals} {
		out = append(out, m[id])
	}
	return out
}
