// Package artifact writes the intermediate and final workbook artifacts of a
// reconciliation run. Artifact names are deterministic: the input document's
// base name plus a fixed stage suffix, so reruns overwrite their own output.
package artifact

import (
	"path/filepath"
	"strings"
)

// Stage suffixes, appended to the input document's base name.
const (
	SuffixExtracted = "_extracted.xlsx"
	SuffixMerged    = "_merged.xlsx"
	SuffixPriced    = "_priced.xlsx"
	SuffixCostSheet = "_cost_sheet.xlsx"
	SuffixPricedCSV = "_priced.csv"
)

// Path returns the artifact path for one stage. outDir overrides the default
// placement beside the input document.
func Path(inputPath, suffix, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, base+suffix)
}
