package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		pageCount int
		want      []int
		wantErr   bool
	}{
		{name: "single page", expr: "3", pageCount: 10, want: []int{3}},
		{name: "simple range", expr: "1-3", pageCount: 10, want: []int{1, 2, 3}},
		{name: "comma list", expr: "2,4,6", pageCount: 10, want: []int{2, 4, 6}},
		{name: "mixed", expr: "1-3,5,7-8", pageCount: 10, want: []int{1, 2, 3, 5, 7, 8}},
		{name: "all", expr: "all", pageCount: 3, want: []int{1, 2, 3}},
		{name: "all case insensitive", expr: "ALL", pageCount: 2, want: []int{1, 2}},
		{name: "overlap deduped", expr: "1-3,2-4", pageCount: 10, want: []int{1, 2, 3, 4}},
		{name: "unordered input sorted", expr: "5,1,3", pageCount: 10, want: []int{1, 3, 5}},
		{name: "spaces tolerated", expr: " 1 - 2 , 4 ", pageCount: 10, want: []int{1, 2, 4}},
		{name: "no bound check when count unknown", expr: "99", pageCount: 0, want: []int{99}},

		{name: "empty", expr: "", pageCount: 10, wantErr: true},
		{name: "zero page", expr: "0", pageCount: 10, wantErr: true},
		{name: "negative start", expr: "-2", pageCount: 10, wantErr: true},
		{name: "inverted range", expr: "5-2", pageCount: 10, wantErr: true},
		{name: "out of range", expr: "11", pageCount: 10, wantErr: true},
		{name: "range beyond document", expr: "9-12", pageCount: 10, wantErr: true},
		{name: "garbage", expr: "two", pageCount: 10, wantErr: true},
		{name: "all without count", expr: "all", pageCount: 0, wantErr: true},
		{name: "only commas", expr: ",,", pageCount: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRange(tt.expr, tt.pageCount)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
