package collector

import (
	"errors"
	"testing"

	"github.com/newthinker/quarterly/internal/core"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"AAPL", "AAPL", false},
		{" msft ", "MSFT", false},
		{"brk.b", "BRK.B", false},
		{"BF-B", "BF-B", false},
		{"0700.HK", "0700.HK", false},
		{"", "", true},
		{"TOOLONGSYMBOL", "", true},
		{"AA PL", "", true},
		{"../etc", "", true},
	}

	for _, tc := range tests {
		got, err := NormalizeSymbol(tc.input)
		if tc.wantErr {
			if !errors.Is(err, core.ErrSymbolInvalid) {
				t.Errorf("NormalizeSymbol(%q) error = %v, want SYMBOL_INVALID", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSymbol(%q) unexpected error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
