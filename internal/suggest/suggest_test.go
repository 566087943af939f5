package suggest

import (
	"testing"

	"github.com/dvloznov/budget-ledger/internal/domain"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.AllocationCategory
		wantErr bool
	}{
		{"need", domain.CategoryNeed, false},
		{"  Want \n", domain.CategoryWant, false},
		{"`savings`", domain.CategorySavings, false},
		{"investments.", domain.CategoryInvestments, false},
		{"This looks like a need.", domain.CategoryNeed, false},
		{"groceries", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCategory(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
