package sales

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCalculateLine(t *testing.T) {
	cases := []struct {
		total, commission, owner  string
		wantCommission, wantOwner string
	}{
		{"100", "40", "60", "40.00", "60.00"},
		{"33.33", "10", "15", "3.33", "5.00"},
		{"45.50", "0", "100", "0.00", "45.50"},
		{"0", "50", "50", "0.00", "0.00"},
		{"19.99", "12.5", "37.5", "2.50", "7.50"},
	}
	for _, tc := range cases {
		split := CalculateLine(decimal.RequireFromString(tc.total), decimal.RequireFromString(tc.commission), decimal.RequireFromString(tc.owner))
		require.Equal(t, tc.wantCommission, split.Commission.StringFixed(2), tc.total)
		require.Equal(t, tc.wantOwner, split.SalonOwner.StringFixed(2), tc.total)
	}
}
