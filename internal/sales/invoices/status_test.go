package invoices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name  string
		total float64
		paid  float64
		want  SaleStatus
	}{
		{"unpaid", 300.00, 0, SaleStatusIssued},
		{"negative paid treated as unpaid", 300.00, -10, SaleStatusIssued},
		{"first installment", 300.00, 100.00, SaleStatusPartial},
		{"second installment still short", 300.00, 200.00, SaleStatusPartial},
		{"settled exactly", 300.00, 300.00, SaleStatusPaid},
		{"settled within tolerance", 300.00, 299.99, SaleStatusPaid},
		{"one cent short of tolerance", 300.00, 299.98, SaleStatusPartial},
		{"overpaid still paid", 300.00, 300.50, SaleStatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.total, tc.paid))
		})
	}
}

func TestDeriveStatusIdempotent(t *testing.T) {
	// Re-deriving with unchanged inputs never moves the status.
	for _, paid := range []float64{0, 100, 299.98, 299.99, 300} {
		first := DeriveStatus(300, paid)
		require.Equal(t, first, DeriveStatus(300, paid))
	}
}

func TestExpandStatusFilter(t *testing.T) {
	require.Equal(t, []SaleStatus{SaleStatusIssued, SaleStatusPartial}, ExpandStatusFilter("pending"))
	require.Nil(t, ExpandStatusFilter(""))
	require.Equal(t, []SaleStatus{SaleStatusPaid}, ExpandStatusFilter("PAID"))
}
