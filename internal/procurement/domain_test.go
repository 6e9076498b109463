package procurement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name      string
		unitPrice string
		qty       int64
		taxRate   string
		shipping  string
		subtotal  string
		tax       string
		total     string
	}{
		{"laptops order", "1000", 100, "18", "500", "100000.00", "18000.00", "118500.00"},
		{"zero tax and shipping", "49.99", 3, "0", "0", "149.97", "0.00", "149.97"},
		{"fractional tax", "10.50", 7, "7.25", "12.30", "73.50", "5.33", "91.13"},
		{"single unit", "0.01", 1, "100", "0", "0.01", "0.01", "0.02"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unitPrice := decimal.RequireFromString(tc.unitPrice)
			taxRate := decimal.RequireFromString(tc.taxRate)
			shipping := decimal.RequireFromString(tc.shipping)
			got := ComputeTotals(unitPrice, tc.qty, taxRate, shipping)
			require.Equal(t, tc.subtotal, got.Subtotal.StringFixed(2))
			require.Equal(t, tc.tax, got.TaxAmount.StringFixed(2))
			require.Equal(t, tc.total, got.TotalAmount.StringFixed(2))
		})
	}
}

func TestRFQExpired(t *testing.T) {
	deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rfq := RFQ{ResponseDeadline: &deadline}

	// Any time on the deadline day is still on time, down to the last nanosecond.
	require.False(t, rfq.Expired(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))
	require.False(t, rfq.Expired(time.Date(2026, 3, 10, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)))
	require.True(t, rfq.Expired(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
	require.True(t, rfq.Expired(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)))

	require.False(t, RFQ{}.Expired(time.Now()))
}

func TestPOStatusDeliverySubset(t *testing.T) {
	for _, st := range []POStatus{POStatusPending, POStatusInProgress, POStatusReceived, POStatusDelivered, POStatusDelayed} {
		require.True(t, st.DeliveryStatus(), string(st))
	}
	for _, st := range []POStatus{POStatusDraft, POStatusApproved, POStatusSent, POStatusCancelled} {
		require.False(t, st.DeliveryStatus(), string(st))
	}
	require.False(t, POStatus("bogus").Valid())
}
