package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cambiobot/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCommissionSellIsFlat(t *testing.T) {
	for _, amount := range []string{"1", "9.99", "10", "25", "100", "1000"} {
		c, err := Commission(domain.DirectionSell, dec(amount))
		require.NoError(t, err, "amount %s", amount)
		assert.True(t, c.Equal(dec("1")), "amount %s: got %s", amount, c)
	}
}

func TestCommissionBuyTiers(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"1", "1"},
		{"5", "1"},
		{"9.99", "1"},
		{"10", "1.5"},
		{"15", "1.5"},
		{"25", "1.5"},
		{"25.01", "2.0008"},
		{"50", "4"},
		{"100", "8"},
	}
	for _, tc := range cases {
		c, err := Commission(domain.DirectionBuy, dec(tc.amount))
		require.NoError(t, err, "amount %s", tc.amount)
		assert.True(t, c.Equal(dec(tc.want)), "amount %s: want %s got %s", tc.amount, tc.want, c)
	}
}

func TestCommissionRejectsBadInput(t *testing.T) {
	_, err := Commission(domain.DirectionBuy, dec("0"))
	assert.Error(t, err)

	_, err = Commission(domain.DirectionBuy, dec("-5"))
	assert.Error(t, err)

	_, err = Commission(domain.Direction("Prestar"), dec("10"))
	assert.Error(t, err)
}

func TestSettleBuyAddsCommission(t *testing.T) {
	q, err := Settle(domain.DirectionBuy, dec("20"), dec("40"))
	require.NoError(t, err)

	assert.True(t, q.CommissionUSD.Equal(dec("1.5")))
	assert.True(t, q.TotalUSD.Equal(dec("21.5")))
	assert.True(t, q.TotalBs.Equal(dec("860")))
}

func TestSettleSellSubtractsCommission(t *testing.T) {
	q, err := Settle(domain.DirectionSell, dec("20"), dec("40"))
	require.NoError(t, err)

	assert.True(t, q.CommissionUSD.Equal(dec("1")))
	assert.True(t, q.TotalUSD.Equal(dec("19")))
	assert.True(t, q.TotalBs.Equal(dec("760")))
}

func TestSettlePercentTier(t *testing.T) {
	q, err := Settle(domain.DirectionBuy, dec("100"), dec("36.5"))
	require.NoError(t, err)

	assert.True(t, q.CommissionUSD.Equal(dec("8")))
	assert.True(t, q.TotalUSD.Equal(dec("108")))
	assert.True(t, q.TotalBs.Equal(dec("3942")))
}

func TestSettleRejectsBadRate(t *testing.T) {
	_, err := Settle(domain.DirectionBuy, dec("10"), dec("0"))
	assert.Error(t, err)

	_, err = Settle(domain.DirectionBuy, dec("10"), dec("-1"))
	assert.Error(t, err)
}
