package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cambiobot/internal/domain"
)

// Commission tiers in USD. Selling always pays the flat fee, buying pays a
// flat fee on small amounts and a percentage above the upper tier.
var (
	flatFee      = decimal.NewFromInt(1)
	midFee       = decimal.RequireFromString("1.5")
	pctFee       = decimal.RequireFromString("0.08")
	midTierFloor = decimal.NewFromInt(10)
	midTierCeil  = decimal.NewFromInt(25)
)

// Quote is the complete settlement math for one exchange operation.
type Quote struct {
	Direction     domain.Direction
	AmountUSD     decimal.Decimal
	CommissionUSD decimal.Decimal
	TotalUSD      decimal.Decimal
	RateBs        decimal.Decimal
	TotalBs       decimal.Decimal
}

// Commission computes the fee in USD for the given direction and amount.
func Commission(direction domain.Direction, amountUSD decimal.Decimal) (decimal.Decimal, error) {
	if !direction.Valid() {
		return decimal.Zero, fmt.Errorf("exchange: unknown direction %q", direction)
	}
	if amountUSD.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("exchange: amount must be positive, got %s", amountUSD)
	}

	if direction == domain.DirectionSell {
		return flatFee, nil
	}

	switch {
	case amountUSD.LessThan(midTierFloor):
		return flatFee, nil
	case amountUSD.LessThanOrEqual(midTierCeil):
		return midFee, nil
	default:
		return amountUSD.Mul(pctFee), nil
	}
}

// Settle computes the full quote for an operation. Buying adds the fee on
// top of the amount, selling deducts it from the payout.
func Settle(direction domain.Direction, amountUSD, rateBs decimal.Decimal) (Quote, error) {
	commission, err := Commission(direction, amountUSD)
	if err != nil {
		return Quote{}, err
	}
	if rateBs.Sign() <= 0 {
		return Quote{}, fmt.Errorf("exchange: rate must be positive, got %s", rateBs)
	}

	var totalUSD decimal.Decimal
	if direction == domain.DirectionBuy {
		totalUSD = amountUSD.Add(commission)
	} else {
		totalUSD = amountUSD.Sub(commission)
	}

	return Quote{
		Direction:     direction,
		AmountUSD:     amountUSD,
		CommissionUSD: commission,
		TotalUSD:      totalUSD,
		RateBs:        rateBs,
		TotalBs:       totalUSD.Mul(rateBs),
	}, nil
}
