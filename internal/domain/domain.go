package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of the exchange from the client's point of view.
// Values are stored verbatim in the transactions table.
type Direction string

const (
	DirectionBuy  Direction = "Comprar"
	DirectionSell Direction = "Vender"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// MethodType identifies a payment rail a user can register.
type MethodType string

const (
	MethodPayPal    MethodType = "PayPal"
	MethodZinli     MethodType = "Zinli"
	MethodPagoMovil MethodType = "PagoMovil"
)

// RequiredMethodType returns the payment rail the user must have registered
// to receive funds for the given direction. Buyers receive dollars, sellers
// receive bolivars.
func RequiredMethodType(d Direction) []MethodType {
	switch d {
	case DirectionBuy:
		return []MethodType{MethodPayPal, MethodZinli}
	case DirectionSell:
		return []MethodType{MethodPagoMovil}
	default:
		return nil
	}
}

// TxStatus is the settlement state of a transaction.
type TxStatus string

const (
	StatusPending   TxStatus = "Pendiente"
	StatusCompleted TxStatus = "Completada"
	StatusFailed    TxStatus = "Fallida"
)

// User is a registered client of the exchange.
type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	CreatedAt  time.Time `db:"created_at"`
}

// PaymentMethod is a payout destination owned by a user, identified
// by a per-user unique nickname.
type PaymentMethod struct {
	ID             int64      `db:"id"`
	UserTelegramID int64      `db:"user_telegram_id"`
	Type           MethodType `db:"type"`
	Nickname       string     `db:"nickname"`
	Details        string     `db:"details"`
	CreatedAt      time.Time  `db:"created_at"`
}

// Transaction is a settled or pending exchange operation.
type Transaction struct {
	ID             int64           `db:"id"`
	UserTelegramID int64           `db:"user_telegram_id"`
	Direction      Direction       `db:"direction"`
	AmountUSD      decimal.Decimal `db:"amount_usd"`
	CommissionUSD  decimal.Decimal `db:"commission_usd"`
	TotalUSD       decimal.Decimal `db:"total_usd"`
	RateBs         decimal.Decimal `db:"rate_bs"`
	TotalBs        decimal.Decimal `db:"total_bs"`
	MethodID       int64           `db:"method_id"`
	Reference      string          `db:"reference"`
	Status         TxStatus        `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
}
