// Package instrument defines a user's single payment method. Deployments run
// in one of two mutually exclusive variants: bank-account proxies or credit
// cards. Both are carried by one Instrument shape distinguished by Kind.
package instrument

import "time"

// Kind tells which variant an instrument is.
type Kind string

const (
	KindBankAccount Kind = "bank_account"
	KindCreditCard  Kind = "credit_card"
)

// Instrument is a user's payment method. At most one exists per user.
type Instrument struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Kind      Kind      `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Bank account fields.
	IBAN            string `json:"iban,omitempty" db:"iban"`
	DisplayName     string `json:"display_name,omitempty" db:"display_name"`
	InfiniteBalance bool   `json:"infinite_balance,omitempty" db:"infinite_balance"`

	// Credit card fields.
	CardNumber string `json:"card_number,omitempty" db:"card_number"`
	HolderName string `json:"holder_name,omitempty" db:"holder_name"`
	Expiry     string `json:"expiry,omitempty" db:"expiry"`
}
