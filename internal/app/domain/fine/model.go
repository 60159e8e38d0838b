// Package fine defines externally issued traffic fines.
package fine

import "time"

// Status of a traffic fine. A fine moves PENDING -> PAID exactly once.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// TrafficFine is an externally issued fine a user must pay. Listings are
// ordered (issued_at desc, created_at desc).
type TrafficFine struct {
	ID            string     `json:"id" db:"id"`
	FineNumber    string     `json:"fine_number" db:"fine_number"`
	UserID        string     `json:"user_id" db:"user_id"`
	Amount        float64    `json:"amount" db:"amount"`
	ViolationType string     `json:"violation_type" db:"violation_type"`
	IssuedAt      *time.Time `json:"issued_at,omitempty" db:"issued_at"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	Status        Status     `json:"status" db:"status"`
	Notes         string     `json:"notes" db:"notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
