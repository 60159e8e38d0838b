package appointment

import "time"

// Appointment is a scheduled service visit. Pure scheduling record, no status
// and no link to payment.
type Appointment struct {
	ID        string    `json:"id" db:"id"`
	ServiceID string    `json:"service_id" db:"service_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Date      string    `json:"date" db:"visit_date"`
	Time      string    `json:"time" db:"visit_time"`
	Location  string    `json:"location" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
