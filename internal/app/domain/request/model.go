// Package request defines the service request ledger entry.
package request

import "time"

// Status is the lifecycle state of a service request. It is derived at
// creation time, never supplied by the caller.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusUpcoming   Status = "UPCOMING"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusApproved, StatusRejected, StatusUpcoming:
		return true
	}
	return false
}

// ServiceRequest is one ledger entry: a user requesting a service, or a
// synthetic entry appended by a fine payment (ServiceID empty in that case).
type ServiceRequest struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id,omitempty"`
	ServiceID string                 `json:"service_id,omitempty"`
	Status    Status                 `json:"status"`
	IsPaid    bool                   `json:"is_paid"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}
