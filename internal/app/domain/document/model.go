package document

import "time"

// Document is a reference to a file a user uploaded elsewhere (the portal
// stores the link, not the bytes).
type Document struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
