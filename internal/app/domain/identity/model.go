package identity

import "time"

// User is a registered portal account. PasswordHash is a bcrypt digest and is
// never serialized.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TokenPair is an issued access/refresh token set.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
