// Package catalog holds the static reference data: government agencies and the
// services they offer.
package catalog

// Agency is a government agency offering services.
type Agency struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Service is a single offering of an agency. Immutable from the request
// ledger's viewpoint. Category, when set, drives status classification ahead
// of name matching.
type Service struct {
	ID          string  `json:"id" db:"id"`
	AgencyID    string  `json:"agency_id" db:"agency_id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Fee         float64 `json:"fee" db:"fee"`
	Category    string  `json:"category,omitempty" db:"category"`
}
