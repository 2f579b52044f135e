package model

import "github.com/google/uuid"

// NewID mints a fresh lowercase-hyphenated UUID suitable for an ExpenseID
// or EventID, matching the wire format pinned in spec.md §6.
func NewID() string {
	return uuid.New().String()
}
