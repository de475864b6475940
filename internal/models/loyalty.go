package models

import "time"

// SealsPerFreeEntry is the number of seals that convert into one free entry
const SealsPerFreeEntry = 10

// LoyaltyProgram is a parent's punch card
type LoyaltyProgram struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	Seals       int       `json:"seals"`
	FreeEntries int       `json:"free_entries"`
	LastUpdated time.Time `json:"last_updated"`
}

// WithSeal returns the program after one more seal, converting a full card into a free entry
func (p LoyaltyProgram) WithSeal() LoyaltyProgram {
	total := p.Seals + 1
	p.FreeEntries += total / SealsPerFreeEntry
	p.Seals = total % SealsPerFreeEntry
	return p
}

// SealsToNextFree is how many more checkouts are needed for the next free entry
func (p LoyaltyProgram) SealsToNextFree() int {
	return SealsPerFreeEntry - p.Seals
}
