package service

import (
	"fmt"

	"airjump/internal/database"
	"airjump/internal/models"
	"airjump/internal/repository"
)

// LoyaltyService exposes a parent's punch card. Seals and redemptions are
// applied by EntryService inside the checkout and check-in transactions.
type LoyaltyService struct {
	db          *database.DB
	loyaltyRepo *repository.LoyaltyRepository
}

// NewLoyaltyService creates a new loyalty service
func NewLoyaltyService(db *database.DB, loyaltyRepo *repository.LoyaltyRepository) *LoyaltyService {
	return &LoyaltyService{db: db, loyaltyRepo: loyaltyRepo}
}

// GetProgram returns the parent's card, creating an empty one on first use
func (s *LoyaltyService) GetProgram(parentID int64) (*models.LoyaltyProgram, error) {
	program, err := s.loyaltyRepo.GetProgram(parentID)
	if err != nil {
		return nil, err
	}
	if program != nil {
		return program, nil
	}

	program, err = s.loyaltyRepo.CreateProgram(parentID)
	if err == nil {
		return program, nil
	}
	if !s.db.Dialect.IsUniqueViolation(err) {
		return nil, err
	}

	// Lost the race against a concurrent create
	program, err = s.loyaltyRepo.GetProgram(parentID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, fmt.Errorf("failed to load loyalty program for parent %d", parentID)
	}
	return program, nil
}
