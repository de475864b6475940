package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"airjump/internal/models"
	"airjump/internal/repository"
	"airjump/internal/validation"
)

var ErrChildNotFound = errors.New("child not found")

const (
	maxMedicalNotesLength     = 1000
	maxEmergencyContactLength = 100
)

// ChildInput is the editable part of a child record as submitted by a parent
type ChildInput struct {
	Name             string `json:"name"`
	BirthDate        string `json:"birth_date"`
	MedicalNotes     string `json:"medical_notes"`
	EmergencyContact string `json:"emergency_contact"`
	HasDisability    bool   `json:"has_disability"`
}

// ChildService manages the children registered by parents
type ChildService struct {
	childRepo *repository.ChildRepository
	now       func() time.Time
}

// NewChildService creates a new child service. Ages follow the calendar of loc, UTC when nil.
func NewChildService(childRepo *repository.ChildRepository, loc *time.Location) *ChildService {
	return &ChildService{
		childRepo: childRepo,
		now:       venueClock(loc),
	}
}

func (s *ChildService) validateInput(input ChildInput) (*models.Child, error) {
	name := strings.TrimSpace(input.Name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	birth, err := validation.ParseDate("birth_date", input.BirthDate)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateBirthDate(birth, s.now()); err != nil {
		return nil, err
	}

	contact := strings.TrimSpace(input.EmergencyContact)
	if err := validation.ValidateRequired("emergency_contact", contact, maxEmergencyContactLength); err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(input.MedicalNotes)
	if len(notes) > maxMedicalNotesLength {
		return nil, validation.ValidationError{Field: "medical_notes", Message: "Medical notes are too long"}
	}

	return &models.Child{
		Name:             name,
		BirthDate:        birth,
		MedicalNotes:     notes,
		EmergencyContact: contact,
		HasDisability:    input.HasDisability,
	}, nil
}

// AddChild registers a child for a parent
func (s *ChildService) AddChild(parentID int64, input ChildInput) (*models.ChildProfile, error) {
	child, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	child.ParentID = parentID

	if err := s.childRepo.CreateChild(child); err != nil {
		return nil, err
	}

	profile := models.NewChildProfile(*child, s.now())
	return &profile, nil
}

// ListChildren returns a parent's children with age and tags, newest first
func (s *ChildService) ListChildren(parentID int64) ([]models.ChildProfile, error) {
	children, err := s.childRepo.GetParentChildren(parentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	profiles := make([]models.ChildProfile, 0, len(children))
	for _, c := range children {
		profiles = append(profiles, models.NewChildProfile(c, now))
	}
	return profiles, nil
}

// getOwnedChild loads a child and checks it belongs to parentID
func (s *ChildService) getOwnedChild(parentID, childID int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	// Another parent's child is reported as missing
	if child == nil || child.ParentID != parentID {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// GetChild returns one of the parent's children
func (s *ChildService) GetChild(parentID, childID int64) (*models.ChildProfile, error) {
	child, err := s.getOwnedChild(parentID, childID)
	if err != nil {
		return nil, err
	}
	profile := models.NewChildProfile(*child, s.now())
	return &profile, nil
}

// UpdateChild replaces the editable fields of one of the parent's children
func (s *ChildService) UpdateChild(parentID, childID int64, input ChildInput) (*models.ChildProfile, error) {
	existing, err := s.getOwnedChild(parentID, childID)
	if err != nil {
		return nil, err
	}

	updated, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.ParentID = existing.ParentID
	updated.Visits = existing.Visits
	updated.CreatedAt = existing.CreatedAt

	ok, err := s.childRepo.UpdateChild(updated)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrChildNotFound
	}

	profile := models.NewChildProfile(*updated, s.now())
	return &profile, nil
}

// DeleteChild removes one of the parent's children along with its visits and alerts
func (s *ChildService) DeleteChild(parentID, childID int64) error {
	ok, err := s.childRepo.DeleteChild(parentID, childID)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	if !ok {
		return ErrChildNotFound
	}
	return nil
}

// ListAllChildren returns every child with parent contact details for staff
func (s *ChildService) ListAllChildren() ([]models.ChildWithParent, error) {
	rows, err := s.childRepo.GetAllChildrenWithParents()
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]models.ChildWithParent, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.ChildWithParent{
			ChildProfile: models.NewChildProfile(row.Child, now),
			ParentName:   row.ParentName,
			ParentEmail:  row.ParentEmail,
			ParentPhone:  row.ParentPhone,
		})
	}
	return result, nil
}
