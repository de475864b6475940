package models

import "time"

// Tags shown next to a child's name on the scanner and parent screens
const (
	TagDisability = "⚠️"
	TagUnderFive  = "🥸"
	TagMinor      = "👦"
)

// Child represents a child registered by a parent
type Child struct {
	ID               int64     `json:"id"`
	ParentID         int64     `json:"parent_id"`
	Name             string    `json:"name"`
	BirthDate        time.Time `json:"birth_date"`
	MedicalNotes     string    `json:"medical_notes"`
	EmergencyContact string    `json:"emergency_contact"`
	HasDisability    bool      `json:"has_disability"`
	Visits           int       `json:"visits"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AgeOn returns the age in whole years at now, counting a birthday only once it has occurred.
// birth is a calendar date stored at UTC midnight; now is read on the calendar of its own location.
func AgeOn(birth, now time.Time) int {
	birth = birth.UTC()

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// ChildTags derives the display tags for a child, always in the order disability, under five, minor
func ChildTags(birth time.Time, hasDisability bool, now time.Time) []string {
	tags := []string{}
	if hasDisability {
		tags = append(tags, TagDisability)
	}
	age := AgeOn(birth, now)
	if age < 5 {
		tags = append(tags, TagUnderFive)
	}
	if age < 18 {
		tags = append(tags, TagMinor)
	}
	return tags
}

// ChildProfile is a child together with the values derived from its birth date
type ChildProfile struct {
	Child
	Age  int      `json:"age"`
	Tags []string `json:"tags"`
}

// NewChildProfile computes age and tags for c as of now
func NewChildProfile(c Child, now time.Time) ChildProfile {
	return ChildProfile{
		Child: c,
		Age:   AgeOn(c.BirthDate, now),
		Tags:  ChildTags(c.BirthDate, c.HasDisability, now),
	}
}

// ChildWithParent is the admin view of a child, including parent contact details
type ChildWithParent struct {
	ChildProfile
	ParentName  string `json:"parent_name"`
	ParentEmail string `json:"parent_email"`
	ParentPhone string `json:"parent_phone"`
}
