package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"airjump/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()\-]{8,20}$`)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// MaxChildAge is the first age at which a child can no longer be registered
const MaxChildAge = 18

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > 100 {
		return ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidatePhone checks an optional phone number
func ValidatePhone(field, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return ValidationError{Field: field, Message: "invalid phone number"}
	}
	return nil
}

// ValidateRequired checks a free-text field is present and not longer than max characters
func ValidateRequired(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(value) > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC
func ParseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ValidationError{Field: field, Message: "date must be in YYYY-MM-DD format"}
	}
	return d, nil
}

// ValidateBirthDate checks the birth date of a child being registered
func ValidateBirthDate(birth, now time.Time) error {
	if birth.IsZero() {
		return ValidationError{Field: "birth_date", Message: "birth date is required"}
	}
	if birth.After(calendarDate(now)) {
		return ValidationError{Field: "birth_date", Message: "birth date cannot be in the future"}
	}
	if models.AgeOn(birth, now) >= MaxChildAge {
		return ValidationError{Field: "birth_date", Message: fmt.Sprintf("child must be younger than %d", MaxChildAge)}
	}
	return nil
}

// calendarDate is the date now falls on in its own location, as a UTC midnight like ParseDate returns
func calendarDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidatePartyDate checks a party is booked for today or later
func ValidatePartyDate(date, now time.Time) error {
	if date.Before(calendarDate(now)) {
		return ValidationError{Field: "party_date", Message: "party date cannot be in the past"}
	}
	return nil
}

// ValidateGuests checks the guest count against a package capacity
func ValidateGuests(guests int, pkg models.PartyPackage) error {
	if guests < 1 {
		return ValidationError{Field: "guests", Message: "at least one guest is required"}
	}
	if guests > pkg.MaxKids {
		return ValidationError{Field: "guests", Message: fmt.Sprintf("package %s allows at most %d kids", pkg.ID, pkg.MaxKids)}
	}
	return nil
}

// ValidateOneOf checks value is one of the allowed options
func ValidateOneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return ValidationError{Field: field, Message: fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", "))}
}
