package utils

import (
	"net/mail"
	"strings"
)

const (
	MinPasswordLength = 6
	MaxNameLength     = 80
	MaxBioLength      = 1000
	MaxSkills         = 30
	MaxSkillLength    = 50
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateEmail checks the address parses and carries no display name.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Email is not a valid address"}
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// ValidateName rejects names longer than MaxNameLength runes.
func ValidateName(name string) error {
	if len([]rune(strings.TrimSpace(name))) > MaxNameLength {
		return &ValidationError{Field: "name", Message: "Name must be at most 80 characters"}
	}
	return nil
}

// ValidateBio rejects bios longer than MaxBioLength runes.
func ValidateBio(bio string) error {
	if len([]rune(bio)) > MaxBioLength {
		return &ValidationError{Field: "bio", Message: "Bio must be at most 1000 characters"}
	}
	return nil
}

// NormalizeSkills trims entries, drops empties and case-insensitive duplicates,
// and keeps first-seen order.
func NormalizeSkills(field string, skills []string) ([]string, error) {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len([]rune(s)) > MaxSkillLength {
			return nil, &ValidationError{Field: field, Message: "Each skill must be at most 50 characters"}
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if len(out) > MaxSkills {
		return nil, &ValidationError{Field: field, Message: "At most 30 skills are allowed"}
	}
	return out, nil
}

// SplitSkills parses a comma separated list the way the profile form submits it.
func SplitSkills(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	return strings.Split(csv, ",")
}
