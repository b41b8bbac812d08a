package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Placeholder is shown wherever a profile value is absent.
const Placeholder = "N/A"

// DisplayTimeLayout is the local date-time format used for updated_at.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// Well-known classification values.
const (
	UserTypeSuperUser = "super_user"
	StatusVerified    = "verified"
)

// Profile represents a row in the `profiles` table. Every field except ID is
// optional; a nil pointer means the value was never set.
type Profile struct {
	ID        string     `json:"id" db:"id"`
	FirstName *string    `json:"first_name,omitempty" db:"first_name"`
	LastName  *string    `json:"last_name,omitempty" db:"last_name"`
	UserType  *string    `json:"user_type,omitempty" db:"user_type"`
	Status    *string    `json:"status,omitempty" db:"status"`
	AvatarURL *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Patch carries the self-editable profile fields. Nil fields are left as they are.
type Patch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.AvatarURL == nil
}

// Apply merges the patch into a copy of the profile.
func (p Patch) Apply(pr Profile) Profile {
	if p.FirstName != nil {
		pr.FirstName = p.FirstName
	}
	if p.LastName != nil {
		pr.LastName = p.LastName
	}
	if p.AvatarURL != nil {
		pr.AvatarURL = p.AvatarURL
	}
	return pr
}

// Value returns the raw value for a column key, or "" when absent or unknown.
func (p Profile) Value(key string) string {
	var v *string
	switch key {
	case "id":
		return p.ID
	case "first_name":
		v = p.FirstName
	case "last_name":
		v = p.LastName
	case "user_type":
		v = p.UserType
	case "status":
		v = p.Status
	case "avatar_url":
		v = p.AvatarURL
	case "updated_at":
		if p.UpdatedAt == nil {
			return ""
		}
		return p.UpdatedAt.Format(time.RFC3339)
	}
	if v == nil {
		return ""
	}
	return *v
}

// Display returns the value for key as it should be shown to a person.
func (p Profile) Display(key string) string {
	if key == "updated_at" {
		return p.UpdatedDisplay(time.Local)
	}
	return OrPlaceholder(p.Value(key))
}

// UpdatedDisplay renders updated_at in loc, or the placeholder.
func (p Profile) UpdatedDisplay(loc *time.Location) string {
	if p.UpdatedAt == nil || p.UpdatedAt.IsZero() {
		return Placeholder
	}
	if loc == nil {
		loc = time.Local
	}
	return p.UpdatedAt.In(loc).Format(DisplayTimeLayout)
}

// FullName joins first and last name, skipping absent parts.
func (p Profile) FullName() string {
	parts := make([]string, 0, 2)
	if v := p.Value("first_name"); v != "" {
		parts = append(parts, v)
	}
	if v := p.Value("last_name"); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// Initials returns the first letter of each known name part, or "U".
func (p Profile) Initials() string {
	var b strings.Builder
	for _, v := range []string{p.Value("first_name"), p.Value("last_name")} {
		if r, _ := utf8.DecodeRuneInString(v); r != utf8.RuneError {
			b.WriteString(strings.ToUpper(string(r)))
		}
	}
	if b.Len() == 0 {
		return "U"
	}
	return b.String()
}

// IsSuperUser reports whether the profile may view the user directory.
func (p Profile) IsSuperUser() bool {
	return p.Value("user_type") == UserTypeSuperUser && p.Value("status") == StatusVerified
}

// OrPlaceholder returns s, or Placeholder when s is empty.
func OrPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// StringPtr is a helper for building optional fields.
func StringPtr(s string) *string { return &s }
