package domain

import (
	"context"
	"time"
)

// Role is the side of the peer-support relationship a user is on.
type Role string

const (
	RoleSeeker    Role = "seeker"
	RoleSupporter Role = "supporter"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleSeeker || r == RoleSupporter
}

// Opposite returns the role a user of role r is matched against.
func (r Role) Opposite() Role {
	if r == RoleSeeker {
		return RoleSupporter
	}
	return RoleSeeker
}

// Profile holds the matchable attributes of a user. Only the first name is
// stored as a display name.
type Profile struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	Role              Role      `json:"role"`
	PrimaryCategory   string    `json:"primary_category"`
	SecondaryCategory string    `json:"secondary_category,omitempty"`
	SupportTags       []string  `json:"support_tags,omitempty"` // needs for seekers, offers for supporters
	Interests         []string  `json:"interests,omitempty"`
	AgeBracket        string    `json:"age_bracket,omitempty"`
	StageDescriptor   string    `json:"stage_descriptor,omitempty"`
	Stage             Stage     `json:"stage"`
	Recurrence        string    `json:"recurrence,omitempty"`
	Available         *bool     `json:"available,omitempty"`
	Building          string    `json:"building,omitempty"`
	Floor             string    `json:"floor,omitempty"`
	Bio               string    `json:"bio,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsAvailable treats a missing availability flag as available.
func (p *Profile) IsAvailable() bool {
	return p.Available == nil || *p.Available
}

// ParsedStage returns the stored stage classification, parsing the descriptor
// when the profile was built without going through ProfileService.
func (p *Profile) ParsedStage() Stage {
	if p.Stage.Kind == "" {
		return ParseStage(p.StageDescriptor)
	}
	return p.Stage
}

// ProfileRepository is the ProfileStore collaborator.
type ProfileRepository interface {
	SaveProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// ListProfilesByRole returns profiles in store order.
	ListProfilesByRole(ctx context.Context, role Role) ([]*Profile, error)
	SetAvailability(ctx context.Context, userID string, available bool) error
}
