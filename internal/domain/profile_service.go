package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

type ProfileService struct {
	repo ProfileRepository
	now  func() time.Time
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{
		repo: repo,
		now:  time.Now,
	}
}

// SaveProfile creates or replaces the profile of profile.ID. The stage
// descriptor is classified here, once, so scoring never re-parses it.
func (s *ProfileService) SaveProfile(ctx context.Context, profile *Profile) (*Profile, error) {
	if profile == nil || strings.TrimSpace(profile.ID) == "" || !profile.Role.IsValid() {
		return nil, ErrInvalidInput
	}

	now := s.now().UTC()
	profile.CreatedAt = now

	existing, err := s.repo.GetProfile(ctx, profile.ID)
	switch {
	case err == nil:
		profile.CreatedAt = existing.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	profile.FirstName = firstName(profile.FirstName)
	profile.SupportTags = cleanTags(profile.SupportTags)
	profile.Interests = cleanTags(profile.Interests)
	profile.Stage = ParseStage(profile.StageDescriptor)
	profile.UpdatedAt = now

	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// SetAvailability toggles whether the user shows up in rankings. Existing
// connections are untouched.
func (s *ProfileService) SetAvailability(ctx context.Context, userID string, available bool) error {
	return s.repo.SetAvailability(ctx, userID, available)
}

// firstName keeps only the first word of a display name.
func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
