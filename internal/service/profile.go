package service

import (
	"context"
	"errors"

	"wastewatch/pkg/types"
)

// Profile returns the citizen's engagement counters. A citizen who has never
// submitted gets an empty profile rather than an error.
func (s *Service) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	profile, err := s.profiles.Profile(ctx, userID)
	if errors.Is(err, types.ErrProfileNotFound) {
		return &types.Profile{ID: userID}, nil
	}
	return profile, err
}

// EnsureProfile records the identity of a signed-in citizen.
func (s *Service) EnsureProfile(ctx context.Context, identity types.Identity, displayName string) error {
	if identity.UserID == "" {
		return nil
	}
	return s.profiles.UpsertIdentity(ctx, identity.UserID, identity.Email, displayName)
}
