package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"finanzen/internal/core"
	"finanzen/internal/storage"
)

// ProfilePatch is a partial profile update.
type ProfilePatch struct {
	Name  *string
	Color *string
}

// ProfileService manages household members.
type ProfileService struct {
	storage *storage.SQLiteRepository
}

func NewProfileService(storage *storage.SQLiteRepository) *ProfileService {
	return &ProfileService{storage: storage}
}

// List returns the admin profile first, then the others by name.
func (s *ProfileService) List(ctx context.Context) ([]core.Profile, error) {
	profiles, err := s.storage.Queries().ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if profiles == nil {
		profiles = []core.Profile{}
	}
	return profiles, nil
}

func (s *ProfileService) Get(ctx context.Context, id int64) (core.Profile, error) {
	return s.storage.Queries().GetProfile(ctx, id)
}

// Create adds a regular (non-admin) profile with a unique name.
func (s *ProfileService) Create(ctx context.Context, name, color string) (core.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Profile{}, core.Invalid("name", "must not be empty")
	}

	var created core.Profile
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		taken, err := q.ProfileNameTaken(ctx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return core.Invalid("name", "profile name %q is already taken", name)
		}
		created, err = q.CreateProfile(ctx, core.Profile{Name: name, Color: strings.TrimSpace(color)})
		return err
	})
	return created, err
}

func (s *ProfileService) Update(ctx context.Context, id int64, p ProfilePatch) (core.Profile, error) {
	var updated core.Profile
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		profile, err := q.GetProfile(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return core.Invalid("name", "must not be empty")
			}
			taken, err := q.ProfileNameTaken(ctx, name, id)
			if err != nil {
				return err
			}
			if taken {
				return core.Invalid("name", "profile name %q is already taken", name)
			}
			profile.Name = name
		}
		if p.Color != nil {
			profile.Color = *p.Color
		}
		if err := q.UpdateProfile(ctx, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	return updated, err
}

// Delete removes a profile and unlinks its accounts. The admin profile
// cannot be deleted.
func (s *ProfileService) Delete(ctx context.Context, id int64) error {
	return s.storage.InTx(ctx, func(q *storage.Queries) error {
		profile, err := q.GetProfile(ctx, id)
		if err != nil {
			return err
		}
		if profile.IsAdmin {
			return core.Invalid("", "the admin profile cannot be deleted")
		}
		if _, err := q.UnlinkProfileAccounts(ctx, id); err != nil {
			return fmt.Errorf("unlink accounts: %w", err)
		}
		return q.DeleteProfile(ctx, id)
	})
}

// EnsureAdmin creates the admin profile if it is missing and assigns every
// account without a profile to it.
func (s *ProfileService) EnsureAdmin(ctx context.Context) (core.Profile, error) {
	var admin core.Profile
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		admin, err = q.GetAdminProfile(ctx)
		if isNotFound(err) {
			admin, err = q.CreateProfile(ctx, core.Profile{
				Name:    core.AdminProfileName,
				Color:   core.DefaultProfileColor,
				IsAdmin: true,
			})
			if err == nil {
				slog.InfoContext(ctx, "Created admin profile", "profile_id", admin.ID)
			}
		}
		if err != nil {
			return fmt.Errorf("ensure admin profile: %w", err)
		}

		assigned, err := q.AssignUnownedAccounts(ctx, admin.ID)
		if err != nil {
			return fmt.Errorf("assign accounts: %w", err)
		}
		if assigned > 0 {
			slog.InfoContext(ctx, "Assigned accounts to admin profile",
				"profile_id", admin.ID, "accounts", assigned)
		}
		return nil
	})
	return admin, err
}
