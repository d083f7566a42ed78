package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
)

type ProfileRepository struct {
	db queryer
}

var _ profiles.Repository = (*ProfileRepository)(nil)

func (r *ProfileRepository) Get(ctx context.Context, id string) (*profiles.Profile, error) {
	var (
		profile profiles.Profile
		role    string
	)
	err := r.db.QueryRow(ctx, `
SELECT id, full_name, role, created_at
  FROM profiles
 WHERE id = $1
`, id).Scan(&profile.ID, &profile.FullName, &role, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, profiles.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile.Role = auth.NormalizeRole(role)
	return &profile, nil
}
