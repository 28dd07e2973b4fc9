package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileTableName = "profiles"

var profileColumns = utils.StructTagValues(types.Profile{})

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, r.pool, &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return &profile, nil
}

// UpsertIdentity creates the profile on first sight of a user and refreshes
// the email afterwards. A display name is only filled in when missing;
// counters are never touched here.
func (r *ProfileRepository) UpsertIdentity(ctx context.Context, userID, email, displayName string) error {
	now := time.Now()

	emailPtr := utils.NullableString(email)
	namePtr := utils.NullableString(displayName)

	query, args, err := psql().
		Insert(profileTableName).
		Columns("id", "email", "display_name", "created_at", "updated_at").
		Values(userID, emailPtr, namePtr, now, now).
		Suffix("ON CONFLICT (id) DO UPDATE SET email = COALESCE(EXCLUDED.email, " + profileTableName + ".email), display_name = COALESCE(" + profileTableName + ".display_name, EXCLUDED.display_name), updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert profile query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert profile identity")
}

// CreditSubmission adds points and one submitted report in a single
// statement, creating the profile when the citizen has none yet.
func (r *ProfileRepository) CreditSubmission(ctx context.Context, userID string, points int) error {
	now := time.Now()

	query, args, err := psql().
		Insert(profileTableName).
		Columns("id", "points", "reports_submitted", "reports_resolved", "created_at", "updated_at").
		Values(userID, points, 1, 0, now, now).
		Suffix(strings.Join([]string{
			"ON CONFLICT (id) DO UPDATE SET",
			"points = " + profileTableName + ".points + EXCLUDED.points,",
			"reports_submitted = " + profileTableName + ".reports_submitted + 1,",
			"updated_at = EXCLUDED.updated_at",
		}, " ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate credit submission query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to credit submission")
}

func (r *ProfileRepository) CreditResolution(ctx context.Context, userID string) error {
	query, args, err := psql().
		Update(profileTableName).
		Set("reports_resolved", sq.Expr("reports_resolved + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate credit resolution query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to credit resolution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrProfileNotFound
	}

	return nil
}
