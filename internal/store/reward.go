package store

import (
	"context"
	"fmt"
	"time"

	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rewardTableName = "worker_rewards"

var rewardColumns = utils.StructTagValues(types.WorkerReward{})

type RewardRepository struct {
	pool *pgxpool.Pool
}

func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// CreateReward writes the ledger row. report_id is unique, so a report can
// never reward twice.
func (r *RewardRepository) CreateReward(ctx context.Context, reward *types.WorkerReward) error {
	reward.ID = utils.NanoID()
	reward.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(rewardTableName).
		SetMap(utils.StructToMap(reward)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create reward query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: report %s already rewarded", types.ErrReportConflict, reward.ReportID)
		}
		return fmt.Errorf("failed to create reward: %w", err)
	}

	return nil
}

func (r *RewardRepository) RewardsByWorker(ctx context.Context, workerID string) ([]*types.WorkerReward, error) {
	query, args, err := psql().
		Select(rewardColumns...).
		From(rewardTableName).
		Where(sq.Eq{"worker_id": workerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rewards query: %w", err)
	}

	var rewards = make([]*types.WorkerReward, 0)
	err = pgxscan.Select(ctx, r.pool, &rewards, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rewards: %w", err)
	}

	return rewards, nil
}

func (r *RewardRepository) MarkRewardPaid(ctx context.Context, rewardID, transferID string, paidAt time.Time) error {
	query, args, err := psql().
		Update(rewardTableName).
		Set("payout_transfer_id", transferID).
		Set("paid_at", paidAt).
		Where(sq.Eq{"id": rewardID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark reward paid query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to mark reward paid")
}
