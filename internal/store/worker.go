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

const workerTableName = "workers"

var workerColumns = utils.StructTagValues(types.Worker{})

type WorkerRepository struct {
	pool *pgxpool.Pool
}

func NewWorkerRepository(pool *pgxpool.Pool) *WorkerRepository {
	return &WorkerRepository{pool: pool}
}

func (r *WorkerRepository) CreateWorker(ctx context.Context, worker *types.Worker) error {
	now := time.Now()
	worker.CreatedAt = now
	worker.UpdatedAt = now

	query, args, err := psql().
		Insert(workerTableName).
		SetMap(utils.StructToMap(worker)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create worker query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrWorkerExists
		}
		return fmt.Errorf("failed to create worker: %w", err)
	}

	return nil
}

func (r *WorkerRepository) Worker(ctx context.Context, workerID string) (*types.Worker, error) {
	query, args, err := psql().
		Select(workerColumns...).
		From(workerTableName).
		Where(sq.Eq{"id": workerID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate worker query: %w", err)
	}

	var worker types.Worker
	err = pgxscan.Get(ctx, r.pool, &worker, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrWorkerNotFound
		}
		return nil, fmt.Errorf("failed to fetch worker: %w", err)
	}

	return &worker, nil
}

// Workers lists workers oldest first, so round-robin order is stable between
// runs.
func (r *WorkerRepository) Workers(ctx context.Context, filter types.WorkerFilter) ([]*types.Worker, error) {
	builder := psql().
		Select(workerColumns...).
		From(workerTableName).
		OrderBy("created_at ASC", "id ASC")

	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if zone := strings.TrimSpace(filter.Zone); zone != "" {
		builder = builder.Where(sq.Eq{"zone": zone})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workers query: %w", err)
	}

	var workers = make([]*types.Worker, 0)
	err = pgxscan.Select(ctx, r.pool, &workers, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers: %w", err)
	}

	return workers, nil
}

// UpdateWorkerStatus moves a worker to status only while it is still in one of
// from.
func (r *WorkerRepository) UpdateWorkerStatus(ctx context.Context, workerID string, from []types.WorkerStatus, to types.WorkerStatus) (*types.Worker, error) {
	query, args, err := psql().
		Update(workerTableName).
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": workerID, "status": from}).
		Suffix("RETURNING " + strings.Join(workerColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update worker status query: %w", err)
	}

	var worker types.Worker
	err = pgxscan.Get(ctx, r.pool, &worker, query, args...)
	if err == nil {
		return &worker, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to update worker status: %w", err)
	}

	current, err := r.Worker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w: worker is %s", types.ErrInvalidTransition, current.Status)
}
