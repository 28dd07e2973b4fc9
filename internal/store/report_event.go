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

const reportEventsTableName = "report_events"

var reportEventColumns = utils.StructTagValues(types.ReportEvent{})

type ReportEventRepository struct {
	pool *pgxpool.Pool
}

func NewReportEventRepository(pool *pgxpool.Pool) *ReportEventRepository {
	return &ReportEventRepository{pool: pool}
}

// RecordEvent appends an event; the same kind may be recorded repeatedly.
func (r *ReportEventRepository) RecordEvent(ctx context.Context, event *types.ReportEvent) error {
	event.ID = utils.NanoID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query, args, err := psql().
		Insert(reportEventsTableName).
		SetMap(utils.StructToMap(event)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert report event query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record report event")
}

// EventsByReport returns all events for a report, ordered chronologically
func (r *ReportEventRepository) EventsByReport(ctx context.Context, reportID string) ([]*types.ReportEvent, error) {
	query, args, err := psql().
		Select(reportEventColumns...).
		From(reportEventsTableName).
		Where(sq.Eq{"report_id": reportID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate get events query: %w", err)
	}

	var events = make([]*types.ReportEvent, 0)
	err = pgxscan.Select(ctx, r.pool, &events, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to get report events")
	}

	return events, nil
}
