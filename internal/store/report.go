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

const reportTableName = "reports"

var reportColumns = utils.StructTagValues(types.Report{})

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// CreateReport assigns the id, the sequential code and the timestamps before
// inserting. CreatedAt is kept when the caller already set it so due_at stays
// consistent with it.
func (r *ReportRepository) CreateReport(ctx context.Context, report *types.Report) error {

	var seq int64
	if err := r.pool.QueryRow(ctx, "SELECT nextval('report_code_seq')").Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate report code: %w", err)
	}

	now := time.Now()
	report.ID = utils.NanoID()
	report.Code = utils.ReportCode(seq)
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = report.CreatedAt

	query, args, err := psql().
		Insert(reportTableName).
		SetMap(utils.StructToMap(report)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create report query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create report")
}

func (r *ReportRepository) Report(ctx context.Context, reportID string) (*types.Report, error) {

	query, args, err := psql().
		Select(reportColumns...).
		From(reportTableName).
		Where(sq.Eq{"id": reportID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report query: %w", err)
	}

	var report = new(types.Report)
	err = pgxscan.Get(ctx, r.pool, report, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	return report, nil
}

// Reports returns the reports matching filter, newest first.
func (r *ReportRepository) Reports(ctx context.Context, filter types.ReportFilter) ([]*types.Report, error) {

	builder := psql().
		Select(reportColumns...).
		From(reportTableName).
		OrderBy("created_at DESC")

	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Severity != "" {
		builder = builder.Where(sq.Eq{"severity": filter.Severity})
	}
	if filter.WorkerID != "" {
		builder = builder.Where(sq.Eq{"assigned_worker_id": filter.WorkerID})
	}
	if filter.ReporterID != "" {
		builder = builder.Where(sq.Eq{"reporter_id": filter.ReporterID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reports query: %w", err)
	}

	var reports = make([]*types.Report, 0)
	err = pgxscan.Select(ctx, r.pool, &reports, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}

	return reports, nil
}

// TransitionReport applies transition in one conditional UPDATE. When no row
// matches, the report either does not exist or has left every From status (or
// the expected worker) since it was read.
func (r *ReportRepository) TransitionReport(ctx context.Context, reportID string, transition types.ReportTransition) (*types.Report, error) {

	set := map[string]any{
		"status":     transition.To,
		"updated_at": time.Now(),
	}

	switch {
	case transition.Assign != nil:
		a := transition.Assign
		set["assigned_worker_id"] = a.WorkerID
		set["assigned_worker_name"] = a.WorkerName
		set["department_id"] = a.DepartmentID
		set["department_name"] = a.DepartmentName
		set["assigned_at"] = a.AssignedAt
	case transition.ClearAssignment:
		set["assigned_worker_id"] = nil
		set["assigned_worker_name"] = nil
		set["department_id"] = nil
		set["department_name"] = nil
		set["assigned_at"] = nil
		set["verified_at"] = nil
	}

	if transition.VerifiedAt != nil {
		set["verified_at"] = *transition.VerifiedAt
	}
	if transition.ResolvedAt != nil {
		set["resolved_at"] = *transition.ResolvedAt
	}

	where := sq.Eq{"id": reportID, "status": transition.From}
	if transition.ExpectWorkerID != "" {
		where["assigned_worker_id"] = transition.ExpectWorkerID
	}

	query, args, err := psql().
		Update(reportTableName).
		SetMap(set).
		Where(where).
		Suffix("RETURNING " + strings.Join(reportColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transition report query: %w", err)
	}

	var report = new(types.Report)
	err = pgxscan.Get(ctx, r.pool, report, query, args...)
	if err == nil {
		return report, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to transition report: %w", err)
	}

	if _, err := r.Report(ctx, reportID); err != nil {
		return nil, err
	}

	return nil, types.ErrReportConflict
}

// DeleteReport only serves submission compensation; images cascade.
func (r *ReportRepository) DeleteReport(ctx context.Context, reportID string) error {

	query, args, err := psql().
		Delete(reportTableName).
		Where(sq.Eq{"id": reportID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete report query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete report")
}
