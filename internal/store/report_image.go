package store

import (
	"context"
	"fmt"

	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reportImageTableName = "report_images"

var reportImageColumns = utils.StructTagValues(types.ReportImage{})

// ReportImageRepository has no update path: images are append-only.
type ReportImageRepository struct {
	pool *pgxpool.Pool
}

func NewReportImageRepository(pool *pgxpool.Pool) *ReportImageRepository {
	return &ReportImageRepository{pool: pool}
}

func (r *ReportImageRepository) CreateImage(ctx context.Context, image *types.ReportImage) error {
	if image.ID == "" {
		image.ID = utils.NanoID()
	}

	query, args, err := psql().
		Insert(reportImageTableName).
		SetMap(utils.StructToMap(image)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create image query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create report image")
}

func (r *ReportImageRepository) ImagesByReport(ctx context.Context, reportID string) ([]*types.ReportImage, error) {
	query, args, err := psql().
		Select(reportImageColumns...).
		From(reportImageTableName).
		Where(sq.Eq{"report_id": reportID}).
		OrderBy("kind ASC", "position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate images query: %w", err)
	}

	var images = make([]*types.ReportImage, 0)
	err = pgxscan.Select(ctx, r.pool, &images, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report images: %w", err)
	}

	return images, nil
}

// ImagesByReports joins images for a page of reports in one query.
func (r *ReportImageRepository) ImagesByReports(ctx context.Context, reportIDs []string) (map[string][]*types.ReportImage, error) {
	out := make(map[string][]*types.ReportImage, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}

	query, args, err := psql().
		Select(reportImageColumns...).
		From(reportImageTableName).
		Where(sq.Eq{"report_id": reportIDs}).
		OrderBy("report_id ASC", "kind ASC", "position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate images-by-reports query: %w", err)
	}

	var images []*types.ReportImage
	err = pgxscan.Select(ctx, r.pool, &images, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch images by reports: %w", err)
	}

	for _, image := range images {
		out[image.ReportID] = append(out[image.ReportID], image)
	}

	return out, nil
}

func (r *ReportImageRepository) DeleteImagesByReport(ctx context.Context, reportID string) error {
	query, args, err := psql().
		Delete(reportImageTableName).
		Where(sq.Eq{"report_id": reportID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete images query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete report images")
}
