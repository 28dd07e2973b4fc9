package service

import (
	"context"
	"fmt"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/observability"
	"wastewatch/pkg/types"

	"go.opentelemetry.io/otel/attribute"
)

const maxListLimit = 500

// PendingStatuses are the statuses of reports waiting for a worker.
var PendingStatuses = []types.ReportStatus{types.ReportStatusSubmitted, types.ReportStatusUnderReview}

var openStatuses = []types.ReportStatus{
	types.ReportStatusSubmitted,
	types.ReportStatusUnderReview,
	types.ReportStatusAssigned,
	types.ReportStatusInProgress,
}

// applySLA fills the derived SLA fields for the current time.
func (s *Service) applySLA(view *types.ReportView) {
	view.IsSLABreach = lifecycle.IsBreach(s.now(), view.DueAt, view.Status)
	view.SLARemainingHours, view.SLALabel = lifecycle.Remaining(s.now(), view.DueAt, view.Status)
}

// toView copies report so the anonymity rule never touches stored data.
func (s *Service) toView(report *types.Report, images []*types.ReportImage) *types.ReportView {
	c := *report
	if c.IsAnonymous {
		c.ReporterID = nil
	}
	if images == nil {
		images = []*types.ReportImage{}
	}

	view := &types.ReportView{Report: &c, Images: images}
	s.applySLA(view)
	return view
}

func (s *Service) views(ctx context.Context, reports []*types.Report) ([]*types.ReportView, error) {
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.ID)
	}

	images, err := s.images.ImagesByReports(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*types.ReportView, 0, len(reports))
	for _, r := range reports {
		out = append(out, s.toView(r, images[r.ID]))
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, report *types.Report) (*types.ReportView, error) {
	images, err := s.images.ImagesByReport(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	return s.toView(report, images), nil
}

func (s *Service) Report(ctx context.Context, reportID string) (*types.ReportView, error) {
	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, report)
}

// ListReports validates filter and returns matching reports newest first.
func (s *Service) ListReports(ctx context.Context, filter types.ReportFilter) (_ []*types.ReportView, err error) {
	ctx, span := observability.StartSpan(ctx, "service.ListReports", attribute.Int("filter.statuses", len(filter.Statuses)))
	defer func() { observability.EndSpan(span, err) }()

	verr := types.NewValidationError()
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			verr.Add("status", fmt.Sprintf("unknown status %q", st))
		}
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		verr.Add("category", fmt.Sprintf("unknown category %q", filter.Category))
	}
	if filter.Severity != "" && !filter.Severity.IsValid() {
		verr.Add("severity", fmt.Sprintf("unknown severity %q", filter.Severity))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if filter.Limit == 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	reports, err := s.reports.Reports(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return s.views(ctx, reports)
}

func (s *Service) ReporterReports(ctx context.Context, reporterID string) ([]*types.ReportView, error) {
	return s.ListReports(ctx, types.ReportFilter{ReporterID: reporterID})
}

// PendingReports is the list the authority dashboard polls. It is served from
// the cache inside the staleness window; SLA fields are always recomputed.
func (s *Service) PendingReports(ctx context.Context) ([]*types.ReportView, error) {
	var cached []*types.ReportView
	found, err := s.cache.Get(ctx, cache.KeyPendingReports, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read pending reports from cache")
	}
	if found && err == nil {
		for _, v := range cached {
			s.applySLA(v)
		}
		return cached, nil
	}

	views, err := s.ListReports(ctx, types.ReportFilter{Statuses: PendingStatuses})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.KeyPendingReports, views); err != nil {
		s.logger.WithError(err).Warn("failed to cache pending reports")
	}
	return views, nil
}

// BreachedReports lists open reports that are past due.
func (s *Service) BreachedReports(ctx context.Context) ([]*types.ReportView, error) {
	views, err := s.ListReports(ctx, types.ReportFilter{Statuses: openStatuses})
	if err != nil {
		return nil, err
	}

	out := make([]*types.ReportView, 0)
	for _, v := range views {
		if v.IsSLABreach {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Service) ReportEvents(ctx context.Context, reportID string) ([]*types.ReportEvent, error) {
	return s.events.EventsByReport(ctx, reportID)
}
