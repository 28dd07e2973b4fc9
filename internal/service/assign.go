package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/observability"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// guard inspects the current report before a transition. Returning done=true
// makes the transition a no-op that returns the report unchanged.
type guard func(report *types.Report) (done bool, err error)

// transition applies action to report under the report lock and records the
// status change. apply may add fields to the conditional update.
func (s *Service) transition(ctx context.Context, actor types.Identity, reportID string, action lifecycle.Action, check guard, apply func(*types.ReportTransition)) (*types.Report, error) {
	unlock := s.locks.Lock(reportID)
	defer unlock()

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if check != nil {
		done, err := check(report)
		if err != nil {
			return nil, err
		}
		if done {
			return report, nil
		}
	}

	to, err := lifecycle.Next(report.Status, action)
	if err != nil {
		return nil, err
	}

	tr := types.ReportTransition{From: lifecycle.Sources(action), To: to}
	if apply != nil {
		apply(&tr)
	}

	updated, err := s.reports.TransitionReport(ctx, reportID, tr)
	if err != nil {
		return nil, err
	}

	event := actorEvent(reportID, types.EventStatusChanged, actor)
	event.FromStatus = statusPtr(report.Status)
	event.ToStatus = statusPtr(updated.Status)
	event.Message = utils.StringPtr(string(action))
	s.recordEvent(ctx, event)

	s.logger.WithFields(logrus.Fields{
		"report_id": reportID,
		"action":    action,
		"from":      report.Status,
		"status":    updated.Status,
	}).Info("report transitioned")

	return updated, nil
}

// ReviewReport marks a submitted report as under review.
func (s *Service) ReviewReport(ctx context.Context, actor types.Identity, reportID string) (_ *types.ReportView, err error) {
	ctx, span := observability.StartSpan(ctx, "service.ReviewReport", attribute.String("report.id", reportID))
	defer func() { observability.EndSpan(span, err) }()

	updated, err := s.transition(ctx, actor, reportID, lifecycle.ActionReview, nil, nil)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.KeyPendingReports)
	return s.view(ctx, updated)
}

type AssignInput struct {
	ReportID       string `json:"-"`
	WorkerID       string `json:"workerId"`
	DepartmentID   string `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
}

// AssignReport assigns one report to an explicitly chosen worker. The worker
// is re-read and must be active.
func (s *Service) AssignReport(ctx context.Context, actor types.Identity, in AssignInput) (_ *types.ReportView, err error) {
	ctx, span := observability.StartSpan(ctx, "service.AssignReport",
		attribute.String("report.id", in.ReportID),
		attribute.String("worker.id", in.WorkerID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(in.WorkerID) == "" {
		verr := types.NewValidationError()
		verr.Add("workerId", "a worker is required")
		return nil, verr
	}

	worker, err := s.workers.Worker(ctx, in.WorkerID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsAvailable(worker) {
		return nil, fmt.Errorf("%w: worker %s is %s", types.ErrWorkerUnavailable, worker.ID, worker.Status)
	}

	updated, err := s.assignTo(ctx, actor, in.ReportID, worker, utils.NullableString(in.DepartmentID), utils.NullableString(in.DepartmentName))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.KeyPendingReports)
	return s.view(ctx, updated)
}

func (s *Service) assignTo(ctx context.Context, actor types.Identity, reportID string, worker *types.Worker, deptID, deptName *string) (*types.Report, error) {
	return s.transition(ctx, actor, reportID, lifecycle.ActionAssign, nil, func(tr *types.ReportTransition) {
		tr.Assign = &types.Assignment{
			WorkerID:       worker.ID,
			WorkerName:     worker.Name,
			DepartmentID:   deptID,
			DepartmentName: deptName,
			AssignedAt:     s.now(),
		}
	})
}

type AssignedReport struct {
	ReportID   string `json:"reportId"`
	ReportCode string `json:"reportCode"`
	WorkerID   string `json:"workerId"`
	WorkerName string `json:"workerName"`
}

type AssignFailure struct {
	ReportID string `json:"reportId"`
	WorkerID string `json:"workerId"`
	Error    string `json:"error"`
}

// AutoAssignResult tells the operator exactly what a batch changed, including
// the report it stopped at.
type AutoAssignResult struct {
	PendingCount int              `json:"pendingCount"`
	WorkerCount  int              `json:"workerCount"`
	Assigned     []AssignedReport `json:"assigned"`
	Failed       *AssignFailure   `json:"failed,omitempty"`
	Aborted      bool             `json:"aborted"`
}

// AutoAssignAll pairs pending reports, newest first, with active workers
// round-robin and assigns them one at a time. Lists are read once. The first
// failure stops the batch; earlier assignments stay in place and are listed in
// the result.
func (s *Service) AutoAssignAll(ctx context.Context, actor types.Identity) (_ *AutoAssignResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service.AutoAssignAll")
	defer func() { observability.EndSpan(span, err) }()

	pending, err := s.reports.Reports(ctx, types.ReportFilter{Statuses: PendingStatuses})
	if err != nil {
		return nil, fmt.Errorf("load pending reports: %w", err)
	}
	workers, err := s.workers.Workers(ctx, types.WorkerFilter{Statuses: []types.WorkerStatus{types.WorkerStatusActive}})
	if err != nil {
		return nil, fmt.Errorf("load available workers: %w", err)
	}

	result := &AutoAssignResult{
		PendingCount: len(pending),
		WorkerCount:  len(workers),
		Assigned:     []AssignedReport{},
	}
	span.SetAttributes(attribute.Int("reports.pending", len(pending)), attribute.Int("workers.available", len(workers)))

	pairs := lifecycle.RoundRobin(pending, workers)
	if len(pairs) == 0 {
		return result, nil
	}
	defer s.invalidate(ctx, cache.KeyPendingReports)

	for i, pair := range pairs {
		if i > 0 && s.autoAssignDelay > 0 {
			select {
			case <-ctx.Done():
				result.Aborted = true
				result.Failed = &AssignFailure{ReportID: pair.Report.ID, WorkerID: pair.Worker.ID, Error: ctx.Err().Error()}
				return result, nil
			case <-time.After(s.autoAssignDelay):
			}
		}

		if _, err := s.assignTo(ctx, actor, pair.Report.ID, pair.Worker, nil, nil); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"report_id": pair.Report.ID,
				"worker_id": pair.Worker.ID,
				"assigned":  len(result.Assigned),
			}).Error("auto-assign aborted")

			result.Aborted = true
			result.Failed = &AssignFailure{ReportID: pair.Report.ID, WorkerID: pair.Worker.ID, Error: err.Error()}
			return result, nil
		}

		result.Assigned = append(result.Assigned, AssignedReport{
			ReportID:   pair.Report.ID,
			ReportCode: pair.Report.Code,
			WorkerID:   pair.Worker.ID,
			WorkerName: pair.Worker.Name,
		})
	}

	s.logger.WithField("assigned", len(result.Assigned)).Info("auto-assign finished")
	return result, nil
}
