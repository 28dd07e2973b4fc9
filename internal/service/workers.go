package service

import (
	"context"
	"fmt"
	"strings"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/observability"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ApplyWorker registers the caller as a worker awaiting approval.
func (s *Service) ApplyWorker(ctx context.Context, identity types.Identity, app types.WorkerApplication) (_ *types.Worker, err error) {
	ctx, span := observability.StartSpan(ctx, "service.ApplyWorker", attribute.String("worker.id", identity.UserID))
	defer func() { observability.EndSpan(span, err) }()

	verr := types.NewValidationError()
	if strings.TrimSpace(identity.UserID) == "" {
		verr.Add("id", "an authenticated user is required")
	}
	if strings.TrimSpace(app.Name) == "" {
		verr.Add("name", "name is required")
	}
	if strings.TrimSpace(app.Phone) == "" && strings.TrimSpace(app.Email) == "" && strings.TrimSpace(identity.Email) == "" {
		verr.Add("contact", "a phone number or email is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	email := app.Email
	if strings.TrimSpace(email) == "" {
		email = identity.Email
	}

	worker := &types.Worker{
		ID:     identity.UserID,
		Name:   strings.TrimSpace(app.Name),
		Phone:  utils.NullableString(app.Phone),
		Email:  utils.NullableString(email),
		Zone:   utils.NullableString(app.Zone),
		Status: types.WorkerStatusPendingApproval,
	}
	if err := s.workers.CreateWorker(ctx, worker); err != nil {
		return nil, err
	}

	s.logger.WithField("worker_id", worker.ID).Info("worker application received")
	return worker, nil
}

func (s *Service) ApproveWorker(ctx context.Context, actor types.Identity, workerID string) (*types.Worker, error) {
	return s.setWorkerStatus(ctx, actor, workerID, types.WorkerStatusActive)
}

func (s *Service) RejectWorker(ctx context.Context, actor types.Identity, workerID string) (*types.Worker, error) {
	return s.setWorkerStatus(ctx, actor, workerID, types.WorkerStatusRejected)
}

// SetWorkerActive toggles an approved worker between active and inactive.
func (s *Service) SetWorkerActive(ctx context.Context, actor types.Identity, workerID string, active bool) (*types.Worker, error) {
	to := types.WorkerStatusInactive
	if active {
		to = types.WorkerStatusActive
	}
	return s.setWorkerStatus(ctx, actor, workerID, to)
}

func (s *Service) setWorkerStatus(ctx context.Context, actor types.Identity, workerID string, to types.WorkerStatus) (_ *types.Worker, err error) {
	ctx, span := observability.StartSpan(ctx, "service.SetWorkerStatus",
		attribute.String("worker.id", workerID),
		attribute.String("worker.status", string(to)),
	)
	defer func() { observability.EndSpan(span, err) }()

	current, err := s.workers.Worker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.NextWorker(current.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.workers.UpdateWorkerStatus(ctx, workerID, lifecycle.WorkerSources(to), to)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.KeyAvailableWorkers)
	s.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"from":      current.Status,
		"status":    updated.Status,
		"actor_id":  actor.UserID,
	}).Info("worker status changed")

	return updated, nil
}

func (s *Service) Worker(ctx context.Context, workerID string) (*types.Worker, error) {
	return s.workers.Worker(ctx, workerID)
}

func (s *Service) Workers(ctx context.Context, filter types.WorkerFilter) ([]*types.Worker, error) {
	verr := types.NewValidationError()
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			verr.Add("status", fmt.Sprintf("unknown worker status %q", st))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.workers.Workers(ctx, filter)
}

// AvailableWorkers lists active workers, served from the cache inside the
// staleness window.
func (s *Service) AvailableWorkers(ctx context.Context) ([]*types.Worker, error) {
	var cached []*types.Worker
	found, err := s.cache.Get(ctx, cache.KeyAvailableWorkers, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read available workers from cache")
	}
	if found && err == nil {
		return cached, nil
	}

	workers, err := s.workers.Workers(ctx, types.WorkerFilter{Statuses: []types.WorkerStatus{types.WorkerStatusActive}})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.KeyAvailableWorkers, workers); err != nil {
		s.logger.WithError(err).Warn("failed to cache available workers")
	}
	return workers, nil
}

func (s *Service) WorkerRewards(ctx context.Context, workerID string) ([]*types.WorkerReward, error) {
	return s.rewards.RewardsByWorker(ctx, workerID)
}
