package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/observability"
	"wastewatch/internal/storage"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

func workerIdentity(workerID string) types.Identity {
	return types.Identity{UserID: workerID, Role: types.RoleWorker}
}

func assignedTo(report *types.Report, workerID string) bool {
	return report.AssignedWorkerID != nil && *report.AssignedWorkerID == workerID
}

// WorkerTasks lists the reports a worker currently holds.
func (s *Service) WorkerTasks(ctx context.Context, workerID string) ([]*types.ReportView, error) {
	return s.ListReports(ctx, types.ReportFilter{
		WorkerID: workerID,
		Statuses: []types.ReportStatus{types.ReportStatusAssigned, types.ReportStatusInProgress},
	})
}

// AcceptAssignment starts work on an assigned report. Accepting a task the
// worker already started changes nothing.
func (s *Service) AcceptAssignment(ctx context.Context, workerID, reportID string) (_ *types.ReportView, err error) {
	ctx, span := observability.StartSpan(ctx, "service.AcceptAssignment",
		attribute.String("report.id", reportID),
		attribute.String("worker.id", workerID),
	)
	defer func() { observability.EndSpan(span, err) }()

	updated, err := s.transition(ctx, workerIdentity(workerID), reportID, lifecycle.ActionAccept, func(r *types.Report) (bool, error) {
		if !assignedTo(r, workerID) {
			return false, types.ErrNotAssignedWorker
		}
		return r.Status == types.ReportStatusInProgress, nil
	}, func(tr *types.ReportTransition) {
		tr.ExpectWorkerID = workerID
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, updated)
}

// RejectAssignment hands a report back: both assignment fields are cleared
// and the status returns to submitted. Rejecting a report that is already
// back in the pool and unassigned is a no-op.
func (s *Service) RejectAssignment(ctx context.Context, workerID, reportID string) (_ *types.ReportView, err error) {
	ctx, span := observability.StartSpan(ctx, "service.RejectAssignment",
		attribute.String("report.id", reportID),
		attribute.String("worker.id", workerID),
	)
	defer func() { observability.EndSpan(span, err) }()

	updated, err := s.transition(ctx, workerIdentity(workerID), reportID, lifecycle.ActionReject, func(r *types.Report) (bool, error) {
		if r.Status == types.ReportStatusSubmitted && r.AssignedWorkerID == nil {
			return true, nil
		}
		if !assignedTo(r, workerID) {
			return false, types.ErrNotAssignedWorker
		}
		return false, nil
	}, func(tr *types.ReportTransition) {
		tr.ClearAssignment = true
		tr.ExpectWorkerID = workerID
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.KeyPendingReports)
	return s.view(ctx, updated)
}

type CompletionResult struct {
	Report   *types.ReportView   `json:"report"`
	Verified bool                `json:"verified"`
	Resolved bool                `json:"resolved"`
	Message  string              `json:"message,omitempty"`
	Reward   *types.WorkerReward `json:"reward,omitempty"`
}

const awaitingConfirmationMessage = "verified, awaiting authority confirmation"

// SubmitCompletionProof stores a proof image and asks the verifier whether the
// issue is resolved. A negative verdict is returned as a result and the
// worker may try again with a new proof.
func (s *Service) SubmitCompletionProof(ctx context.Context, workerID, reportID string, proof ImageUpload) (_ *CompletionResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service.SubmitCompletionProof",
		attribute.String("report.id", reportID),
		attribute.String("worker.id", workerID),
	)
	defer func() { observability.EndSpan(span, err) }()

	verr := types.NewValidationError()
	s.validateImage(verr, "proof", proof)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(reportID)
	defer unlock()

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !assignedTo(report, workerID) {
		return nil, types.ErrNotAssignedWorker
	}
	if _, err := lifecycle.Next(report.Status, lifecycle.ActionResolve); err != nil {
		return nil, err
	}
	if report.VerifiedAt != nil && s.requireConfirmation {
		return nil, fmt.Errorf("%w: completion already verified, awaiting confirmation", types.ErrInvalidTransition)
	}

	images, err := s.images.ImagesByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report images: %w", err)
	}
	var original *types.ReportImage
	proofs := 0
	for _, img := range images {
		switch img.Kind {
		case types.ImageKindOriginal:
			if original == nil {
				original = img
			}
		case types.ImageKindProof:
			proofs++
		}
	}
	if original == nil {
		verr := types.NewValidationError()
		verr.Add("report", "report has no original image to compare against")
		return nil, verr
	}

	at := s.now()
	key := storage.ImageKey(reportID, at, len(images))
	contentType := contentTypeOr(proof.ContentType)
	url, err := s.bucket.Upload(ctx, key, proof.Data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload proof image: %w", err)
	}
	proofImage := &types.ReportImage{
		ReportID:    reportID,
		Kind:        types.ImageKindProof,
		StorageKey:  key,
		PublicURL:   url,
		Position:    proofs,
		ContentType: contentType,
		SizeBytes:   int64(len(proof.Data)),
		UploadedAt:  at,
	}
	if err := s.images.CreateImage(ctx, proofImage); err != nil {
		return nil, fmt.Errorf("record proof image: %w", err)
	}

	verdict, err := s.verifier.Verify(ctx, types.VerificationRequest{
		OriginalImage: original.PublicURL,
		ProofImage:    base64.StdEncoding.EncodeToString(proof.Data),
		Category:      string(report.Category),
		Description:   utils.PtrString(report.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("verify completion: %w", err)
	}

	logger := s.logger.WithFields(logrus.Fields{"report_id": reportID, "worker_id": workerID})
	actor := workerIdentity(workerID)
	message := utils.PtrString(verdict.Message)

	if !verdict.IsResolved {
		event := actorEvent(reportID, types.EventVerificationFailed, actor)
		event.Message = verdict.Message
		s.recordEvent(ctx, event)
		logger.Info("completion proof rejected by verifier")

		view, err := s.view(ctx, report)
		if err != nil {
			return nil, err
		}
		return &CompletionResult{Report: view, Message: message}, nil
	}

	passed := actorEvent(reportID, types.EventVerificationPassed, actor)
	passed.Message = verdict.Message
	s.recordEvent(ctx, passed)

	if s.requireConfirmation {
		verifiedAt := s.now()
		updated, err := s.reports.TransitionReport(ctx, reportID, types.ReportTransition{
			From:           []types.ReportStatus{types.ReportStatusInProgress},
			To:             types.ReportStatusInProgress,
			ExpectWorkerID: workerID,
			VerifiedAt:     &verifiedAt,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("completion verified, awaiting authority confirmation")

		view, err := s.view(ctx, updated)
		if err != nil {
			return nil, err
		}
		if message == "" {
			message = awaitingConfirmationMessage
		}
		return &CompletionResult{Report: view, Verified: true, Message: message}, nil
	}

	resolved, reward, err := s.resolve(ctx, report, types.Identity{Role: lifecycle.RoleVerifier})
	if err != nil {
		return nil, err
	}

	view, err := s.view(ctx, resolved)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{Report: view, Verified: true, Resolved: true, Message: message, Reward: reward}, nil
}

// ConfirmResolution lets an authority resolve a report whose completion was
// verified but held for confirmation.
func (s *Service) ConfirmResolution(ctx context.Context, actor types.Identity, reportID string) (_ *CompletionResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service.ConfirmResolution", attribute.String("report.id", reportID))
	defer func() { observability.EndSpan(span, err) }()

	unlock := s.locks.Lock(reportID)
	defer unlock()

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(report.Status, lifecycle.ActionResolve); err != nil {
		return nil, err
	}
	if report.VerifiedAt == nil {
		return nil, types.ErrNotVerified
	}

	resolved, reward, err := s.resolve(ctx, report, actor)
	if err != nil {
		return nil, err
	}

	view, err := s.view(ctx, resolved)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{Report: view, Verified: true, Resolved: true, Reward: reward}, nil
}

// resolve moves an in-progress report to resolved and settles its side
// effects. The caller holds the report lock. Only the status change can fail
// the call; reward, reporter credit and payout failures are logged.
func (s *Service) resolve(ctx context.Context, report *types.Report, actor types.Identity) (*types.Report, *types.WorkerReward, error) {
	now := s.now()
	verifiedAt := now
	if report.VerifiedAt != nil {
		verifiedAt = *report.VerifiedAt
	}

	updated, err := s.reports.TransitionReport(ctx, report.ID, types.ReportTransition{
		From:           lifecycle.Sources(lifecycle.ActionResolve),
		To:             types.ReportStatusResolved,
		ExpectWorkerID: utils.PtrString(report.AssignedWorkerID),
		VerifiedAt:     &verifiedAt,
		ResolvedAt:     &now,
	})
	if err != nil {
		return nil, nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{"report_id": report.ID, "worker_id": utils.PtrString(report.AssignedWorkerID)})

	event := actorEvent(report.ID, types.EventStatusChanged, actor)
	event.FromStatus = statusPtr(report.Status)
	event.ToStatus = statusPtr(types.ReportStatusResolved)
	event.Message = utils.StringPtr(string(lifecycle.ActionResolve))
	s.recordEvent(ctx, event)

	s.invalidate(ctx, cache.KeyPendingReports)

	reward := s.creditReward(ctx, updated, logger)

	if reporterID := utils.PtrString(report.ReporterID); reporterID != "" {
		if err := s.profiles.CreditResolution(ctx, reporterID); err != nil && !errors.Is(err, types.ErrProfileNotFound) {
			logger.WithError(err).Error("failed to credit reporter resolution")
		}
	}

	logger.WithField("severity", report.Severity).Info("report resolved")
	return updated, reward, nil
}

func (s *Service) creditReward(ctx context.Context, report *types.Report, logger *logrus.Entry) *types.WorkerReward {
	workerID := utils.PtrString(report.AssignedWorkerID)
	points := lifecycle.Reward(report.Severity)

	reward := &types.WorkerReward{
		WorkerID:    workerID,
		ReportID:    report.ID,
		Points:      points,
		AmountCents: int64(points) * s.rewardCentsPerPoint,
		Currency:    s.rewardCurrency,
	}
	if err := s.rewards.CreateReward(ctx, reward); err != nil {
		logger.WithError(err).Error("failed to record worker reward")
		return reward
	}

	credited := actorEvent(report.ID, types.EventRewardCredited, workerIdentity(workerID))
	credited.Message = utils.StringPtr(fmt.Sprintf("%d points", points))
	s.recordEvent(ctx, credited)

	if s.payouter == nil || reward.AmountCents <= 0 {
		return reward
	}

	worker, err := s.workers.Worker(ctx, workerID)
	if err != nil {
		logger.WithError(err).Warn("failed to load worker for payout")
		return reward
	}
	if worker.StripeAccountID == nil {
		return reward
	}

	transferID, err := s.payouter.Transfer(ctx, reward, *worker.StripeAccountID)
	if err != nil {
		logger.WithError(err).Error("reward payout failed")
		return reward
	}

	paidAt := s.now()
	if err := s.rewards.MarkRewardPaid(ctx, reward.ID, transferID, paidAt); err != nil {
		logger.WithError(err).WithField("transfer_id", transferID).Error("failed to mark reward paid")
		return reward
	}
	reward.PayoutTransferID = &transferID
	reward.PaidAt = &paidAt

	return reward
}
