package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wastewatch/internal/store/memstore"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"
)

// started returns a report assigned to w1 and accepted.
func (h *harness) started(t *testing.T, severity types.Severity) *types.ReportView {
	t.Helper()
	if _, err := h.store.Worker(context.Background(), "w1"); err != nil {
		h.addWorker(t, "w1", "Asha", types.WorkerStatusActive)
	}
	report := h.submit(t, func(in *SubmitReportInput) { in.Severity = severity })
	h.assign(t, report.ID, "w1")

	view, err := h.svc.AcceptAssignment(context.Background(), "w1", report.ID)
	if err != nil {
		t.Fatalf("AcceptAssignment: %v", err)
	}
	return view
}

var proof = ImageUpload{Data: []byte("proof-jpeg"), ContentType: "image/jpeg"}

func TestAcceptAssignment(t *testing.T) {
	h := newHarness(t, nil)
	h.addWorker(t, "w1", "Asha", types.WorkerStatusActive)
	h.addWorker(t, "w2", "Bilal", types.WorkerStatusActive)
	report := h.submit(t, nil)
	h.assign(t, report.ID, "w1")

	if _, err := h.svc.AcceptAssignment(context.Background(), "w2", report.ID); !errors.Is(err, types.ErrNotAssignedWorker) {
		t.Fatalf("expected not assigned worker, got %v", err)
	}

	view, err := h.svc.AcceptAssignment(context.Background(), "w1", report.ID)
	if err != nil {
		t.Fatalf("AcceptAssignment: %v", err)
	}
	if view.Status != types.ReportStatusInProgress {
		t.Fatalf("expected in_progress, got %s", view.Status)
	}

	before := len(eventKinds(t, h, report.ID))
	again, err := h.svc.AcceptAssignment(context.Background(), "w1", report.ID)
	if err != nil {
		t.Fatalf("expected second accept to succeed, got %v", err)
	}
	if again.Status != types.ReportStatusInProgress {
		t.Fatalf("expected in_progress, got %s", again.Status)
	}
	if after := len(eventKinds(t, h, report.ID)); after != before {
		t.Fatalf("expected no new events, got %d more", after-before)
	}
}

func TestRejectAssignment(t *testing.T) {
	h := newHarness(t, nil)
	h.addWorker(t, "w1", "Asha", types.WorkerStatusActive)
	report := h.submit(t, nil)
	assigned, err := h.svc.AssignReport(context.Background(), authority, AssignInput{
		ReportID:       report.ID,
		WorkerID:       "w1",
		DepartmentID:   "d1",
		DepartmentName: "Sanitation",
	})
	if err != nil {
		t.Fatalf("AssignReport: %v", err)
	}
	if utils.PtrString(assigned.DepartmentID) != "d1" || utils.PtrString(assigned.DepartmentName) != "Sanitation" {
		t.Fatalf("expected department d1/Sanitation, got %+v", assigned.Report)
	}

	view, err := h.svc.RejectAssignment(context.Background(), "w1", report.ID)
	if err != nil {
		t.Fatalf("RejectAssignment: %v", err)
	}
	if view.Status != types.ReportStatusSubmitted {
		t.Fatalf("expected submitted, got %s", view.Status)
	}
	if view.AssignedWorkerID != nil || view.AssignedWorkerName != nil || view.AssignedAt != nil {
		t.Fatal("expected assignment fields cleared together")
	}
	if view.DepartmentID != nil || view.DepartmentName != nil {
		t.Fatalf("expected department cleared, got id=%q name=%q", utils.PtrString(view.DepartmentID), utils.PtrString(view.DepartmentName))
	}

	again, err := h.svc.RejectAssignment(context.Background(), "w1", report.ID)
	if err != nil {
		t.Fatalf("expected second reject to be a no-op, got %v", err)
	}
	if again.Status != types.ReportStatusSubmitted {
		t.Fatalf("expected submitted, got %s", again.Status)
	}

	pending, _ := h.svc.PendingReports(context.Background())
	if len(pending) != 1 || pending[0].ID != report.ID {
		t.Fatal("expected rejected report back in the pending list")
	}
}

// reassigningReports hands the report to another worker just before the
// next transition lands, as a second process would between read and write.
type reassigningReports struct {
	*memstore.Store
	reassign func(ctx context.Context, reportID string)
}

func (r *reassigningReports) TransitionReport(ctx context.Context, reportID string, tr types.ReportTransition) (*types.Report, error) {
	if hook := r.reassign; hook != nil {
		r.reassign = nil
		hook(ctx, reportID)
	}
	return r.Store.TransitionReport(ctx, reportID, tr)
}

func TestStaleRejectKeepsNewerAssignment(t *testing.T) {
	reports := &reassigningReports{}
	h := newHarness(t, func(o *Options) {
		reports.Store = o.Reports.(*memstore.Store)
		o.Reports = reports
	})
	report := h.started(t, types.SeverityLow)
	h.addWorker(t, "w2", "Bilal", types.WorkerStatusActive)

	reports.reassign = func(ctx context.Context, reportID string) {
		if _, err := reports.Store.TransitionReport(ctx, reportID, types.ReportTransition{
			From:            []types.ReportStatus{types.ReportStatusInProgress},
			To:              types.ReportStatusSubmitted,
			ClearAssignment: true,
		}); err != nil {
			t.Fatalf("concurrent reject: %v", err)
		}
		if _, err := reports.Store.TransitionReport(ctx, reportID, types.ReportTransition{
			From:   []types.ReportStatus{types.ReportStatusSubmitted},
			To:     types.ReportStatusAssigned,
			Assign: &types.Assignment{WorkerID: "w2", WorkerName: "Bilal", AssignedAt: h.clock.now()},
		}); err != nil {
			t.Fatalf("concurrent reassign: %v", err)
		}
	}

	if _, err := h.svc.RejectAssignment(context.Background(), "w1", report.ID); !errors.Is(err, types.ErrReportConflict) {
		t.Fatalf("expected ErrReportConflict, got %v", err)
	}

	current, err := h.store.Report(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if current.Status != types.ReportStatusAssigned || utils.PtrString(current.AssignedWorkerID) != "w2" {
		t.Fatalf("expected report still assigned to w2, got status=%s worker=%q", current.Status, utils.PtrString(current.AssignedWorkerID))
	}
}

func TestRejectAssignmentFromInProgress(t *testing.T) {
	h := newHarness(t, nil)
	report := h.started(t, types.SeverityLow)

	view, err := h.svc.RejectAssignment(context.Background(), "w1", report.ID)
	if err != nil {
		t.Fatalf("RejectAssignment: %v", err)
	}
	if view.Status != types.ReportStatusSubmitted || view.AssignedWorkerID != nil {
		t.Fatalf("expected unassigned submitted report, got %s", view.Status)
	}
}

func TestSubmitCompletionProofRejectedThenRetried(t *testing.T) {
	h := newHarness(t, nil)
	report := h.started(t, types.SeverityMedium)
	h.verifier.verdicts = []bool{false, true}
	h.verifier.message = "bags still visible"

	first, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof)
	if err != nil {
		t.Fatalf("SubmitCompletionProof: %v", err)
	}
	if first.Verified || first.Resolved {
		t.Fatal("expected negative verdict")
	}
	if first.Message != "bags still visible" {
		t.Fatalf("expected verifier message, got %q", first.Message)
	}
	if first.Report.Status != types.ReportStatusInProgress {
		t.Fatalf("expected in_progress, got %s", first.Report.Status)
	}

	h.clock.advance(time.Minute)
	second, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof)
	if err != nil {
		t.Fatalf("SubmitCompletionProof retry: %v", err)
	}
	if !second.Resolved || second.Report.Status != types.ReportStatusResolved {
		t.Fatalf("expected resolved, got %s", second.Report.Status)
	}

	proofs := 0
	for _, img := range second.Report.Images {
		if img.Kind == types.ImageKindProof {
			proofs++
		}
	}
	if proofs != 2 {
		t.Fatalf("expected two proof images, got %d", proofs)
	}

	req := h.verifier.requests[0]
	if req.OriginalImage != report.Images[0].PublicURL {
		t.Fatalf("expected original image url %s, got %s", report.Images[0].PublicURL, req.OriginalImage)
	}
	if req.Category != string(types.WasteCategoryPlastic) {
		t.Fatalf("expected category plastic, got %s", req.Category)
	}
}

func TestSubmitCompletionProofRewards(t *testing.T) {
	tests := []struct {
		severity types.Severity
		points   int
	}{
		{types.SeverityCritical, 200},
		{types.SeverityHigh, 150},
		{types.SeverityMedium, 100},
		{types.SeverityLow, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			h := newHarness(t, nil)
			report := h.started(t, tt.severity)
			h.verifier.verdicts = []bool{true}

			result, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof)
			if err != nil {
				t.Fatalf("SubmitCompletionProof: %v", err)
			}
			if !result.Resolved || result.Reward == nil {
				t.Fatal("expected resolved report with reward")
			}
			if result.Reward.Points != tt.points {
				t.Fatalf("expected %d points, got %d", tt.points, result.Reward.Points)
			}
			if result.Report.ResolvedAt == nil || result.Report.VerifiedAt == nil {
				t.Fatal("expected resolved and verified timestamps")
			}
			if result.Report.IsSLABreach {
				t.Fatal("expected no breach on resolved report")
			}

			rewards, _ := h.svc.WorkerRewards(context.Background(), "w1")
			if len(rewards) != 1 || rewards[0].Points != tt.points {
				t.Fatalf("expected one reward of %d, got %+v", tt.points, rewards)
			}

			profile, _ := h.svc.Profile(context.Background(), citizen.UserID)
			if profile.ReportsResolved != 1 {
				t.Fatalf("expected reporter resolution credited, got %d", profile.ReportsResolved)
			}
		})
	}
}

func TestSubmitCompletionProofPaysOut(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.payouter = h.payouter

	w := &types.Worker{ID: "w1", Name: "Asha", Status: types.WorkerStatusActive, StripeAccountID: utils.StringPtr("acct_123")}
	if err := h.store.CreateWorker(context.Background(), w); err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	report := h.started(t, types.SeverityHigh)
	h.verifier.verdicts = []bool{true}

	result, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof)
	if err != nil {
		t.Fatalf("SubmitCompletionProof: %v", err)
	}
	if len(h.payouter.calls) != 1 || h.payouter.calls[0] != "acct_123" {
		t.Fatalf("expected one payout to acct_123, got %v", h.payouter.calls)
	}
	if result.Reward.AmountCents != 150 || result.Reward.PayoutTransferID == nil {
		t.Fatalf("expected paid reward of 150 cents, got %+v", result.Reward)
	}
}

func TestSubmitCompletionProofGuards(t *testing.T) {
	h := newHarness(t, nil)
	h.addWorker(t, "w1", "Asha", types.WorkerStatusActive)
	h.addWorker(t, "w2", "Bilal", types.WorkerStatusActive)
	report := h.submit(t, nil)
	h.assign(t, report.ID, "w1")

	tests := []struct {
		name     string
		workerID string
		proof    ImageUpload
		want     error
	}{
		{"other worker", "w2", proof, types.ErrNotAssignedWorker},
		{"not started", "w1", proof, types.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.SubmitCompletionProof(context.Background(), tt.workerID, report.ID, tt.proof)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	_, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, ImageUpload{})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty proof, got %v", err)
	}
	if len(h.verifier.requests) != 0 {
		t.Fatalf("expected no verifier calls, got %d", len(h.verifier.requests))
	}
}

func TestSubmitCompletionProofVerifierDown(t *testing.T) {
	h := newHarness(t, nil)
	report := h.started(t, types.SeverityLow)
	h.verifier.err = types.ErrUpstream

	_, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof)
	if !errors.Is(err, types.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	stored, _ := h.store.Report(context.Background(), report.ID)
	if stored.Status != types.ReportStatusInProgress {
		t.Fatalf("expected in_progress, got %s", stored.Status)
	}
}

func TestConfirmResolution(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.RequireConfirmation = true })
	report := h.started(t, types.SeverityCritical)

	if _, err := h.svc.ConfirmResolution(context.Background(), authority, report.ID); !errors.Is(err, types.ErrNotVerified) {
		t.Fatalf("expected not verified, got %v", err)
	}

	h.verifier.verdicts = []bool{true}
	result, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof)
	if err != nil {
		t.Fatalf("SubmitCompletionProof: %v", err)
	}
	if !result.Verified || result.Resolved {
		t.Fatalf("expected verified but unresolved, got verified=%v resolved=%v", result.Verified, result.Resolved)
	}
	if result.Report.Status != types.ReportStatusInProgress || result.Report.VerifiedAt == nil {
		t.Fatalf("expected in_progress with verified at, got %s", result.Report.Status)
	}
	if result.Message != awaitingConfirmationMessage {
		t.Fatalf("expected %q, got %q", awaitingConfirmationMessage, result.Message)
	}

	if _, err := h.svc.SubmitCompletionProof(context.Background(), "w1", report.ID, proof); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on a second proof, got %v", err)
	}

	confirmed, err := h.svc.ConfirmResolution(context.Background(), authority, report.ID)
	if err != nil {
		t.Fatalf("ConfirmResolution: %v", err)
	}
	if confirmed.Report.Status != types.ReportStatusResolved || confirmed.Reward.Points != 200 {
		t.Fatalf("expected resolved with 200 points, got %s", confirmed.Report.Status)
	}

	if _, err := h.svc.ConfirmResolution(context.Background(), authority, report.ID); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after resolve, got %v", err)
	}
}

func TestWorkerTasks(t *testing.T) {
	h := newHarness(t, nil)
	started := h.started(t, types.SeverityLow)
	other := h.submit(t, nil)
	h.assign(t, other.ID, "w1")
	h.submit(t, nil)

	tasks, err := h.svc.WorkerTasks(context.Background(), "w1")
	if err != nil {
		t.Fatalf("WorkerTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	seen := map[string]bool{}
	for _, task := range tasks {
		seen[task.ID] = true
	}
	if !seen[started.ID] || !seen[other.ID] {
		t.Fatalf("expected tasks %s and %s", started.ID, other.ID)
	}
}
