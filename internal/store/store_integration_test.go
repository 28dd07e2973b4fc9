package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"wastewatch/internal/db"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testPool connects to WASTEWATCH_TEST_DATABASE_URL and migrates a throwaway
// schema. Tests skip when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("WASTEWATCH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WASTEWATCH_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	schema := "wastewatch_test_" + utils.NanoIDSize(8)
	pool, err := db.Connect(ctx, &types.Config{DatabaseURL: dsn, DatabaseSchema: schema})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := db.Migrate(ctx, pool, schema, nil); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA "`+schema+`" CASCADE`)
		pool.Close()
	})
	return pool
}

func newTestReport() *types.Report {
	created := time.Now().UTC().Truncate(time.Microsecond)
	return &types.Report{
		ReportLocation: types.ReportLocation{Latitude: 12.97, Longitude: 77.59, Address: "MG Road", Locality: "Shivajinagar", City: "Bengaluru"},
		Category:       types.WasteCategoryEWaste,
		Severity:       types.SeverityHigh,
		Status:         types.ReportStatusSubmitted,
		SLAHours:       24,
		DueAt:          created.Add(24 * time.Hour),
		CreatedAt:      created,
	}
}

func TestReportRepositoryLifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	reports := NewReportRepository(pool)

	report := newTestReport()
	if err := reports.CreateReport(ctx, report); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if report.ID == "" || report.Code != "WR-000001" {
		t.Fatalf("expected id and first code, got id=%q code=%q", report.ID, report.Code)
	}

	got, err := reports.Report(ctx, report.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if got.Category != types.WasteCategoryEWaste || got.City != "Bengaluru" {
		t.Fatalf("unexpected round trip: %+v", got)
	}

	assigned, err := reports.TransitionReport(ctx, report.ID, types.ReportTransition{
		From:   []types.ReportStatus{types.ReportStatusSubmitted},
		To:     types.ReportStatusAssigned,
		Assign: &types.Assignment{
			WorkerID:       "w1",
			WorkerName:     "Asha",
			DepartmentID:   utils.StringPtr("d1"),
			DepartmentName: utils.StringPtr("Sanitation"),
			AssignedAt:     time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("TransitionReport assign: %v", err)
	}
	if assigned.Status != types.ReportStatusAssigned || utils.PtrString(assigned.AssignedWorkerID) != "w1" {
		t.Fatalf("expected assigned to w1, got %+v", assigned)
	}

	_, err = reports.TransitionReport(ctx, report.ID, types.ReportTransition{
		From: []types.ReportStatus{types.ReportStatusSubmitted},
		To:   types.ReportStatusAssigned,
	})
	if !errors.Is(err, types.ErrReportConflict) {
		t.Fatalf("expected ErrReportConflict, got %v", err)
	}

	_, err = reports.TransitionReport(ctx, "missing", types.ReportTransition{
		From: []types.ReportStatus{types.ReportStatusSubmitted},
		To:   types.ReportStatusAssigned,
	})
	if !errors.Is(err, types.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}

	reject := types.ReportTransition{
		From:            []types.ReportStatus{types.ReportStatusAssigned},
		To:              types.ReportStatusSubmitted,
		ClearAssignment: true,
		ExpectWorkerID:  "w2",
	}
	if _, err := reports.TransitionReport(ctx, report.ID, reject); !errors.Is(err, types.ErrReportConflict) {
		t.Fatalf("expected ErrReportConflict for another worker, got %v", err)
	}

	reject.ExpectWorkerID = "w1"
	cleared, err := reports.TransitionReport(ctx, report.ID, reject)
	if err != nil {
		t.Fatalf("TransitionReport reject: %v", err)
	}
	if cleared.AssignedWorkerID != nil || cleared.AssignedWorkerName != nil {
		t.Fatalf("expected assignment cleared, got %+v", cleared)
	}
	if cleared.DepartmentID != nil || cleared.DepartmentName != nil {
		t.Fatalf("expected department cleared, got %+v", cleared)
	}

	list, err := reports.Reports(ctx, types.ReportFilter{Statuses: []types.ReportStatus{types.ReportStatusSubmitted}})
	if err != nil {
		t.Fatalf("Reports: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 submitted report, got %d", len(list))
	}
}

func TestProfileRepositoryCredits(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	profiles := NewProfileRepository(pool)

	if err := profiles.CreditSubmission(ctx, "u1", 10); err != nil {
		t.Fatalf("CreditSubmission: %v", err)
	}
	if err := profiles.CreditSubmission(ctx, "u1", 10); err != nil {
		t.Fatalf("CreditSubmission: %v", err)
	}
	if err := profiles.CreditResolution(ctx, "u1"); err != nil {
		t.Fatalf("CreditResolution: %v", err)
	}

	profile, err := profiles.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.Points != 20 || profile.ReportsSubmitted != 2 || profile.ReportsResolved != 1 {
		t.Fatalf("unexpected counters: %+v", profile)
	}

	if err := profiles.CreditResolution(ctx, "nobody"); !errors.Is(err, types.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestWorkerRepositoryStatus(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	workers := NewWorkerRepository(pool)

	worker := &types.Worker{ID: "w1", Name: "Asha", Status: types.WorkerStatusPendingApproval}
	if err := workers.CreateWorker(ctx, worker); err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	if err := workers.CreateWorker(ctx, worker); !errors.Is(err, types.ErrWorkerExists) {
		t.Fatalf("expected ErrWorkerExists, got %v", err)
	}

	updated, err := workers.UpdateWorkerStatus(ctx, "w1", []types.WorkerStatus{types.WorkerStatusPendingApproval}, types.WorkerStatusActive)
	if err != nil {
		t.Fatalf("UpdateWorkerStatus: %v", err)
	}
	if updated.Status != types.WorkerStatusActive {
		t.Fatalf("expected active, got %s", updated.Status)
	}

	_, err = workers.UpdateWorkerStatus(ctx, "w1", []types.WorkerStatus{types.WorkerStatusPendingApproval}, types.WorkerStatusRejected)
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
