package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"wastewatch/internal/lifecycle"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"
)

const seedPrefix = "[seed] "

var fakeReportDescriptions = []string{
	"Plastic bags piling up along the canal bank.",
	"Overflowing community bin, not collected for days.",
	"Construction rubble dumped on the footpath.",
	"Broken electronics left next to the bus stop.",
	"Strong smell from an open sewage outlet.",
	"Glass bottles scattered near the playground.",
	"Garden waste blocking the storm drain.",
	"Mixed household waste burning in an empty lot.",
}

type weightedSeverity struct {
	Severity types.Severity
	Weight   int
}

var weightedSeverities = []weightedSeverity{
	{Severity: types.SeverityLow, Weight: 30},
	{Severity: types.SeverityMedium, Weight: 35},
	{Severity: types.SeverityHigh, Weight: 25},
	{Severity: types.SeverityCritical, Weight: 10},
}

type ReportStore interface {
	CreateReport(ctx context.Context, report *types.Report) error
	Reports(ctx context.Context, filter types.ReportFilter) ([]*types.Report, error)
	DeleteReport(ctx context.Context, reportID string) error
	CreateImage(ctx context.Context, image *types.ReportImage) error
	DeleteImagesByReport(ctx context.Context, reportID string) error
}

// Center is the point seed reports are scattered around.
type Center struct {
	Latitude  float64
	Longitude float64
	City      string
}

// SeedFakeReports creates count submitted reports from the fake citizens,
// created up to three days ago so that some are already past due.
func SeedFakeReports(ctx context.Context, reports ReportStore, policy lifecycle.Policy, center Center, count int, reset bool) error {
	if count <= 0 {
		fmt.Println("Skipping fake reports seed because count <= 0")
		return nil
	}

	if reset {
		deleted, err := resetFakeReports(ctx, reports)
		if err != nil {
			return err
		}
		fmt.Printf("Reset seeded fake reports: %d deleted\n", deleted)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	created := 0
	for i := 0; i < count; i++ {
		severity := pickWeightedSeverity(rng)
		category := types.AllWasteCategories[rng.Intn(len(types.AllWasteCategories))]
		citizen := fakeCitizens[rng.Intn(len(fakeCitizens))]
		createdAt := now.Add(-time.Duration(rng.Intn(72*60)) * time.Minute)
		hours := policy.Hours(category, severity)

		report := &types.Report{
			ReportLocation: types.ReportLocation{
				Latitude:  center.Latitude + (rng.Float64()-0.5)*0.05,
				Longitude: center.Longitude + (rng.Float64()-0.5)*0.05,
				Address:   fmt.Sprintf("%d Seed Street", rng.Intn(400)+1),
				Locality:  fakeZones[rng.Intn(len(fakeZones))],
				City:      center.City,
			},
			Category:    category,
			Severity:    severity,
			Description: utils.StringPtr(seedPrefix + fakeReportDescriptions[rng.Intn(len(fakeReportDescriptions))]),
			Status:      types.ReportStatusSubmitted,
			SLAHours:    hours,
			DueAt:       lifecycle.DueAt(createdAt, hours),
			ReporterID:  utils.StringPtr(citizen.ID),
			IsAnonymous: rng.Intn(100) < 20,
			CreatedAt:   createdAt,
		}
		if err := reports.CreateReport(ctx, report); err != nil {
			return fmt.Errorf("failed to create fake report %d: %w", i+1, err)
		}

		image := &types.ReportImage{
			ReportID:    report.ID,
			Kind:        types.ImageKindOriginal,
			StorageKey:  fmt.Sprintf("seed/%s.jpg", report.ID),
			PublicURL:   fmt.Sprintf("https://placehold.co/640x480/jpg?text=%s", report.Code),
			ContentType: "image/jpeg",
			UploadedAt:  createdAt,
		}
		if err := reports.CreateImage(ctx, image); err != nil {
			return fmt.Errorf("failed to create image for fake report %s: %w", report.ID, err)
		}

		created++
	}

	fmt.Printf("Fake reports seeded: %d created\n", created)
	return nil
}

func resetFakeReports(ctx context.Context, reports ReportStore) (int, error) {
	existing, err := reports.Reports(ctx, types.ReportFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list reports for reset: %w", err)
	}

	deleted := 0
	for _, r := range existing {
		if !strings.HasPrefix(utils.PtrString(r.Description), seedPrefix) {
			continue
		}
		if err := reports.DeleteImagesByReport(ctx, r.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete images of fake report %s: %w", r.ID, err)
		}
		if err := reports.DeleteReport(ctx, r.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete fake report %s: %w", r.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

func pickWeightedSeverity(rng *rand.Rand) types.Severity {
	total := 0
	for _, item := range weightedSeverities {
		total += item.Weight
	}

	roll := rng.Intn(total)
	running := 0
	for _, item := range weightedSeverities {
		running += item.Weight
		if roll < running {
			return item.Severity
		}
	}

	return types.SeverityMedium
}
