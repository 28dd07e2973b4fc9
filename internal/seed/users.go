package seed

import (
	"context"
	"errors"
	"fmt"

	"wastewatch/internal/utils"
	"wastewatch/pkg/types"
)

type fakeUserSeed struct {
	ID          string
	Email       string
	DisplayName string
}

var fakeCitizens = []fakeUserSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "ava.williams+seed1@example.com", DisplayName: "Ava"},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "liam.johnson+seed2@example.com", DisplayName: "Liam"},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "noah.brown+seed3@example.com", DisplayName: "Noah"},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "mia.davis+seed4@example.com", DisplayName: "Mia"},
}

var fakeWorkers = []fakeUserSeed{
	{ID: "55555555-5555-5555-5555-555555555555", Email: "elijah.garcia+seed5@example.com", DisplayName: "Elijah Garcia"},
	{ID: "66666666-6666-6666-6666-666666666666", Email: "olivia.miller+seed6@example.com", DisplayName: "Olivia Miller"},
	{ID: "77777777-7777-7777-7777-777777777777", Email: "ethan.moore+seed7@example.com", DisplayName: "Ethan Moore"},
}

var fakeZones = []string{"north", "south", "central"}

type ProfileStore interface {
	UpsertIdentity(ctx context.Context, userID, email, displayName string) error
}

type WorkerStore interface {
	Worker(ctx context.Context, workerID string) (*types.Worker, error)
	CreateWorker(ctx context.Context, worker *types.Worker) error
}

// SeedFakeCitizens creates a profile for each fake citizen. Seed reports are
// attributed to them.
func SeedFakeCitizens(ctx context.Context, profiles ProfileStore) error {
	for _, citizen := range fakeCitizens {
		if err := profiles.UpsertIdentity(ctx, citizen.ID, citizen.Email, citizen.DisplayName); err != nil {
			return fmt.Errorf("failed to upsert fake citizen %s: %w", citizen.ID, err)
		}
	}

	fmt.Printf("Fake citizens seeded: %d upserted\n", len(fakeCitizens))
	return nil
}

// SeedFakeWorkers registers the fake workers as active. Workers that already
// exist are left alone so an approval made by hand is never undone.
func SeedFakeWorkers(ctx context.Context, workers WorkerStore) error {
	created := 0
	for i, fake := range fakeWorkers {
		_, err := workers.Worker(ctx, fake.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrWorkerNotFound) {
			return fmt.Errorf("failed to fetch fake worker %s: %w", fake.ID, err)
		}

		worker := &types.Worker{
			ID:     fake.ID,
			Name:   fake.DisplayName,
			Email:  utils.StringPtr(fake.Email),
			Zone:   utils.StringPtr(fakeZones[i%len(fakeZones)]),
			Status: types.WorkerStatusActive,
		}
		if err := workers.CreateWorker(ctx, worker); err != nil {
			return fmt.Errorf("failed to create fake worker %s: %w", fake.ID, err)
		}
		created++
	}

	fmt.Printf("Fake workers seeded: %d created, %d already present\n", created, len(fakeWorkers)-created)
	return nil
}
