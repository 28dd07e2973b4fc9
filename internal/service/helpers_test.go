package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/storage"
	"wastewatch/internal/store/memstore"
	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeVerifier struct {
	mu       sync.Mutex
	verdicts []bool
	message  string
	requests []types.VerificationRequest
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, req types.VerificationRequest) (*types.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	ok := false
	if len(f.verdicts) > 0 {
		ok = f.verdicts[0]
		f.verdicts = f.verdicts[1:]
	}
	var msg *string
	if f.message != "" {
		m := f.message
		msg = &m
	}
	return &types.VerificationResult{IsResolved: ok, Message: msg}, nil
}

type fakeClassifier struct {
	result *types.Classification
}

func (f *fakeClassifier) Classify(context.Context, []byte) (*types.Classification, error) {
	return f.result, nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return "overflowing bin", nil
}

type fakeGeocoder struct {
	calls int
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) types.Place {
	f.calls++
	return types.Place{Address: "12 Market St", Locality: "Old Town", City: "Springfield"}
}

type fakePayouter struct {
	calls []string
}

func (f *fakePayouter) Transfer(_ context.Context, reward *types.WorkerReward, destination string) (string, error) {
	f.calls = append(f.calls, destination)
	return "tr_" + reward.ReportID, nil
}

// flakyBucket fails every upload after the first failAfter succeed.
type flakyBucket struct {
	*storage.MemoryBucket
	failAfter int
	uploads   int
}

func (b *flakyBucket) Upload(ctx context.Context, key string, body []byte, ct string) (string, error) {
	if b.uploads >= b.failAfter {
		return "", errors.New("storage unavailable")
	}
	b.uploads++
	return b.MemoryBucket.Upload(ctx, key, body, ct)
}

type failingProfiles struct {
	*memstore.Store
}

func (failingProfiles) CreditSubmission(context.Context, string, int) error {
	return errors.New("profiles table locked")
}

type harness struct {
	svc      *Service
	store    *memstore.Store
	bucket   *storage.MemoryBucket
	clock    *clock
	verifier *fakeVerifier
	geocoder *fakeGeocoder
	payouter *fakePayouter
	cache    *cache.Memory
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		store:    memstore.New(),
		bucket:   storage.NewMemoryBucket("test"),
		clock:    &clock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		verifier: &fakeVerifier{},
		geocoder: &fakeGeocoder{},
		payouter: &fakePayouter{},
		cache:    cache.NewMemory(30 * time.Second),
	}

	opts := Options{
		Reports:  h.store,
		Images:   h.store,
		Events:   h.store,
		Workers:  h.store,
		Profiles: h.store,
		Rewards:  h.store,

		Bucket: h.bucket,
		Classifier: &fakeClassifier{result: &types.Classification{
			IsWasteRelated: true,
			TopCategories:  []string{"e_waste", "metal"},
			Confidence:     0.9,
		}},
		Verifier:    h.verifier,
		Transcriber: fakeTranscriber{},
		Geocoder:    h.geocoder,
		Cache:       h.cache,

		Policy:              lifecycle.NewPolicy(24, nil),
		ReportPoints:        10,
		RewardCentsPerPoint: 1,
		Logger:              logger,
		Now:                 h.clock.now,
	}
	if mutate != nil {
		mutate(&opts)
	}

	h.svc = New(opts)
	return h
}

var citizen = types.Identity{UserID: "citizen-1", Email: "c@example.com", Role: types.RoleCitizen}
var authority = types.Identity{UserID: "auth-1", Role: types.RoleAuthority}

func validInput() SubmitReportInput {
	return SubmitReportInput{
		ReporterID:  citizen.UserID,
		Latitude:    12.9716,
		Longitude:   77.5946,
		Category:    types.WasteCategoryPlastic,
		Severity:    types.SeverityHigh,
		Description: "bags dumped by the canal",
		Images:      []ImageUpload{{Data: []byte("jpeg-1"), ContentType: "image/jpeg"}},
	}
}

func (h *harness) submit(t *testing.T, mutate func(*SubmitReportInput)) *types.ReportView {
	t.Helper()
	in := validInput()
	if mutate != nil {
		mutate(&in)
	}
	view, err := h.svc.SubmitReport(context.Background(), in)
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	return view
}

func (h *harness) addWorker(t *testing.T, id, name string, status types.WorkerStatus) *types.Worker {
	t.Helper()
	w := &types.Worker{ID: id, Name: name, Status: status}
	if err := h.store.CreateWorker(context.Background(), w); err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	return w
}

func (h *harness) assign(t *testing.T, reportID, workerID string) *types.ReportView {
	t.Helper()
	view, err := h.svc.AssignReport(context.Background(), authority, AssignInput{ReportID: reportID, WorkerID: workerID})
	if err != nil {
		t.Fatalf("AssignReport: %v", err)
	}
	return view
}

func eventKinds(t *testing.T, h *harness, reportID string) []types.ReportEventKind {
	t.Helper()
	events, err := h.svc.ReportEvents(context.Background(), reportID)
	if err != nil {
		t.Fatalf("ReportEvents: %v", err)
	}
	out := make([]types.ReportEventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}
