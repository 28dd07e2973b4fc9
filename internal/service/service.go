// Package service runs the report lifecycle over the stores, object storage
// and the remote AI and geocoding collaborators.
package service

import (
	"context"
	"time"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
)

type ReportStore interface {
	CreateReport(ctx context.Context, report *types.Report) error
	Report(ctx context.Context, reportID string) (*types.Report, error)
	Reports(ctx context.Context, filter types.ReportFilter) ([]*types.Report, error)
	TransitionReport(ctx context.Context, reportID string, transition types.ReportTransition) (*types.Report, error)
	DeleteReport(ctx context.Context, reportID string) error
}

type ImageStore interface {
	CreateImage(ctx context.Context, image *types.ReportImage) error
	ImagesByReport(ctx context.Context, reportID string) ([]*types.ReportImage, error)
	ImagesByReports(ctx context.Context, reportIDs []string) (map[string][]*types.ReportImage, error)
	DeleteImagesByReport(ctx context.Context, reportID string) error
}

type EventStore interface {
	RecordEvent(ctx context.Context, event *types.ReportEvent) error
	EventsByReport(ctx context.Context, reportID string) ([]*types.ReportEvent, error)
}

type WorkerStore interface {
	CreateWorker(ctx context.Context, worker *types.Worker) error
	Worker(ctx context.Context, workerID string) (*types.Worker, error)
	Workers(ctx context.Context, filter types.WorkerFilter) ([]*types.Worker, error)
	UpdateWorkerStatus(ctx context.Context, workerID string, from []types.WorkerStatus, to types.WorkerStatus) (*types.Worker, error)
}

type ProfileStore interface {
	Profile(ctx context.Context, userID string) (*types.Profile, error)
	UpsertIdentity(ctx context.Context, userID, email, displayName string) error
	CreditSubmission(ctx context.Context, userID string, points int) error
	CreditResolution(ctx context.Context, userID string) error
}

type RewardStore interface {
	CreateReward(ctx context.Context, reward *types.WorkerReward) error
	RewardsByWorker(ctx context.Context, workerID string) ([]*types.WorkerReward, error)
	MarkRewardPaid(ctx context.Context, rewardID, transferID string, paidAt time.Time) error
}

type Bucket interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Classifier interface {
	Classify(ctx context.Context, image []byte) (*types.Classification, error)
}

type Verifier interface {
	Verify(ctx context.Context, request types.VerificationRequest) (*types.VerificationResult, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) types.Place
}

type Payouter interface {
	Transfer(ctx context.Context, reward *types.WorkerReward, destination string) (string, error)
}

// Options wires a Service. Payouter and Cache are optional.
type Options struct {
	Reports  ReportStore
	Images   ImageStore
	Events   EventStore
	Workers  WorkerStore
	Profiles ProfileStore
	Rewards  RewardStore

	Bucket      Bucket
	Classifier  Classifier
	Verifier    Verifier
	Transcriber Transcriber
	Geocoder    Geocoder
	Payouter    Payouter
	Cache       cache.Cache

	Policy              lifecycle.Policy
	ReportPoints        int
	AutoAssignDelay     time.Duration
	RequireConfirmation bool
	MaxImageBytes       int64
	MaxImages           int
	RewardCentsPerPoint int64
	RewardCurrency      string

	Logger *logrus.Logger
	Now    func() time.Time
}

type Service struct {
	reports  ReportStore
	images   ImageStore
	events   EventStore
	workers  WorkerStore
	profiles ProfileStore
	rewards  RewardStore

	bucket      Bucket
	classifier  Classifier
	verifier    Verifier
	transcriber Transcriber
	geocoder    Geocoder
	payouter    Payouter
	cache       cache.Cache

	policy              lifecycle.Policy
	reportPoints        int
	autoAssignDelay     time.Duration
	requireConfirmation bool
	maxImageBytes       int64
	maxImages           int
	rewardCentsPerPoint int64
	rewardCurrency      string

	logger *logrus.Logger
	now    func() time.Time
	locks  *keyedMutex
}

func New(opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 10 << 20
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = 5
	}
	if opts.RewardCurrency == "" {
		opts.RewardCurrency = "usd"
	}

	return &Service{
		reports:  opts.Reports,
		images:   opts.Images,
		events:   opts.Events,
		workers:  opts.Workers,
		profiles: opts.Profiles,
		rewards:  opts.Rewards,

		bucket:      opts.Bucket,
		classifier:  opts.Classifier,
		verifier:    opts.Verifier,
		transcriber: opts.Transcriber,
		geocoder:    opts.Geocoder,
		payouter:    opts.Payouter,
		cache:       opts.Cache,

		policy:              opts.Policy,
		reportPoints:        opts.ReportPoints,
		autoAssignDelay:     opts.AutoAssignDelay,
		requireConfirmation: opts.RequireConfirmation,
		maxImageBytes:       opts.MaxImageBytes,
		maxImages:           opts.MaxImages,
		rewardCentsPerPoint: opts.RewardCentsPerPoint,
		rewardCurrency:      opts.RewardCurrency,

		logger: opts.Logger,
		now:    opts.Now,
		locks:  newKeyedMutex(),
	}
}

// recordEvent never fails the caller; events are an audit trail.
func (s *Service) recordEvent(ctx context.Context, event *types.ReportEvent) {
	if err := s.events.RecordEvent(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"report_id": event.ReportID,
			"kind":      event.Kind,
		}).Error("failed to record report event")
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).WithField("keys", keys).Warn("failed to invalidate cache")
	}
}

func statusPtr(s types.ReportStatus) *types.ReportStatus {
	return &s
}

func actorEvent(reportID string, kind types.ReportEventKind, actor types.Identity) *types.ReportEvent {
	event := &types.ReportEvent{ReportID: reportID, Kind: kind}
	if actor.UserID != "" {
		id := actor.UserID
		event.ActorID = &id
	}
	if actor.Role != "" {
		role := string(actor.Role)
		event.ActorRole = &role
	}
	return event
}
