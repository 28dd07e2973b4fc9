package main

import (
	"context"
	"fmt"
	"time"

	"wastewatch/internal/ai"
	"wastewatch/internal/cache"
	"wastewatch/internal/db"
	"wastewatch/internal/geocode"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/payout"
	"wastewatch/internal/seed"
	"wastewatch/internal/service"
	"wastewatch/internal/storage"
	"wastewatch/internal/store"
	"wastewatch/internal/store/memstore"
	"wastewatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// backend holds everything a command needs to run the service.
type backend struct {
	app     *service.Service
	pool    *pgxpool.Pool
	memory  *memstore.Store
	policy  lifecycle.Policy
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// health pings the database; in-memory runs are always healthy.
func (b *backend) health(ctx context.Context) error {
	if b.pool == nil {
		return nil
	}
	return b.pool.Ping(ctx)
}

// buildBackend wires stores, object storage, cache, AI clients, geocoding and
// payouts from cfg. With memory set, nothing outside the process is touched
// except the AI and geocoding endpoints.
func buildBackend(ctx context.Context, cfg *types.Config, logger *logrus.Logger, memory bool, awsConfig func() (aws.Config, error)) (*backend, error) {
	b := &backend{policy: lifecycle.NewPolicy(cfg.SLADefaultHours, cfg.SLASeverityHours)}

	opts := service.Options{
		Policy:              b.policy,
		ReportPoints:        cfg.ReportPoints,
		AutoAssignDelay:     time.Duration(cfg.AutoAssignDelayMS) * time.Millisecond,
		RequireConfirmation: cfg.RequireAuthorityConfirmation,
		MaxImageBytes:       cfg.MaxImageBytes,
		MaxImages:           cfg.MaxImagesPerReport,
		RewardCentsPerPoint: cfg.RewardCentsPerPoint,
		RewardCurrency:      cfg.RewardCurrency,
		Logger:              logger,
	}

	if memory {
		b.memory = memstore.New()
		opts.Reports = b.memory
		opts.Images = b.memory
		opts.Events = b.memory
		opts.Workers = b.memory
		opts.Profiles = b.memory
		opts.Rewards = b.memory
		opts.Bucket = storage.NewMemoryBucket(cfg.StorageBucket)
		opts.Cache = cache.NewMemory(time.Duration(cfg.CacheTTLSec) * time.Second)
	} else {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		b.pool = pool
		b.closers = append(b.closers, pool.Close)

		opts.Reports = store.NewReportRepository(pool)
		opts.Images = store.NewReportImageRepository(pool)
		opts.Events = store.NewReportEventRepository(pool)
		opts.Workers = store.NewWorkerRepository(pool)
		opts.Profiles = store.NewProfileRepository(pool)
		opts.Rewards = store.NewRewardRepository(pool)

		bucket, err := buildBucket(cfg, awsConfig)
		if err != nil {
			b.Close()
			return nil, err
		}
		opts.Bucket = bucket

		c, err := buildCache(ctx, cfg, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		opts.Cache = c
		if r, ok := c.(*cache.Redis); ok {
			b.closers = append(b.closers, func() {
				if err := r.Close(); err != nil {
					logger.WithError(err).Warn("failed to close redis client")
				}
			})
		}
	}

	aiClient := ai.NewClient(ai.ClientConfig{
		ClassifyURL:   cfg.ClassifyURL,
		VerifyURL:     cfg.VerifyURL,
		TranscribeURL: cfg.TranscribeURL,
		APIKey:        cfg.AIAPIKey,
		Timeout:       time.Duration(cfg.AITimeoutSec) * time.Second,
		MaxRetries:    cfg.AIMaxRetries,
	})
	opts.Classifier = aiClient
	opts.Verifier = aiClient
	opts.Transcriber = aiClient

	opts.Geocoder = geocode.New(geocode.Config{
		BaseURL:         cfg.GeocodeURL,
		UserAgent:       cfg.GeocodeUserAgent,
		Timeout:         time.Duration(cfg.GeocodeTimeoutMS) * time.Millisecond,
		DefaultLocality: cfg.DefaultLocality,
		DefaultCity:     cfg.DefaultCity,
	}, logger)

	if cfg.StripeSecretKey != "" && !memory {
		opts.Payouter = payout.NewStripe(cfg.StripeSecretKey)
	}

	b.app = service.New(opts)
	return b, nil
}

func buildBucket(cfg *types.Config, awsConfig func() (aws.Config, error)) (service.Bucket, error) {
	switch cfg.StorageBackend {
	case "s3":
		awsCfg, err := awsConfig()
		if err != nil {
			return nil, err
		}
		return storage.NewS3Storage(s3.NewFromConfig(awsCfg), cfg.StorageBucket, cfg.S3PublicBaseURL), nil
	case "memory":
		return storage.NewMemoryBucket(cfg.StorageBucket), nil
	default:
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket), nil
	}
}

func buildCache(ctx context.Context, cfg *types.Config, logger *logrus.Logger) (cache.Cache, error) {
	ttl := time.Duration(cfg.CacheTTLSec) * time.Second
	if cfg.RedisAddr == "" {
		return cache.NewMemory(ttl), nil
	}

	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("addr", cfg.RedisAddr).Info("using redis cache")
	return r, nil
}

// seedMemory fills an in-memory backend with the fake workers and citizens
// so a local server is usable straight away.
func (b *backend) seedMemory(ctx context.Context, reports int) error {
	if b.memory == nil {
		return nil
	}
	if err := seed.SeedFakeCitizens(ctx, b.memory); err != nil {
		return err
	}
	if err := seed.SeedFakeWorkers(ctx, b.memory); err != nil {
		return err
	}
	return seed.SeedFakeReports(ctx, b.memory, b.policy, defaultSeedCenter, reports, false)
}

var defaultSeedCenter = seed.Center{Latitude: 12.9716, Longitude: 77.5946, City: "Bengaluru"}
