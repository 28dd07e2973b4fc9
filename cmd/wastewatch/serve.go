package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wastewatch/internal/observability"
	"wastewatch/internal/server"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "Keep reports, workers and images in process memory and seed fake data",
		},
		&cli.IntFlag{
			Name:  "seed-reports",
			Usage: "Number of fake reports to create in memory mode",
			Value: 20,
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	memory := cCtx.Bool("memory")

	config, err := loadConfig(cCtx, memory)
	if err != nil {
		return err
	}

	logger := newLogger(config.LogLevel)

	url := jwksURL(config)
	if url == "" {
		return fmt.Errorf("set %s_JWKS_URL or %s_COGNITO_ISSUER_URL", cCtx.String("env-prefix"), cCtx.String("env-prefix"))
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Service:     "wastewatch",
		Environment: config.Environment,
		Exporter:    config.OTELExporter,
		Endpoint:    config.OTELEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	var awsConfig *aws.Config
	lazyAWS := func() (aws.Config, error) {
		if awsConfig != nil {
			return *awsConfig, nil
		}
		cfg, err := loadAWSConfig(ctx)
		if err != nil {
			return aws.Config{}, err
		}
		awsConfig = &cfg
		return cfg, nil
	}

	b, err := buildBackend(ctx, config, logger, memory, lazyAWS)
	if err != nil {
		return err
	}
	defer b.Close()

	if memory {
		if err := b.seedMemory(ctx, cCtx.Int("seed-reports")); err != nil {
			return fmt.Errorf("failed to seed memory backend: %w", err)
		}
		logger.Warn("running with in-memory stores, data is lost on exit")
	}

	// Password login is only offered when a Cognito app client is configured.
	var cognito server.CognitoAuth
	if config.CognitoClientID != "" {
		awsCfg, err := lazyAWS()
		if err != nil {
			return err
		}
		cognito = cognitoidentityprovider.NewFromConfig(awsCfg)
	}

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	err = jwkCache.Register(context.Background(), url)
	if err != nil {
		return fmt.Errorf("failed to register jwks url with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		b.app,
		cognito,
		server.NewJWKVerifier(jwkCache, url, config.RoleClaim),
		b.health,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
