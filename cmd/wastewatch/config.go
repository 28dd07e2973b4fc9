package main

import (
	"context"
	"fmt"
	"strings"

	"wastewatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// loadConfig reads the environment under the --env-prefix flag. The database
// is optional only for in-memory runs.
func loadConfig(c *cli.Context, memory bool) (*types.Config, error) {
	cfg := new(types.Config)
	if err := envconfig.Process(c.String("env-prefix"), cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if !memory && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("set %s_DATABASE_URL", c.String("env-prefix"))
	}

	switch cfg.StorageBackend {
	case "supabase":
		if !memory && (cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "") {
			return nil, fmt.Errorf("supabase storage needs SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	case "s3", "memory":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.ServerPort == 0 {
		cfg.ServerPort = 8080
	}

	if cfg.ReadTimeoutSec == 0 {
		cfg.ReadTimeoutSec = 10
	}

	if cfg.WriteTimeoutSec == 0 {
		cfg.WriteTimeoutSec = 60
	}

	return cfg, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

func jwksURL(cfg *types.Config) string {
	if cfg.JWKSURL != "" {
		return cfg.JWKSURL
	}
	if cfg.CognitoIssuerURL != "" {
		return strings.TrimSuffix(cfg.CognitoIssuerURL, "/") + "/.well-known/jwks.json"
	}
	return ""
}
