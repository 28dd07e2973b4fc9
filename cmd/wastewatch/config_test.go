package main

import (
	"flag"
	"strings"
	"testing"

	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func testContext(t *testing.T) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("env-prefix", "WWTEST", "")
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		memory  bool
		wantErr string
	}{
		{
			name:    "database required",
			env:     map[string]string{},
			wantErr: "WWTEST_DATABASE_URL",
		},
		{
			name:   "memory needs no database",
			env:    map[string]string{"WWTEST_STORAGE_BACKEND": "memory"},
			memory: true,
		},
		{
			name: "supabase needs credentials",
			env: map[string]string{
				"WWTEST_DATABASE_URL": "postgres://localhost/wastewatch",
			},
			wantErr: "SUPABASE_URL",
		},
		{
			name: "unknown backend",
			env: map[string]string{
				"WWTEST_DATABASE_URL":    "postgres://localhost/wastewatch",
				"WWTEST_STORAGE_BACKEND": "ftp",
			},
			wantErr: "unknown storage backend",
		},
		{
			name: "s3 backend",
			env: map[string]string{
				"WWTEST_DATABASE_URL":    "postgres://localhost/wastewatch",
				"WWTEST_STORAGE_BACKEND": "s3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(testContext(t), tt.memory)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cfg.ServerPort != 8080 {
				t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
			}
		})
	}
}

func TestLoadConfigSeverityHours(t *testing.T) {
	t.Setenv("WWTEST_STORAGE_BACKEND", "memory")
	t.Setenv("WWTEST_SLA_SEVERITY_HOURS", "critical:6,high:12")

	cfg, err := loadConfig(testContext(t), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SLASeverityHours["critical"] != 6 || cfg.SLASeverityHours["high"] != 12 {
		t.Fatalf("expected critical:6 high:12, got %v", cfg.SLASeverityHours)
	}
}

func TestJWKSURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.Config
		want string
	}{
		{name: "explicit", cfg: types.Config{JWKSURL: "https://auth.example.com/keys", CognitoIssuerURL: "https://issuer"}, want: "https://auth.example.com/keys"},
		{name: "from issuer", cfg: types.Config{CognitoIssuerURL: "https://cognito-idp.example.com/pool/"}, want: "https://cognito-idp.example.com/pool/.well-known/jwks.json"},
		{name: "unset", cfg: types.Config{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jwksURL(&tt.cfg); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	if got := newLogger("chatty").GetLevel(); got != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", got)
	}
	if got := newLogger(" debug ").GetLevel(); got != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", got)
	}
}
