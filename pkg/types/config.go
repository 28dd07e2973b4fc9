package types

type Config struct {
	Environment      string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort       uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseSchema   string `envconfig:"DATABASE_SCHEMA" default:"wastewatch"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	ReadTimeoutSec   uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec  uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"60"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`

	// Auth. Tokens are verified against JWKSURL; when empty it is derived
	// from CognitoIssuerURL.
	JWKSURL           string `envconfig:"JWKS_URL"`
	RoleClaim         string `envconfig:"ROLE_CLAIM" default:"app_role"`
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Object storage: "supabase" or "s3"
	StorageBackend     string `envconfig:"STORAGE_BACKEND" default:"supabase"`
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseServiceKey string `envconfig:"SUPABASE_SERVICE_KEY"`
	StorageBucket      string `envconfig:"STORAGE_BUCKET" default:"report-images"`
	S3PublicBaseURL    string `envconfig:"S3_PUBLIC_BASE_URL"`
	MaxImageBytes      int64  `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`
	MaxImagesPerReport int    `envconfig:"MAX_IMAGES_PER_REPORT" default:"5"`

	// AI endpoints
	ClassifyURL   string `envconfig:"AI_CLASSIFY_URL"`
	VerifyURL     string `envconfig:"AI_VERIFY_URL"`
	TranscribeURL string `envconfig:"AI_TRANSCRIBE_URL"`
	AIAPIKey      string `envconfig:"AI_API_KEY"`
	AITimeoutSec  uint   `envconfig:"AI_TIMEOUT_SEC" default:"30"`
	AIMaxRetries  int    `envconfig:"AI_MAX_RETRIES" default:"2"`

	// Reverse geocoding
	GeocodeURL       string `envconfig:"GEOCODE_URL" default:"https://nominatim.openstreetmap.org"`
	GeocodeUserAgent string `envconfig:"GEOCODE_USER_AGENT" default:"wastewatch/1.0"`
	GeocodeTimeoutMS uint   `envconfig:"GEOCODE_TIMEOUT_MS" default:"4000"`
	DefaultLocality  string `envconfig:"DEFAULT_LOCALITY" default:"Unknown locality"`
	DefaultCity      string `envconfig:"DEFAULT_CITY" default:"Unknown city"`

	// Lifecycle
	SLADefaultHours              int            `envconfig:"SLA_DEFAULT_HOURS" default:"24"`
	SLASeverityHours             map[string]int `envconfig:"SLA_SEVERITY_HOURS"` // e.g. critical:6,high:12
	ReportPoints                 int            `envconfig:"REPORT_POINTS" default:"10"`
	AutoAssignDelayMS            uint           `envconfig:"AUTO_ASSIGN_DELAY_MS" default:"250"`
	RequireAuthorityConfirmation bool           `envconfig:"REQUIRE_AUTHORITY_CONFIRMATION" default:"false"`

	// Cache for pending report and available worker lists
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	CacheTTLSec   uint   `envconfig:"CACHE_TTL_SEC" default:"30"`

	// Report submission rate limit per caller
	SubmitRateRPS   float64 `envconfig:"SUBMIT_RATE_RPS" default:"0.2"`
	SubmitRateBurst int     `envconfig:"SUBMIT_RATE_BURST" default:"3"`

	// Reward payouts
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	RewardCurrency      string `envconfig:"REWARD_CURRENCY" default:"usd"`
	RewardCentsPerPoint int64  `envconfig:"REWARD_CENTS_PER_POINT" default:"1"`

	// Tracing: "none", "stdout" or "otlphttp"
	OTELExporter string `envconfig:"OTEL_EXPORTER" default:"none"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT"`
}
