package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	AWS      AWSConfig      `yaml:"aws"`
	Auth     AuthConfig     `yaml:"auth"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Redis    RedisConfig    `yaml:"redis"`
	Payments PaymentsConfig `yaml:"payments"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	GinMode         string        `yaml:"gin_mode"         env:"GIN_MODE"                env-default:"release"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `yaml:"level"       env:"LOG_LEVEL"       env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// StoreConfig selects the persistence backend and its table names.
type StoreConfig struct {
	Driver          string `yaml:"driver"           env:"STORE_DRIVER"                env-default:"dynamodb"`
	JobsTable       string `yaml:"jobs_table"       env:"DYNAMODB_JOBS_TABLE"         env-default:"jobs"`
	ActivitiesTable string `yaml:"activities_table" env:"DYNAMODB_ACTIVITIES_TABLE"   env-default:"activities"`
	CustomersTable  string `yaml:"customers_table"  env:"DYNAMODB_CUSTOMERS_TABLE"    env-default:"customers"`
	UsersTable      string `yaml:"users_table"      env:"DYNAMODB_USERS_TABLE"        env-default:"users"`
	PaymentsTable   string `yaml:"payments_table"   env:"DYNAMODB_PAYMENTS_TABLE"     env-default:"payments"`
	// SeedUserID registers an active user in the memory store so anonymous
	// requests can be attributed during local development.
	SeedUserID string `yaml:"seed_user_id" env:"MEMORY_SEED_USER_ID"`
}

// AWSConfig holds the DynamoDB connection settings. Static credentials default
// to "local" because DynamoDB Local ignores them but the SDK requires some.
type AWSConfig struct {
	Region          string `yaml:"region"            env:"AWS_REGION"            env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint"          env:"DYNAMODB_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id"     env:"AWS_ACCESS_KEY_ID"     env-default:"local"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY" env-default:"local"`
}

// AuthConfig holds request authentication settings.
//
// With an empty JWTSecret the X-User-ID header names the acting user.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER"`
}

// HeaderMode reports whether the acting user is taken from X-User-ID.
func (a AuthConfig) HeaderMode() bool {
	return strings.TrimSpace(a.JWTSecret) == ""
}

// SweepConfig holds the estimate sweeper schedule.
type SweepConfig struct {
	Enabled   bool          `yaml:"enabled"   env:"SWEEP_ENABLED"   env-default:"true"`
	Spec      string        `yaml:"spec"      env:"SWEEP_SPEC"      env-default:"@every 1h"`
	Threshold time.Duration `yaml:"threshold" env:"SWEEP_THRESHOLD" env-default:"120h"`
	Timeout   time.Duration `yaml:"timeout"   env:"SWEEP_TIMEOUT"   env-default:"5m"`
	LockKey   string        `yaml:"lock_key"  env:"SWEEP_LOCK_KEY"  env-default:"crm:sweep:lock"`
	LockTTL   time.Duration `yaml:"lock_ttl"  env:"SWEEP_LOCK_TTL"  env-default:"10m"`
}

// RedisConfig configures the sweep lock. An empty address disables it.
type RedisConfig struct {
	Address  string `yaml:"address"  env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Address) != ""
}

// PaymentsConfig holds Mercado Pago settings.
type PaymentsConfig struct {
	AccessToken     string `yaml:"access_token"       env:"MERCADOPAGO_ACCESS_TOKEN"`
	Mock            bool   `yaml:"mock"               env:"PAYMENT_GATEWAY_MOCK"      env-default:"false"`
	TestPayerEmail  string `yaml:"test_payer_email"   env:"MERCADOPAGO_TEST_PAYER_EMAIL"`
	TestPayerUserID string `yaml:"test_payer_user_id" env:"MERCADOPAGO_TEST_PAYER_USER_ID"`
}
