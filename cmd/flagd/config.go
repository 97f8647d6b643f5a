package main

import (
	"time"

	"github.com/dmitrymomot/rollout/pkg/config"
	"github.com/dmitrymomot/rollout/pkg/httpserver"
	"github.com/dmitrymomot/rollout/pkg/mongo"
	"github.com/dmitrymomot/rollout/pkg/opensearch"
	"github.com/dmitrymomot/rollout/pkg/pg"
	"github.com/dmitrymomot/rollout/pkg/redis"
	"github.com/dmitrymomot/rollout/pkg/source"
)

// Store backends.
const (
	storeMemory   = "memory"
	storeFile     = "file"
	storeRedis    = "redis"
	storePostgres = "postgres"
	storeMongo    = "mongo"
)

// Remote backends.
const (
	remoteNone = "none"
	remoteHTTP = "http"
	remoteS3   = "s3"
)

// Metrics sinks.
const (
	sinkLog        = "log"
	sinkPrometheus = "prometheus"
	sinkOpenSearch = "opensearch"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`

	Store    string `env:"FLAGD_STORE" envDefault:"file"`
	FileDir  string `env:"FLAGD_FILE_DIR" envDefault:".flagd"`
	LocalKey string `env:"FLAGD_LOCAL_KEY" envDefault:"feature_flags"`

	EnvPrefix string   `env:"FLAGD_ENV_PREFIX" envDefault:"APP_FEATURE_"`
	EnvFiles  []string `env:"FLAGD_ENV_FILES" envSeparator:","`

	Remote          string        `env:"FLAGD_REMOTE" envDefault:"none"`
	RemoteURL       string        `env:"FLAGD_REMOTE_URL"`
	RemoteTimeout   time.Duration `env:"FLAGD_REMOTE_TIMEOUT" envDefault:"3s"`
	RefreshInterval time.Duration `env:"FLAGD_REFRESH_INTERVAL" envDefault:"0s"`

	PoliciesFile string   `env:"FLAGD_POLICIES_FILE"`
	MaxSessions  int      `env:"FLAGD_MAX_SESSIONS" envDefault:"10000"`
	Sinks        []string `env:"FLAGD_SINKS" envSeparator:"," envDefault:"log,prometheus"`

	HTTP       httpserver.Config
	Redis      redis.Config
	Postgres   pg.Config
	Mongo      mongo.Config
	OpenSearch opensearch.Config
	S3         source.S3Config
}

func loadConfig(flags *rootFlags) (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return cfg, err
	}
	if flags != nil && flags.policies != "" {
		cfg.PoliciesFile = flags.policies
	}
	return cfg, nil
}
