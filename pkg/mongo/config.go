package mongo

import "time"

// Config represents the connection settings.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL"`
	Database        string        `env:"MONGODB_DATABASE" envDefault:"flagd"`
	Collection      string        `env:"MONGODB_COLLECTION" envDefault:"flag_store"`
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"20"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"2s"`
}
