package opensearch

// Config holds client settings, loaded with pkg/config.
type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES" envSeparator:","`
	Username     string   `env:"OPENSEARCH_USERNAME"`
	Password     string   `env:"OPENSEARCH_PASSWORD"`
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
	EventsIndex  string   `env:"OPENSEARCH_EVENTS_INDEX" envDefault:"flagd-events"`
}
