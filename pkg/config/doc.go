// Package config loads env-tagged structs with github.com/caarlos0/env/v11,
// after reading optional .env files with github.com/joho/godotenv.
//
// Each struct type is parsed once and cached; call ResetCache in tests that
// change the environment between loads.
//
//	type Config struct {
//	    Addr            string        `env:"FLAGD_ADDR" envDefault:":8080"`
//	    RefreshInterval time.Duration `env:"FLAGD_REFRESH_INTERVAL" envDefault:"30s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
package config
