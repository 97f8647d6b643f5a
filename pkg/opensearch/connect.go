package opensearch

import (
	"context"
	"errors"

	"github.com/opensearch-project/opensearch-go/v2"
)

// New creates a client and verifies the cluster answers.
func New(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrNoAddresses
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Healthcheck returns a readiness probe that calls the cluster info endpoint.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return errors.Join(ErrHealthcheckFailed, errors.New(res.Status()))
		}
		return nil
	}
}
