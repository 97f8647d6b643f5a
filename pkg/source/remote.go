package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

// DefaultRemoteTimeout bounds a remote fetch when no timeout is given.
const DefaultRemoteTimeout = 3 * time.Second

// maxRemoteBody caps the flag document size.
const maxRemoteBody = 1 << 20

// Fetcher returns the raw remote flag document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

type remoteProvider struct {
	fetcher Fetcher
	timeout time.Duration
}

// Remote decodes a JSON object fetched within timeout. Anything that is not
// an object decodes to an empty map; scalar members are stringified and
// nested members dropped.
func Remote(f Fetcher, timeout time.Duration) Provider {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &remoteProvider{fetcher: f, timeout: timeout}
}

func (p *remoteProvider) Kind() feature.SourceKind { return feature.SourceRemote }

func (p *remoteProvider) Load(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		body []byte
		err  error
	}
	// Buffered so a late result never blocks the fetch goroutine.
	done := make(chan result, 1)
	go func() {
		body, err := p.fetcher.Fetch(ctx)
		done <- result{body: body, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return decodeFlagDocument(r.body)
	case <-ctx.Done():
		return nil, errors.Join(ErrSourceUnavailable, ctx.Err())
	}
}

func decodeFlagDocument(body []byte) (map[string]string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode flag document: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return map[string]string{}, nil
	}

	out := make(map[string]string, len(obj))
	for name, v := range obj {
		switch v := v.(type) {
		case string:
			out[name] = v
		case bool:
			out[name] = strconv.FormatBool(v)
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return out, nil
}

// HTTPFetcher GETs a JSON document.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
	Header http.Header
}

func (f HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range f.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Join(ErrUnexpectedStatus, fmt.Errorf("GET %s: %s", f.URL, resp.Status))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
}
