package source_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/source"
	"github.com/dmitrymomot/rollout/pkg/store"
)

func testCatalog(t *testing.T) *feature.Catalog {
	t.Helper()
	c, err := feature.NewCatalog([]feature.Definition{
		{Name: "legacyMode", Kind: feature.KindBool, Default: "false"},
		{Name: "theme", Kind: feature.KindEnum, Default: "light", Values: []string{"light", "dark"}},
		{Name: "checkout-v2", Kind: feature.KindBool, Default: "false"},
	})
	require.NoError(t, err)
	return c
}

func TestEnvName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"legacyMode":    "LEGACY_MODE",
		"checkout-v2":   "CHECKOUT_V2",
		"killSwitch":    "KILL_SWITCH",
		"theme":         "THEME",
		"v2Checkout":    "V2_CHECKOUT",
		"already_snake": "ALREADY_SNAKE",
	}
	for in, want := range tests {
		assert.Equal(t, want, source.EnvName(in), in)
	}
}

func TestEnv(t *testing.T) {
	t.Parallel()
	c := testCatalog(t)

	t.Run("process environment", func(t *testing.T) {
		t.Parallel()
		p := source.Env(c, source.WithEnviron(map[string]string{
			"APP_FEATURE_LEGACY_MODE": "true",
			"APP_FEATURE_CHECKOUT_V2": "1",
			"APP_FEATURE_UNKNOWN":     "x",
			"LEGACY_MODE":             "false",
		}))
		assert.Equal(t, feature.SourceEnv, p.Kind())
		got, err := p.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"legacyMode": "true", "checkout-v2": "1"}, got)
	})

	t.Run("dotenv beneath process", func(t *testing.T) {
		t.Parallel()
		p := source.Env(c,
			source.WithEnvFiles("testdata/flags.env", "testdata/missing.env"),
			source.WithEnviron(map[string]string{"APP_FEATURE_LEGACY_MODE": "false"}),
		)
		got, err := p.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"legacyMode": "false", "theme": "dark"}, got)
	})

	t.Run("custom prefix", func(t *testing.T) {
		t.Parallel()
		p := source.Env(c,
			source.WithEnvPrefix("FF_"),
			source.WithEnviron(map[string]string{"FF_THEME": "dark"}),
		)
		got, err := p.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"theme": "dark"}, got)
	})
}

func TestRemote(t *testing.T) {
	t.Parallel()

	load := func(body string) (map[string]string, error) {
		f := source.FetcherFunc(func(context.Context) ([]byte, error) { return []byte(body), nil })
		return source.Remote(f, time.Second).Load(context.Background())
	}

	t.Run("scalars stringified, nested dropped", func(t *testing.T) {
		t.Parallel()
		got, err := load(`{"legacyMode": true, "theme": "dark", "ratio": 0.5, "nested": {"a": 1}, "list": [1], "nil": null}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"legacyMode": "true", "theme": "dark", "ratio": "0.5"}, got)
	})

	t.Run("non-object is empty", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{`[1,2]`, `"on"`, `42`, `null`} {
			got, err := load(body)
			require.NoError(t, err, body)
			assert.Empty(t, got, body)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := load(`{"legacyMode":`)
		require.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		f := source.FetcherFunc(func(ctx context.Context) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		_, err := source.Remote(f, 20*time.Millisecond).Load(context.Background())
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("fetcher ignoring context", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		f := source.FetcherFunc(func(context.Context) ([]byte, error) {
			<-release
			return []byte(`{"theme":"dark"}`), nil
		})

		start := time.Now()
		_, err := source.Remote(f, 20*time.Millisecond).Load(context.Background())
		require.ErrorIs(t, err, source.ErrSourceUnavailable)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flags.json":
			assert.Equal(t, "secret", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"theme":"dark"}`)
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	f := source.HTTPFetcher{URL: srv.URL + "/flags.json", Header: http.Header{"Authorization": {"secret"}}}
	got, err := source.Remote(f, time.Second).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark"}, got)

	_, err = source.HTTPFetcher{URL: srv.URL + "/broken"}.Fetch(context.Background())
	require.ErrorIs(t, err, source.ErrUnexpectedStatus)
}

type MockS3 struct {
	mock.Mock
}

func (m *MockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func TestS3Fetcher(t *testing.T) {
	t.Parallel()
	cfg := source.S3Config{Bucket: "flags", Key: "prod/flags.json", Region: "eu-west-1"}

	t.Run("reads object", func(t *testing.T) {
		t.Parallel()
		m := &MockS3{}
		m.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Bucket == "flags" && *in.Key == "prod/flags.json"
		})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(`{"legacyMode":"1"}`))}, nil)

		f, err := source.NewS3Fetcher(context.Background(), cfg, source.WithS3Client(m))
		require.NoError(t, err)
		got, err := source.Remote(f, time.Second).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"legacyMode": "1"}, got)
		m.AssertExpectations(t)
	})

	t.Run("missing object", func(t *testing.T) {
		t.Parallel()
		m := &MockS3{}
		m.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

		f, err := source.NewS3Fetcher(context.Background(), cfg, source.WithS3Client(m))
		require.NoError(t, err)
		_, err = f.Fetch(context.Background())
		require.ErrorIs(t, err, source.ErrRemoteNotFound)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		_, err := source.NewS3Fetcher(context.Background(), source.S3Config{Key: "k", Region: "r"})
		require.ErrorIs(t, err, source.ErrInvalidS3Config)
	})
}

func TestLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing key is empty", func(t *testing.T) {
		t.Parallel()
		got, err := source.Local(store.NewMemoryStore(), "").Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("reads object", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		require.NoError(t, st.Set(ctx, source.DefaultLocalKey, []byte(`{"theme":"dark"}`)))
		got, err := source.Local(st, "").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"theme": "dark"}, got)
	})

	t.Run("json scalars", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		require.NoError(t, st.Set(ctx, source.DefaultLocalKey, []byte(`{"legacyMode": true, "theme": "dark"}`)))
		got, err := source.Local(st, "").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"legacyMode": "true", "theme": "dark"}, got)
	})

	t.Run("corrupt json", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		require.NoError(t, st.Set(ctx, "k", []byte(`not json`)))
		_, err := source.Local(st, "k").Load(ctx)
		require.Error(t, err)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()
	got, err := source.Query(url.Values{
		"ff_legacyMode": {"false", "true"},
		"ff_":           {"x"},
		"page":          {"2"},
	}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"legacyMode": "true"}, got)

	assert.Equal(t, map[string]string{"theme": "dark"}, source.ParseQuery("?ff_theme=dark&utm=x"))
	assert.Empty(t, source.ParseQuery(""))
}

func TestLoader(t *testing.T) {
	t.Parallel()
	c := testCatalog(t)
	ctx := context.Background()
	boom := errors.New("connection refused")

	var (
		mu       sync.Mutex
		reported []error
	)
	ld := source.NewLoader([]source.Provider{
		source.Static(feature.SourceQuery, map[string]string{"theme": "dark", "bogus": "1"}),
		source.Defaults(c),
		source.ProviderFunc(feature.SourceRemote, func(context.Context) (map[string]string, error) {
			return nil, boom
		}),
		source.Env(c, source.WithEnviron(map[string]string{"APP_FEATURE_LEGACY_MODE": "true"})),
	},
		source.WithCatalog(c),
		source.OnUnavailable(func(kind feature.SourceKind, err error) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, feature.SourceRemote, kind)
			reported = append(reported, err)
		}),
	)

	t.Run("failing provider is empty", func(t *testing.T) {
		got := ld.Load(ctx, feature.SourceRemote)
		assert.Empty(t, got)
	})

	t.Run("unknown names dropped", func(t *testing.T) {
		got := ld.Load(ctx, feature.SourceQuery)
		assert.Equal(t, map[string]string{"theme": "dark"}, got)
	})

	t.Run("load all in rank order", func(t *testing.T) {
		layers := ld.LoadAll(ctx)
		require.Len(t, layers, 4)
		for i, want := range []feature.SourceKind{feature.SourceDefault, feature.SourceEnv, feature.SourceRemote, feature.SourceQuery} {
			assert.Equal(t, want, layers[i].Kind)
		}
		assert.Equal(t, "true", layers[1].Values["legacyMode"])

		flags := feature.NewResolver(c).Resolve(layers)
		assert.True(t, flags.Bool("legacyMode"))
		assert.Equal(t, "dark", flags.String("theme"))
	})

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reported)
	for _, err := range reported {
		require.ErrorIs(t, err, source.ErrSourceUnavailable)
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int64(len(reported)), ld.Failures())
}

func TestLoaderUnregisteredKind(t *testing.T) {
	t.Parallel()
	ld := source.NewLoader(nil)
	assert.Empty(t, ld.Load(context.Background(), feature.SourceLocal))
	assert.Empty(t, ld.LoadAll(context.Background()))
}
