package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

// DefaultEnvPrefix prefixes every flag variable.
const DefaultEnvPrefix = "APP_FEATURE_"

// EnvOption configures the env provider.
type EnvOption func(*envProvider)

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) EnvOption {
	return func(p *envProvider) { p.prefix = prefix }
}

// WithEnvFiles reads dotenv files beneath the process environment. Missing
// files are skipped.
func WithEnvFiles(files ...string) EnvOption {
	return func(p *envProvider) { p.files = append(p.files, files...) }
}

// WithEnviron replaces the process environment, mostly for tests.
func WithEnviron(vars map[string]string) EnvOption {
	return func(p *envProvider) { p.environ = func() map[string]string { return vars } }
}

type envProvider struct {
	catalog *feature.Catalog
	prefix  string
	files   []string
	environ func() map[string]string
}

// Env reads APP_FEATURE_<UPPER_SNAKE_NAME> variables for every catalog flag.
func Env(c *feature.Catalog, opts ...EnvOption) Provider {
	p := &envProvider{
		catalog: c,
		prefix:  DefaultEnvPrefix,
		environ: func() map[string]string { return env.ToMap(os.Environ()) },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *envProvider) Kind() feature.SourceKind { return feature.SourceEnv }

func (p *envProvider) Load(context.Context) (map[string]string, error) {
	vars := make(map[string]string)
	for _, file := range p.files {
		fromFile, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range fromFile {
			vars[k] = v
		}
	}
	for k, v := range p.environ() {
		vars[k] = v
	}

	out := make(map[string]string)
	for _, name := range p.catalog.Names() {
		if v, ok := vars[p.prefix+EnvName(name)]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// EnvName converts a flag name to UPPER_SNAKE_CASE: "legacyMode" becomes
// "LEGACY_MODE" and "checkout-v2" becomes "CHECKOUT_V2".
func EnvName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '-' || r == '.' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
