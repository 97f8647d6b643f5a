package feature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

func testCatalog(t *testing.T) *feature.Catalog {
	t.Helper()
	c, err := feature.NewCatalog(
		[]feature.Definition{
			{Name: "legacyMode", Kind: feature.KindBool, Default: "false"},
			{Name: "legacyTable", Kind: feature.KindBool, Default: "false"},
			{Name: "legacyNav", Kind: feature.KindBool, Default: "false"},
			{Name: "compactRows", Kind: feature.KindBool, Default: "true"},
			{Name: "theme", Kind: feature.KindEnum, Default: "light", Values: []string{"light", "dark"}},
			{Name: "banner", Kind: feature.KindString, Default: ""},
		},
		feature.ExpansionRule{
			Master: "legacyMode",
			Dependents: map[string]string{
				"legacyTable": "true",
				"legacyNav":   "true",
				"compactRows": "false",
			},
		},
	)
	require.NoError(t, err)
	return c
}

func src(kind feature.SourceKind, kv ...string) feature.ConfigSource {
	values := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i]] = kv[i+1]
	}
	return feature.ConfigSource{Kind: kind, Values: values}
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()
	r := feature.NewResolver(testCatalog(t))

	flags := r.Resolve(nil)
	assert.False(t, flags.Bool("legacyMode"))
	assert.True(t, flags.Bool("compactRows"))
	assert.Equal(t, "light", flags.String("theme"))
	assert.Equal(t, feature.SourceDefault, flags.Origin("theme"))
	assert.Equal(t, 6, flags.Len())
}

func TestResolve_Precedence(t *testing.T) {
	t.Parallel()
	r := feature.NewResolver(testCatalog(t))

	kinds := []feature.SourceKind{
		feature.SourceEnv, feature.SourceRemote, feature.SourceLocal, feature.SourceQuery,
	}
	// Every subset of sources defining "banner": the highest rank wins.
	for mask := 1; mask < 1<<len(kinds); mask++ {
		var sources []feature.ConfigSource
		want := ""
		wantKind := feature.SourceDefault
		for i, k := range kinds {
			if mask&(1<<i) == 0 {
				continue
			}
			sources = append(sources, src(k, "banner", k.String()))
			want = k.String()
			wantKind = k
		}
		// Reverse input order to prove ordering comes from rank, not position.
		for i, j := 0, len(sources)-1; i < j; i, j = i+1, j-1 {
			sources[i], sources[j] = sources[j], sources[i]
		}

		flags := r.Resolve(sources)
		assert.Equal(t, want, flags.String("banner"), "mask %b", mask)
		assert.Equal(t, wantKind, flags.Origin("banner"), "mask %b", mask)
	}
}

func TestResolve_Coercion(t *testing.T) {
	t.Parallel()
	r := feature.NewResolver(testCatalog(t))

	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"TRUE", true},
		{" true ", true},
		{"false", false},
		{"yes", false},
		{"0", false},
		{"", false},
	}
	for _, tt := range tests {
		flags := r.Resolve([]feature.ConfigSource{src(feature.SourceQuery, "compactRows", tt.raw)})
		assert.Equal(t, tt.want, flags.Bool("compactRows"), "raw %q", tt.raw)
	}

	flags := r.Resolve([]feature.ConfigSource{
		src(feature.SourceEnv, "theme", "dark"),
		src(feature.SourceQuery, "theme", "neon", "unknown", "true"),
	})
	assert.Equal(t, "dark", flags.String("theme"), "invalid enum is dropped, lower source survives")
	assert.Equal(t, feature.SourceEnv, flags.Origin("theme"))
	_, ok := flags.Lookup("unknown")
	assert.False(t, ok)

	flags = r.Resolve([]feature.ConfigSource{src(feature.SourceLocal, "banner", "  Maintenance at 5pm ")})
	assert.Equal(t, "  Maintenance at 5pm ", flags.String("banner"))
}

func TestResolve_Expansion(t *testing.T) {
	t.Parallel()
	r := feature.NewResolver(testCatalog(t))

	t.Run("master from lowest source turns every dependent on", func(t *testing.T) {
		t.Parallel()
		flags := r.Resolve([]feature.ConfigSource{src(feature.SourceEnv, "legacyMode", "true")})
		assert.True(t, flags.Bool("legacyTable"))
		assert.True(t, flags.Bool("legacyNav"))
		assert.False(t, flags.Bool("compactRows"))
		master, ok := flags.ExpandedBy("legacyTable")
		assert.True(t, ok)
		assert.Equal(t, "legacyMode", master)
	})

	t.Run("higher source keeps explicit dependent", func(t *testing.T) {
		t.Parallel()
		flags := r.Resolve([]feature.ConfigSource{
			src(feature.SourceEnv, "legacyMode", "true"),
			src(feature.SourceQuery, "legacyTable", "false"),
		})
		assert.False(t, flags.Bool("legacyTable"))
		assert.True(t, flags.Bool("legacyNav"))
		_, ok := flags.ExpandedBy("legacyTable")
		assert.False(t, ok)
	})

	t.Run("lower source cannot override expansion", func(t *testing.T) {
		t.Parallel()
		flags := r.Resolve([]feature.ConfigSource{
			src(feature.SourceEnv, "legacyTable", "false"),
			src(feature.SourceQuery, "legacyMode", "true"),
		})
		assert.True(t, flags.Bool("legacyTable"))
	})

	t.Run("same source as master is overridden", func(t *testing.T) {
		t.Parallel()
		flags := r.Resolve([]feature.ConfigSource{
			src(feature.SourceQuery, "legacyMode", "true", "legacyTable", "false"),
		})
		assert.True(t, flags.Bool("legacyTable"))
	})

	t.Run("master off leaves dependents alone", func(t *testing.T) {
		t.Parallel()
		flags := r.Resolve([]feature.ConfigSource{src(feature.SourceQuery, "legacyNav", "true")})
		assert.True(t, flags.Bool("legacyNav"))
		assert.False(t, flags.Bool("legacyTable"))
	})
}

func TestResolve_ExpansionIsNotReentrant(t *testing.T) {
	t.Parallel()
	c, err := feature.NewCatalog(
		[]feature.Definition{
			{Name: "a", Kind: feature.KindBool, Default: "false"},
			{Name: "b", Kind: feature.KindBool, Default: "false"},
			{Name: "c", Kind: feature.KindBool, Default: "false"},
		},
		feature.ExpansionRule{Master: "a", Dependents: map[string]string{"b": "true"}},
		feature.ExpansionRule{Master: "b", Dependents: map[string]string{"c": "true"}},
	)
	require.NoError(t, err)

	flags := feature.NewResolver(c).Resolve([]feature.ConfigSource{src(feature.SourceEnv, "a", "true")})
	assert.True(t, flags.Bool("b"))
	assert.False(t, flags.Bool("c"), "expanded flags must not trigger further expansion")
}

func TestResolve_Pure(t *testing.T) {
	t.Parallel()
	r := feature.NewResolver(testCatalog(t))
	sources := []feature.ConfigSource{
		src(feature.SourceEnv, "legacyMode", "true"),
		src(feature.SourceRemote, "theme", "dark"),
		src(feature.SourceQuery, "legacyNav", "0"),
	}

	first := r.Resolve(sources)
	second := r.Resolve(sources)
	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Entries(), second.Entries())

	// The returned map is a copy.
	m := first.Map()
	m["theme"] = "light"
	assert.Equal(t, "dark", first.String("theme"))
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		defs  []feature.Definition
		rules []feature.ExpansionRule
	}{
		{"empty name", []feature.Definition{{Kind: feature.KindBool}}, nil},
		{"duplicate", []feature.Definition{
			{Name: "x", Kind: feature.KindBool},
			{Name: "x", Kind: feature.KindBool},
		}, nil},
		{"enum without values", []feature.Definition{{Name: "x", Kind: feature.KindEnum}}, nil},
		{"enum default not allowed", []feature.Definition{
			{Name: "x", Kind: feature.KindEnum, Default: "c", Values: []string{"a", "b"}},
		}, nil},
		{"unknown kind", []feature.Definition{{Name: "x", Kind: "int"}}, nil},
		{"unknown master", []feature.Definition{{Name: "x", Kind: feature.KindBool}},
			[]feature.ExpansionRule{{Master: "y"}}},
		{"non-bool master", []feature.Definition{{Name: "x", Kind: feature.KindString}},
			[]feature.ExpansionRule{{Master: "x"}}},
		{"unknown dependent", []feature.Definition{{Name: "x", Kind: feature.KindBool}},
			[]feature.ExpansionRule{{Master: "x", Dependents: map[string]string{"z": "true"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := feature.NewCatalog(tt.defs, tt.rules...)
			require.ErrorIs(t, err, feature.ErrInvalidDefinition)
		})
	}

	assert.Panics(t, func() { feature.MustCatalog([]feature.Definition{{Name: ""}}) })
}
