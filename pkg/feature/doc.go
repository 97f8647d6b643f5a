// Package feature resolves feature flags from layered configuration sources.
//
// A Catalog holds the compiled-in flag definitions and the expansion rules
// between them. A Resolver merges raw ConfigSource layers over the catalog
// defaults and returns an immutable FlagSet; nothing ever mutates a FlagSet
// in place, every change is a new resolution.
//
// # Precedence
//
// Sources are applied in ascending rank, highest rank last:
//
//	query > local > remote > env > default
//
// Boolean flags coerce "true" and "1" to true and anything else to false.
// Enum flags accept only declared values; string flags pass through. Values
// for unknown flags and enum values that fail coercion are dropped with
// ErrInvalidFlagValue logged at debug level.
//
// # Expansion
//
// An ExpansionRule forces a fixed set of dependent flags when its master flag
// resolves true. Expansion runs once, after the merge, and is not re-entrant:
// masters are read from the merged values before any rule is applied. A
// dependent explicitly set by a source ranked above the source of the master's
// value keeps that explicit value.
//
//	catalog := feature.MustCatalog(
//		[]feature.Definition{
//			{Name: "legacyMode", Kind: feature.KindBool, Default: "false"},
//			{Name: "legacyTable", Kind: feature.KindBool, Default: "false"},
//		},
//		feature.ExpansionRule{
//			Master:     "legacyMode",
//			Dependents: map[string]string{"legacyTable": "true"},
//		},
//	)
//	flags := feature.NewResolver(catalog).Resolve(sources)
//	if flags.Bool("legacyTable") {
//		// ...
//	}
package feature
