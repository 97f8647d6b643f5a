// Package source loads raw flag values from the places a deployment can set
// them: compiled defaults, the environment, a remote JSON document (HTTP or
// S3), a persisted local object and the request query string.
//
// Every layer is a map of flag name to raw string. Coercion and precedence
// belong to feature.Resolver; this package only gets the strings.
//
// Loader never fails. A provider error is logged at warn level, passed to the
// OnUnavailable hooks wrapped in ErrSourceUnavailable, and the layer comes
// back empty so resolution falls through to lower ranks:
//
//	ld := source.NewLoader([]source.Provider{
//	    source.Defaults(catalog),
//	    source.Env(catalog, source.WithEnvFiles(".env")),
//	    source.Remote(source.HTTPFetcher{URL: flagsURL}, 2*time.Second),
//	    source.Local(st, source.DefaultLocalKey),
//	}, source.WithCatalog(catalog), source.WithLogger(log))
//
//	flags := feature.NewResolver(catalog).Resolve(ld.LoadAll(ctx))
package source
