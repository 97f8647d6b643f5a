// Package pg connects to PostgreSQL with pgx/v5, applies the engine's schema
// with goose/v3, and exposes a store.Store over a single key/value table.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//	st := pg.NewStore(pool)
//
// Migrations are embedded in the binary; cfg.MigrationsTable names the goose
// version table so it can coexist with an application's own migrations.
package pg
