// Package logger builds the *slog.Logger used across the rollout engine.
//
// New applies functional options (format, level, output, static attributes,
// context extractors) and wraps the resulting handler with a decorator that
// pulls request-scoped values such as the session identity out of
// context.Context on every record.
//
// Attribute helpers in attr.go keep key names consistent between packages:
// a rollback logged by the monitor and a decision logged by the engine both
// carry the same "variant" key, so log queries can join on it.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "flagd"),
//	    logger.WithContextExtractors(identity.LoggerExtractor()),
//	)
//	log.WarnContext(ctx, "variant rolled back",
//	    logger.Variant("checkout-v2"),
//	    logger.Reason("consecutive_errors"),
//	)
package logger
