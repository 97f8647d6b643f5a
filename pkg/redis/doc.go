// Package redis connects to Redis with github.com/redis/go-redis/v9 and
// exposes a store.Store backed by it, used for persisted flag overrides and
// session identities when several engine replicas share state.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	st := redis.NewStore(client, redis.WithKeyPrefix("flagd:"))
package redis
