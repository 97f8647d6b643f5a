// Package cache provides a generic, thread-safe LRU map.
//
// The engine keeps one rollout session per identity in it, so memory stays
// bounded no matter how many identities show up:
//
//	sessions := cache.New[string, *Session](10_000)
//	sessions.OnEvict(func(key string, s *Session) {
//	    log.Debug("session evicted", "identity", key)
//	})
//	s, _ := sessions.GetOrCreate(id.Key(), func() *Session { return newSession(id) })
//
// Eviction callbacks run outside the lock.
package cache
