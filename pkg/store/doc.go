// Package store defines the key/value persistence contract used for manual
// flag overrides and session identities, with in-memory and file-backed
// implementations. Networked backends live in pkg/redis, pkg/pg and pkg/mongo.
//
// Implementations must be safe for concurrent use. Get returns ErrNotFound
// for missing keys; Delete of a missing key is not an error.
package store
