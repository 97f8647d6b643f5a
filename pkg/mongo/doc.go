// Package mongo connects to MongoDB with the v2 driver and exposes a
// store.Store over a single collection of {_id, value, updated_at} documents.
package mongo
