// Package identity supplies the session or user a rollout decision is made
// for. Callers pass an Identity (or a Provider) explicitly; nothing here reads
// global state.
//
// Key picks UserID over SessionID, so a signed-in user keeps the same buckets
// across devices.
//
// Over HTTP, Middleware reads X-Session-ID and X-User-ID, generates a session
// ID when absent, and stores the identity in the request context for
// Context() and LoggerExtractor().
package identity
