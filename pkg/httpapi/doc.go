// Package httpapi exposes the rollout engine over HTTP using chi.
//
// Every response is a JSON envelope with data, meta and error fields.
// Decision and outcome routes read the caller identity from the
// X-Session-ID and X-User-ID headers; a missing session ID is generated
// and returned in the response.
package httpapi
