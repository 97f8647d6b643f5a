package identity

import "errors"

// ErrNoIdentity is returned when a provider cannot produce an identity.
var ErrNoIdentity = errors.New("identity: no identity available")
