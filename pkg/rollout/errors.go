package rollout

import "errors"

var (
	// ErrVariantEvaluation reports that code running under a treatment failed.
	// The caller falls back to baseline and the failure feeds rollback.
	ErrVariantEvaluation = errors.New("variant evaluation failed")

	// ErrUnknownVariant is returned for a variant with no policy.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrInvalidPolicy is returned by Policy.Validate.
	ErrInvalidPolicy = errors.New("invalid rollout policy")
)
