package claims

import "errors"

// Typed outcomes of the claim flows. Handlers map these onto HTTP statuses;
// anything else coming out of the service is a storage failure.
var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrUnknownCode      = errors.New("unknown claim code")
	ErrUnknownBadge     = errors.New("unknown badge")
	ErrCodeClaimed      = errors.New("claim code already claimed")
	ErrAlreadyAwarded   = errors.New("recipient already has badge")
)
