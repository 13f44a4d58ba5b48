package billing

import "errors"

// Expected business outcomes. Handlers surface these with a descriptive
// reason; anything else is logged and mapped to a generic failure so Stripe
// internals never leak to clients.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
