package credstore

import (
	"context"

	"bookworm/pkg/domain"
)

// Store persists the session credential blob under a single key. Absence is
// a valid state (never logged in, or logged out), reported via the bool
// rather than an error.
type Store interface {
	Read(ctx context.Context) (domain.Credentials, bool, error)
	Write(ctx context.Context, creds domain.Credentials) error
	Clear(ctx context.Context) error
}
