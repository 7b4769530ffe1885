package account

import (
	"context"
	"time"
)

// Repository Account read side plus the unconfirmed-client cleanup
type Repository interface {
	// FindByID returns ErrAccountNotFound when absent
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindByLogin returns ErrAccountNotFound when absent
	FindByLogin(ctx context.Context, login string) (*Account, error)

	// DeleteUnconfirmedClients removes client accounts registered before cutoff
	// whose email was never confirmed
	DeleteUnconfirmedClients(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(claims Claims) (token string, expiresAt time.Time, err error)
}

// TokenVerifier validates session tokens
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
