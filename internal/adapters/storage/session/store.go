package session

import (
	"context"
	"time"

	domain "waccamaw/internal/domain/session"
)

// Store persists portal sessions. Lookups are by the cookie id; only its
// digest reaches the database.
type Store interface {
	Create(ctx context.Context) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Save(ctx context.Context, value domain.Session) error
	Clear(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
