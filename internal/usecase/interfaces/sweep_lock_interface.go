package interfaces

import (
	"context"
	"time"
)

// ISweepLock serialises sweep runs across replicas.
//
// TryLock returns a release token and true when the lock was taken, or an empty
// token and false when another holder owns it.
type ISweepLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}
