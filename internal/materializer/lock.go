package materializer

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// Locker is the advisory-lock boundary a Materializer acquires during
// Begin: an exclusive, blocking-with-timeout lock at the project's
// `.scaffold/lock`. *flock.Flock satisfies this directly; tests and
// dry-run-only callers with no real project directory supply noopLocker
// instead.
type Locker interface {
	TryLockContext(ctx context.Context, retryDelay time.Duration) (bool, error)
	Unlock() error
}

type noopLocker struct{}

func (noopLocker) TryLockContext(ctx context.Context, retryDelay time.Duration) (bool, error) {
	return true, nil
}

func (noopLocker) Unlock() error { return nil }

// resolveLocker returns opts.Locker when the caller supplied one,
// otherwise a real flock rooted at opts.LockPath, otherwise a no-op (for
// in-memory Sanctums with no real lock file to take).
func resolveLocker(opts Options) Locker {
	if opts.Locker != nil {
		return opts.Locker
	}
	if opts.LockPath == "" {
		return noopLocker{}
	}
	return flock.New(opts.LockPath)
}
