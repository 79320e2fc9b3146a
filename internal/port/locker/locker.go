package locker

import "context"

// AdvisoryLocker serialises critical sections keyed by an int64. The version
// store hashes (prompt_id, branch) to a key so read-head-then-append commits
// on one line never interleave; unrelated lines stay fully parallel.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
