package coach

import "errors"

// ErrStoreUnavailable wraps failures to read the user's history. Callers map
// it to a retryable error.
var ErrStoreUnavailable = errors.New("coach: store unavailable")
