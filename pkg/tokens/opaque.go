package tokens

import "github.com/google/uuid"

// NewRefreshValue returns an unguessable opaque value for a refresh
// session. It carries no claims and is meaningful only as an exact-match
// key against the server-side store.
func NewRefreshValue() string { return uuid.NewString() }
