package sqlite

import "github.com/beehive-org/beehive/internal/store"

var _ store.Store = (*DB)(nil)
