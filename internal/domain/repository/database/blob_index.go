package database

import "context"

// BlobIndex lists every blob id referenced by a stored record.
type BlobIndex interface {
	BlobIDsInUse(ctx context.Context) (map[string]struct{}, error)
}
