package abstraction

import "context"

// Deleter removes a record and its media on behalf of its owner.
type Deleter interface {
	Delete(ctx context.Context, id, requester string) error
}
