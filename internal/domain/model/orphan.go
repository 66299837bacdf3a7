package model

import "time"

// Orphan is a blob whose deletion could not be completed and waits for an operator.
type Orphan struct {
	ID         string     `bson:"_id"`
	RecordID   string     `bson:"record_id"` // Empty when found by the full scan
	BlobID     string     `bson:"blob_id"`
	LastError  string     `bson:"last_error"`
	Attempts   int        `bson:"attempts"`
	RecordedAt time.Time  `bson:"recorded_at"`
	Resolved   bool       `bson:"resolved"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty"`
}
