package entity

import (
	"time"

	"ephemera/internal/domain/model"
)

// DeletionEvent carries the pre-image of a removed content record. The record
// is already gone when the event is observed, so Media is the only source of
// the blob ids to clean up.
type DeletionEvent struct {
	RecordID    string        `json:"record_id"`
	OwnerID     string        `json:"owner_id,omitempty"`
	Media       []model.Media `json:"media"`
	DeletedAt   time.Time     `json:"deleted_at"`
	HasPreImage bool          `json:"has_pre_image"`
}

func (e *DeletionEvent) BlobIDs() []string {
	ids := make([]string, 0, len(e.Media))
	for _, m := range e.Media {
		ids = append(ids, m.BlobID)
	}

	return ids
}
