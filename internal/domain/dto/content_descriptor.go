package dto

import "ephemera/internal/domain/model"

type MediaDescriptor struct {
	BlobID string `json:"blob_id"`
	URL    string `json:"url"`
}

type ContentDescriptor struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner"`
	Media       []MediaDescriptor `json:"media"`
	Description string            `json:"description"`
	Visibility  string            `json:"visibility"`
	Views       int               `json:"views"`
	Created     int64             `json:"created"`
	Expires     *int64            `json:"expires,omitempty"`
}

type OrphanDescriptor struct {
	ID        string `json:"id"`
	RecordID  string `json:"record_id,omitempty"`
	BlobID    string `json:"blob_id"`
	LastError string `json:"last_error"`
	Attempts  int    `json:"attempts"`
	Recorded  int64  `json:"recorded"`
}

func NewContentDescriptor(c *model.Content) ContentDescriptor {
	media := make([]MediaDescriptor, 0, len(c.Media))
	for _, m := range c.Media {
		media = append(media, MediaDescriptor{BlobID: m.BlobID, URL: m.URL})
	}

	d := ContentDescriptor{
		ID:          c.ID,
		Owner:       c.OwnerID,
		Media:       media,
		Description: c.Description,
		Visibility:  string(c.Visibility),
		Views:       len(c.Viewers),
		Created:     c.CreatedAt.Unix(),
	}

	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.Unix()
		d.Expires = &exp
	}

	return d
}

func NewOrphanDescriptor(o *model.Orphan) OrphanDescriptor {
	return OrphanDescriptor{
		ID:        o.ID,
		RecordID:  o.RecordID,
		BlobID:    o.BlobID,
		LastError: o.LastError,
		Attempts:  o.Attempts,
		Recorded:  o.RecordedAt.Unix(),
	}
}
