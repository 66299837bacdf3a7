package model

import "time"

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityRestricted Visibility = "restricted"
	VisibilityPrivate    Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityRestricted, VisibilityPrivate:
		return true
	default:
		return false
	}
}

// Content is an ephemeral post. Media is set once at creation and never changes.
type Content struct {
	ID          string     `bson:"_id"`
	OwnerID     string     `bson:"owner_id"`
	Media       []Media    `bson:"media"`
	Description string     `bson:"description"`
	Visibility  Visibility `bson:"visibility"`
	Viewers     []Viewer   `bson:"viewers"`
	CreatedAt   time.Time  `bson:"created_at"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty"` // Pointer: records without it never expire
}

type Media struct {
	BlobID string `bson:"blob_id" json:"blob_id"`
	URL    string `bson:"url" json:"url"`
}

type Viewer struct {
	UserID   string    `bson:"user_id"`
	ViewedAt time.Time `bson:"viewed_at"`
}

// BlobIDs returns the blob ids referenced by the record, in media order.
func (c *Content) BlobIDs() []string {
	ids := make([]string, 0, len(c.Media))
	for _, m := range c.Media {
		ids = append(ids, m.BlobID)
	}

	return ids
}

// Expired reports whether the record must be hidden from reads at now.
func (c *Content) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}
