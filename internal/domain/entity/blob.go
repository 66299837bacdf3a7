package entity

import "time"

type UploadedBlob struct {
	BlobID string `json:"blob_id"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

type StoredBlob struct {
	BlobID       string
	Size         int64
	LastModified time.Time
}
