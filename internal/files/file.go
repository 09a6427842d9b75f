// Package files stores user uploads: metadata rows in postgres and the bytes in
// a BlobStore.
package files

import "time"

const localStorage = "local"

// File is the metadata record of one uploaded blob.
type File struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	Mime        string    `json:"mime"`
	Size        int64     `json:"size"`
	Storage     string    `json:"storage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (f *File) OwnerID() string {
	return f.UserID
}
