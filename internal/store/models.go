package store

import (
	"time"

	"github.com/ke2007/MarkdownShare/internal/contenttypes"
)

// Group is the metadata document for one group, persisted as
// metadata.json inside the group's directory. The JSON field names are
// the wire format served to clients; Files order is display and
// navigation order.
type Group struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt"`
	IsCompleted bool         `json:"isCompleted"`
	Files       []FileRecord `json:"files"`

	// Thumbnail is derived for listings only and never persisted:
	// the URL of the first image record's thumbnail, if any.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// FileRecord describes one stored artifact inside a group. The storage
// name is immutable once assigned; the display name may be renamed
// freely.
type FileRecord struct {
	StorageName string            `json:"filename"`
	DisplayName string            `json:"displayName"`
	Kind        contenttypes.Kind `json:"fileType"`
	UploadedAt  time.Time         `json:"uploadDate"`
	Size        int64             `json:"size"`

	// Thumbnail is the thumbnail file name, present only for image
	// records whose thumbnail generation succeeded.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Upload is one staged file handed to AddFiles. The bytes already live
// at StagedPath (the multipart layer wrote them to the temp directory);
// AddFiles moves them into the group.
type Upload struct {
	OriginalName string
	DisplayName  string
	MimeType     string
	Size         int64
	StagedPath   string
}

// ImageFiles returns the ordered image-kind subset of the group's
// files, the sequence a gallery navigates.
func (g *Group) ImageFiles() []FileRecord {
	var images []FileRecord
	for _, f := range g.Files {
		if f.Kind == contenttypes.KindImage {
			images = append(images, f)
		}
	}
	return images
}
