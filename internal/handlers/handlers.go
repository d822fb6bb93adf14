package handlers

import (
	"time"

	"github.com/ke2007/MarkdownShare/internal/flatstore"
	"github.com/ke2007/MarkdownShare/internal/media"
	"github.com/ke2007/MarkdownShare/internal/naming"
	"github.com/ke2007/MarkdownShare/internal/startup"
	"github.com/ke2007/MarkdownShare/internal/store"
)

// Handlers carries the HTTP handler dependencies.
type Handlers struct {
	groups         *store.Store
	flat           *flatstore.Store
	tempDir        string
	maxUploadBytes int64
	startedAt      time.Time
}

// New wires the stores and returns the handler set.
func New(config *startup.Config) *Handlers {
	codec := naming.New()
	thumbs := media.NewGenerator()

	return &Handlers{
		groups:         store.New(config.GroupsDir, codec, thumbs),
		flat:           flatstore.New(config.MarkdownDir, config.ImagesDir, config.ThumbnailsDir, codec, thumbs),
		tempDir:        config.TempDir,
		maxUploadBytes: config.MaxUploadBytes,
		startedAt:      time.Now(),
	}
}
