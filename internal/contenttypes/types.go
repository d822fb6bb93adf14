package contenttypes

import (
	"path/filepath"
	"strings"
)

// Kind classifies an uploaded file.
type Kind string

const (
	// KindDocument is a markdown document.
	KindDocument Kind = "markdown"
	// KindImage is a raster or vector image.
	KindImage Kind = "image"
	// KindUnknown is anything else.
	KindUnknown Kind = "unknown"
)

// DocumentExtensions maps file extensions to whether they are accepted documents.
var DocumentExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// ImageExtensions maps file extensions to whether they are accepted images.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",

	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// Classify returns the Kind for a file name based on its extension.
func Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if DocumentExtensions[ext] {
		return KindDocument
	}
	if ImageExtensions[ext] {
		return KindImage
	}
	return KindUnknown
}

// ClassifyUpload classifies using the file name first and falls back to
// the MIME type the client declared. The fallback only matters once an
// upload has already passed the extension filter.
func ClassifyUpload(name, mimeType string) Kind {
	if kind := Classify(name); kind != KindUnknown {
		return kind
	}
	if strings.HasPrefix(mimeType, "image/") {
		return KindImage
	}
	if mimeType == "text/markdown" {
		return KindDocument
	}
	return KindUnknown
}

// MimeType returns the MIME type for a file name.
// Returns "application/octet-stream" if the extension is not recognized.
func MimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsAccepted returns true if the file name has an accepted extension.
func IsAccepted(name string) bool {
	return Classify(name) != KindUnknown
}
