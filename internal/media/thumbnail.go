package media

import (
	"image"
	"os"
	"time"

	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Policy selects how a source image is fitted into the thumbnail
// bounding box. The flat store crops to a 200x200 square; the grouped
// store scales into 300x200 without enlarging small images. The two
// call sites intentionally differ and both policies are kept.
type Policy string

const (
	// PolicyCover center-crops to exactly 200x200.
	PolicyCover Policy = "cover"
	// PolicyContain scales down to fit within 300x200, never enlarging.
	PolicyContain Policy = "contain"
)

const jpegQuality = 80

// Generator derives bounded jpeg previews from source images.
// Generation is best-effort: a failure is logged and reported as a
// missing thumbnail, never as an error to the caller.
type Generator struct{}

// NewGenerator returns a thumbnail Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes a jpeg thumbnail of srcPath to destPath using the
// given policy. It returns true when the thumbnail was written; false
// means the caller should proceed without one.
func (g *Generator) Generate(srcPath, destPath string, policy Policy) bool {
	start := time.Now()

	img, err := decodeImage(srcPath)
	if err != nil {
		logging.Warn("thumbnail: decode failed for %s: %v", srcPath, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(policy), "error").Inc()
		return false
	}

	var thumb image.Image
	switch policy {
	case PolicyCover:
		thumb = imaging.Fill(img, 200, 200, imaging.Center, imaging.Lanczos)
	default:
		// imaging.Fit scales down only, which is exactly the
		// no-enlargement contract of the grouped scheme.
		thumb = imaging.Fit(img, 300, 200, imaging.Lanczos)
	}

	if err := imaging.Save(thumb, destPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		logging.Warn("thumbnail: save failed for %s: %v", destPath, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(policy), "error").Inc()
		return false
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues(string(policy), "success").Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(string(policy)).Observe(time.Since(start).Seconds())
	logging.Debug("thumbnail: wrote %s (%s)", destPath, policy)
	return true
}

func decodeImage(srcPath string) (image.Image, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	logging.Debug("thumbnail: imaging.Open failed for %s: %v, trying image.Decode", srcPath, err)

	file, openErr := os.Open(srcPath)
	if openErr != nil {
		return nil, err
	}
	defer file.Close()

	img, format, decErr := image.Decode(file)
	if decErr != nil {
		return nil, err
	}
	logging.Debug("thumbnail: decoded %s as %s", srcPath, format)
	return img, nil
}
