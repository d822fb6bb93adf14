package flatstore

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ke2007/MarkdownShare/internal/contenttypes"
	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/media"
	"github.com/ke2007/MarkdownShare/internal/naming"
	"github.com/ke2007/MarkdownShare/internal/store"
)

// Store is the legacy flat (non-grouped) content store kept for
// backward compatibility. Markdown files live under markdown/, images
// under images/ with shared thumbnails under thumbnails/. It is fully
// independent of the group store and deliberately unsynchronized with
// it, including its historical timestamp-only naming scheme.
type Store struct {
	markdownDir string
	imagesDir   string
	thumbsDir   string
	codec       *naming.Codec
	thumbs      *media.Generator
}

// Entry is one listed flat file.
type Entry struct {
	Filename    string            `json:"filename"`
	DisplayName string            `json:"displayName"`
	UploadDate  string            `json:"uploadDate"`
	Size        int64             `json:"size"`
	Kind        contenttypes.Kind `json:"fileType"`
	Folder      string            `json:"folder"`
	Thumbnail   string            `json:"thumbnail,omitempty"`
}

// New returns a flat Store over the three legacy directories.
func New(markdownDir, imagesDir, thumbsDir string, codec *naming.Codec, thumbs *media.Generator) *Store {
	return &Store{
		markdownDir: markdownDir,
		imagesDir:   imagesDir,
		thumbsDir:   thumbsDir,
		codec:       codec,
		thumbs:      thumbs,
	}
}

// Save stores one staged upload under its kind's directory and, for
// images, generates a 200x200 cover thumbnail (best-effort). It
// returns the assigned storage name.
func (s *Store) Save(originalName, stagedPath string) (string, contenttypes.Kind, error) {
	kind := contenttypes.Classify(originalName)
	storageName := s.codec.FlatStorageName(originalName)

	dir := s.markdownDir
	if kind == contenttypes.KindImage {
		dir = s.imagesDir
	}
	dest := filepath.Join(dir, storageName)

	if err := os.Rename(stagedPath, dest); err != nil {
		data, readErr := os.ReadFile(stagedPath)
		if readErr != nil {
			return "", kind, err
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return "", kind, err
		}
		os.Remove(stagedPath)
	}

	if kind == contenttypes.KindImage {
		thumbPath := filepath.Join(s.thumbsDir, naming.ThumbName(storageName))
		s.thumbs.Generate(dest, thumbPath, media.PolicyCover)
	}

	return storageName, kind, nil
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// SaveClipboard decodes a base64 data URL from a clipboard paste and
// stores it as "<millis>-clipboard.png" with a cover thumbnail.
func (s *Store) SaveClipboard(imageData string) (string, error) {
	payload := dataURLPrefix.ReplaceAllString(imageData, "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", err
	}

	storageName := s.codec.FlatStorageName("clipboard.png")
	dest := filepath.Join(s.imagesDir, storageName)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", err
	}

	s.thumbs.Generate(dest, filepath.Join(s.thumbsDir, naming.ThumbName(storageName)), media.PolicyCover)
	return storageName, nil
}

// List scans both legacy directories and returns all entries, newest
// upload first. Directories that do not exist yield no entries.
func (s *Store) List() ([]Entry, error) {
	entries := []Entry{}

	scan := func(dir, folder string, kind contenttypes.Kind) {
		files, err := os.ReadDir(dir)
		if err != nil {
			logging.Debug("flatstore: cannot scan %s: %v", dir, err)
			return
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			entry := Entry{
				Filename:    f.Name(),
				DisplayName: naming.DisplayNameFromFlat(f.Name()),
				UploadDate:  info.ModTime().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				Size:        info.Size(),
				Kind:        kind,
				Folder:      folder,
			}
			if kind == contenttypes.KindImage {
				thumbName := naming.ThumbName(f.Name())
				if _, err := os.Stat(filepath.Join(s.thumbsDir, thumbName)); err == nil {
					entry.Thumbnail = thumbName
				}
			}
			entries = append(entries, entry)
		}
	}

	scan(s.markdownDir, "markdown", contenttypes.KindDocument)
	scan(s.imagesDir, "images", contenttypes.KindImage)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UploadDate > entries[j].UploadDate
	})
	return entries, nil
}

// Resolve returns the on-disk path for folder/filename, confined to
// the legacy directories. folder must be "markdown" or "images".
func (s *Store) Resolve(folder, filename string) (string, error) {
	if strings.ContainsAny(folder, "/\\\x00") || strings.ContainsAny(filename, "/\\\x00") ||
		folder == ".." || filename == ".." || folder == "" || filename == "" {
		return "", store.ErrForbiddenPath
	}

	var dir string
	switch folder {
	case "markdown":
		dir = s.markdownDir
	case "images":
		dir = s.imagesDir
	default:
		return "", store.ErrFileNotFound
	}

	path := filepath.Join(dir, filename)
	absDir, _ := filepath.Abs(dir)
	absPath, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", store.ErrForbiddenPath
	}
	return path, nil
}

// ResolveThumb returns the on-disk path of a legacy thumbnail.
func (s *Store) ResolveThumb(filename string) (string, error) {
	if strings.ContainsAny(filename, "/\\\x00") || filename == ".." || filename == "" {
		return "", store.ErrForbiddenPath
	}
	path := filepath.Join(s.thumbsDir, filename)
	absDir, _ := filepath.Abs(s.thumbsDir)
	absPath, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", store.ErrForbiddenPath
	}
	if _, err := os.Stat(path); err != nil {
		return "", store.ErrFileNotFound
	}
	return path, nil
}

// Delete removes folder/filename and, for images, its thumbnail.
// A missing thumbnail is tolerated.
func (s *Store) Delete(folder, filename string) error {
	path, err := s.Resolve(folder, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return store.ErrFileNotFound
		}
		return err
	}
	if folder == "images" {
		thumb := filepath.Join(s.thumbsDir, naming.ThumbName(filename))
		if err := os.Remove(thumb); err != nil && !os.IsNotExist(err) {
			logging.Warn("flatstore: could not delete thumbnail %s: %v", thumb, err)
		}
	}
	return nil
}
