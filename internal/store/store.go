package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ke2007/MarkdownShare/internal/contenttypes"
	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/media"
	"github.com/ke2007/MarkdownShare/internal/metrics"
	"github.com/ke2007/MarkdownShare/internal/naming"
)

const (
	metadataFile  = "metadata.json"
	filesSubdir   = "files"
	thumbsSubdir  = "thumbnails"
	thumbURLEntry = "/api/groups/%s/thumbnails/%s"
)

// Store is the sole writer of group directory trees and their metadata
// documents. It keeps no state between calls: every operation re-reads
// the metadata document from disk, mutates it and writes the whole
// document back. Concurrent writers against the same group are not
// serialized; the last full document written wins.
//
// Ordering rule: file bytes are durably on disk before the metadata
// record referencing them is written, and a record is removed from
// metadata before its bytes are deleted. A crash between steps can
// only leave an orphan artifact, never a record pointing at nothing
// beyond the current request.
type Store struct {
	groupsDir string
	codec     *naming.Codec
	thumbs    *media.Generator
	now       func() time.Time
}

// New returns a Store rooted at groupsDir.
func New(groupsDir string, codec *naming.Codec, thumbs *media.Generator) *Store {
	return &Store{
		groupsDir: groupsDir,
		codec:     codec,
		thumbs:    thumbs,
		now:       time.Now,
	}
}

// Create allocates a fresh group: directory subtree, empty metadata
// document. The id is regenerated on every call, so a failed create is
// safe to retry.
func (s *Store) Create(name string) (*Group, error) {
	start := s.now()

	id := s.codec.GroupID()
	groupDir := filepath.Join(s.groupsDir, id)

	for _, dir := range []string{groupDir, filepath.Join(groupDir, filesSubdir), filepath.Join(groupDir, thumbsSubdir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			// Leave nothing half-created behind.
			os.RemoveAll(groupDir)
			return nil, s.fail("create", start, storageFault("create", err))
		}
	}

	group := &Group{
		ID:        id,
		Name:      name,
		CreatedAt: s.now().UTC(),
		Files:     []FileRecord{},
	}

	if err := s.writeMetadata(id, group); err != nil {
		os.RemoveAll(groupDir)
		return nil, s.fail("create", start, err)
	}

	logging.Info("store: created group %s (%q)", id, name)
	return group, s.ok("create", start)
}

// Get returns the group's metadata document as stored.
func (s *Store) Get(id string) (*Group, error) {
	start := s.now()
	group, err := s.read(id)
	if err != nil {
		return nil, s.fail("get", start, err)
	}
	return group, s.ok("get", start)
}

// AddFiles moves each staged upload into the group in input order,
// generates thumbnails for images, and appends one record per file.
// The metadata document is written once, after the whole batch: if
// persisting any item fails, the batch's earlier artifacts stay on
// disk as orphans, no record is written, and the caller may retry the
// whole batch (retried files get fresh storage names).
func (s *Store) AddFiles(id string, uploads []Upload) (*Group, error) {
	start := s.now()

	group, err := s.read(id)
	if err != nil {
		return nil, s.fail("add_files", start, err)
	}

	filesDir := filepath.Join(s.groupsDir, id, filesSubdir)
	thumbsDir := filepath.Join(s.groupsDir, id, thumbsSubdir)

	added := 0
	for _, up := range uploads {
		kind := contenttypes.ClassifyUpload(up.OriginalName, up.MimeType)
		storageName := s.codec.GroupStorageName(up.OriginalName)
		dest := filepath.Join(filesDir, storageName)

		if err := moveFile(up.StagedPath, dest); err != nil {
			// Fail fast; earlier items of this batch remain as
			// orphans since their records were never written.
			metrics.StoreOrphansProduced.Add(float64(added))
			logging.Error("store: add to %s failed at %q, %d orphan(s) left: %v", id, up.OriginalName, added, err)
			return nil, s.fail("add_files", start, storageFault("add_files", err))
		}

		record := FileRecord{
			StorageName: storageName,
			DisplayName: up.DisplayName,
			Kind:        kind,
			UploadedAt:  s.now().UTC(),
			Size:        up.Size,
		}

		if kind == contenttypes.KindImage {
			thumbName := naming.ThumbName(storageName)
			if s.thumbs.Generate(dest, filepath.Join(thumbsDir, thumbName), media.PolicyContain) {
				record.Thumbnail = thumbName
			}
		}

		group.Files = append(group.Files, record)
		metrics.StoreFilesAdded.WithLabelValues(string(kind)).Inc()
		added++
	}

	if err := s.writeMetadata(id, group); err != nil {
		metrics.StoreOrphansProduced.Add(float64(added))
		logging.Error("store: metadata write for %s failed, %d orphan(s) left: %v", id, added, err)
		return nil, s.fail("add_files", start, err)
	}

	logging.Info("store: added %d file(s) to group %s", added, id)
	return group, s.ok("add_files", start)
}

// RemoveFile removes the record for storageName and deletes its
// artifact and thumbnail. The record is removed from metadata first;
// a crash after that point leaves only orphan bytes.
func (s *Store) RemoveFile(id, storageName string) (*Group, error) {
	start := s.now()

	if err := validateSegment(storageName); err != nil {
		return nil, s.fail("remove_file", start, err)
	}

	group, err := s.read(id)
	if err != nil {
		return nil, s.fail("remove_file", start, err)
	}

	idx := -1
	for i, f := range group.Files {
		if f.StorageName == storageName {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, s.fail("remove_file", start, ErrFileNotFound)
	}
	removed := group.Files[idx]

	group.Files = append(group.Files[:idx], group.Files[idx+1:]...)
	if err := s.writeMetadata(id, group); err != nil {
		return nil, s.fail("remove_file", start, err)
	}

	artifact := filepath.Join(s.groupsDir, id, filesSubdir, storageName)
	if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
		logging.Warn("store: could not delete artifact %s: %v", artifact, err)
	}
	if removed.Thumbnail != "" {
		thumb := filepath.Join(s.groupsDir, id, thumbsSubdir, removed.Thumbnail)
		if err := os.Remove(thumb); err != nil && !os.IsNotExist(err) {
			logging.Warn("store: could not delete thumbnail %s: %v", thumb, err)
		}
	}

	logging.Info("store: removed %s from group %s", storageName, id)
	return group, s.ok("remove_file", start)
}

// RenameFile updates a record's display name. Pure metadata mutation;
// the storage name never changes.
func (s *Store) RenameFile(id, storageName, newDisplayName string) (*Group, error) {
	start := s.now()

	if err := validateSegment(storageName); err != nil {
		return nil, s.fail("rename_file", start, err)
	}

	group, err := s.read(id)
	if err != nil {
		return nil, s.fail("rename_file", start, err)
	}

	found := false
	for i := range group.Files {
		if group.Files[i].StorageName == storageName {
			group.Files[i].DisplayName = strings.TrimSpace(newDisplayName)
			found = true
			break
		}
	}
	if !found {
		return nil, s.fail("rename_file", start, ErrFileNotFound)
	}

	if err := s.writeMetadata(id, group); err != nil {
		return nil, s.fail("rename_file", start, err)
	}
	return group, s.ok("rename_file", start)
}

// RenameGroup updates the group's display name.
func (s *Store) RenameGroup(id, newName string) (*Group, error) {
	start := s.now()

	group, err := s.read(id)
	if err != nil {
		return nil, s.fail("rename_group", start, err)
	}

	group.Name = strings.TrimSpace(newName)
	if err := s.writeMetadata(id, group); err != nil {
		return nil, s.fail("rename_group", start, err)
	}
	return group, s.ok("rename_group", start)
}

// Complete marks the group completed and stamps the completion time.
// Requires at least one file record. Idempotent: repeating only
// re-stamps the time and optionally renames.
func (s *Store) Complete(id, finalName string) (*Group, error) {
	start := s.now()

	group, err := s.read(id)
	if err != nil {
		return nil, s.fail("complete", start, err)
	}

	if len(group.Files) == 0 {
		return nil, s.fail("complete", start, ErrEmptyGroup)
	}

	completed := s.now().UTC()
	group.IsCompleted = true
	group.CompletedAt = &completed
	if finalName != "" {
		group.Name = strings.TrimSpace(finalName)
	}

	if err := s.writeMetadata(id, group); err != nil {
		return nil, s.fail("complete", start, err)
	}

	logging.Info("store: completed group %s (%q)", id, group.Name)
	return group, s.ok("complete", start)
}

// ListCompleted scans the groups directory and returns completed
// groups, newest completion first. Groups whose metadata document is
// missing or unparsable are skipped, never fatal. Each group carries
// the thumbnail URL of its first image record that has one.
func (s *Store) ListCompleted() ([]*Group, error) {
	start := s.now()

	entries, err := os.ReadDir(s.groupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Group{}, s.ok("list_completed", start)
		}
		return nil, s.fail("list_completed", start, storageFault("list_completed", err))
	}

	groups := []*Group{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		group, err := s.readMetadata(entry.Name())
		if err != nil {
			logging.Debug("store: skipping %s in listing: %v", entry.Name(), err)
			continue
		}
		if !group.IsCompleted {
			continue
		}

		for _, f := range group.ImageFiles() {
			if f.Thumbnail != "" {
				group.Thumbnail = fmt.Sprintf(thumbURLEntry, group.ID, f.Thumbnail)
				break
			}
		}
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ti, tj := groups[i].CompletedAt, groups[j].CompletedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})

	return groups, s.ok("list_completed", start)
}

// Delete removes the group's whole directory subtree.
func (s *Store) Delete(id string) error {
	start := s.now()

	if err := validateSegment(id); err != nil {
		return s.fail("delete", start, err)
	}

	groupDir := filepath.Join(s.groupsDir, id)
	if _, err := os.Stat(groupDir); err != nil {
		if os.IsNotExist(err) {
			return s.fail("delete", start, ErrGroupNotFound)
		}
		return s.fail("delete", start, storageFault("delete", err))
	}

	if err := os.RemoveAll(groupDir); err != nil {
		return s.fail("delete", start, storageFault("delete", err))
	}

	logging.Info("store: deleted group %s", id)
	return s.ok("delete", start)
}

// ResolveFilePath returns the on-disk path and record for a stored
// artifact. A record whose artifact is missing on disk is treated as
// absent: the caller gets ErrFileNotFound, not a crash.
func (s *Store) ResolveFilePath(id, storageName string) (string, *FileRecord, error) {
	if err := validateSegment(storageName); err != nil {
		return "", nil, err
	}

	group, err := s.read(id)
	if err != nil {
		return "", nil, err
	}

	for i := range group.Files {
		if group.Files[i].StorageName != storageName {
			continue
		}
		path := filepath.Join(s.groupsDir, id, filesSubdir, storageName)
		if err := s.confine(path); err != nil {
			return "", nil, err
		}
		if _, err := os.Stat(path); err != nil {
			// Orphaned record: bytes are gone.
			return "", nil, ErrFileNotFound
		}
		return path, &group.Files[i], nil
	}
	return "", nil, ErrFileNotFound
}

// ResolveThumbPath returns the on-disk path of a group thumbnail.
func (s *Store) ResolveThumbPath(id, thumbName string) (string, error) {
	if err := validateSegment(id); err != nil {
		return "", err
	}
	if err := validateSegment(thumbName); err != nil {
		return "", err
	}

	path := filepath.Join(s.groupsDir, id, thumbsSubdir, thumbName)
	if err := s.confine(path); err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", ErrFileNotFound
	}
	return path, nil
}

// read validates the id and loads the metadata document, mapping any
// missing piece to ErrGroupNotFound.
func (s *Store) read(id string) (*Group, error) {
	if err := validateSegment(id); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(s.groupsDir, id)); err != nil {
		return nil, ErrGroupNotFound
	}
	return s.readMetadata(id)
}

func (s *Store) readMetadata(id string) (*Group, error) {
	path := filepath.Join(s.groupsDir, id, metadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrGroupNotFound
	}

	var group Group
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("corrupt metadata for %s: %w", id, err)
	}
	if group.Files == nil {
		group.Files = []FileRecord{}
	}
	return &group, nil
}

// writeMetadata persists the whole document atomically: write to a
// temp file in the group directory, then rename over metadata.json.
func (s *Store) writeMetadata(id string, group *Group) error {
	group.Thumbnail = "" // derived field, never persisted

	data, err := json.MarshalIndent(group, "", "  ")
	if err != nil {
		return storageFault("write_metadata", err)
	}

	dir := filepath.Join(s.groupsDir, id)
	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return storageFault("write_metadata", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageFault("write_metadata", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageFault("write_metadata", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, metadataFile)); err != nil {
		os.Remove(tmpName)
		return storageFault("write_metadata", err)
	}
	return nil
}

// confine rejects any path that resolves outside the groups root.
func (s *Store) confine(path string) error {
	absRoot, err := filepath.Abs(s.groupsDir)
	if err != nil {
		return storageFault("confine", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ErrForbiddenPath
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return ErrForbiddenPath
	}
	return nil
}

// validateSegment rejects path parameters that are not a single plain
// path element, before anything touches the filesystem.
func validateSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." {
		return ErrForbiddenPath
	}
	if strings.ContainsAny(seg, "/\\\x00") {
		return ErrForbiddenPath
	}
	return nil
}

// moveFile renames src to dest, falling back to copy+remove when the
// rename crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return err
	}
	return os.Remove(src)
}

func (s *Store) ok(op string, start time.Time) error {
	metrics.StoreOperationsTotal.WithLabelValues(op, "success").Inc()
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(s.now().Sub(start).Seconds())
	return nil
}

func (s *Store) fail(op string, start time.Time, err error) error {
	metrics.StoreOperationsTotal.WithLabelValues(op, "error").Inc()
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(s.now().Sub(start).Seconds())
	return err
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound) || errors.Is(err, ErrFileNotFound)
}
