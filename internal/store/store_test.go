package store

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ke2007/MarkdownShare/internal/contenttypes"
	"github.com/ke2007/MarkdownShare/internal/media"
	"github.com/ke2007/MarkdownShare/internal/naming"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	groupsDir := filepath.Join(t.TempDir(), "groups")
	if err := os.MkdirAll(groupsDir, 0755); err != nil {
		t.Fatal(err)
	}
	return New(groupsDir, naming.New(), media.NewGenerator()), groupsDir
}

// stageMarkdown writes a staged markdown upload and returns its Upload.
func stageMarkdown(t *testing.T, name, content string) Upload {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged-"+name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return Upload{
		OriginalName: name,
		DisplayName:  name,
		MimeType:     "text/markdown",
		Size:         int64(len(content)),
		StagedPath:   path,
	}
}

// stagePNG writes a real decodable PNG so thumbnail generation runs.
func stagePNG(t *testing.T, name string, width, height int) Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "staged-"+name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	return Upload{
		OriginalName: name,
		DisplayName:  name,
		MimeType:     "image/png",
		Size:         info.Size(),
		StagedPath:   path,
	}
}

func TestCreateGroup(t *testing.T) {
	s, groupsDir := newTestStore(t)

	group, err := s.Create("Vacation photos")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if group.IsCompleted {
		t.Error("new group must not be completed")
	}
	if len(group.Files) != 0 {
		t.Errorf("new group has %d files, want 0", len(group.Files))
	}

	for _, sub := range []string{"", "files", "thumbnails"} {
		if _, err := os.Stat(filepath.Join(groupsDir, group.ID, sub)); err != nil {
			t.Errorf("missing directory %q: %v", sub, err)
		}
	}
	if _, err := os.Stat(filepath.Join(groupsDir, group.ID, "metadata.json")); err != nil {
		t.Errorf("missing metadata document: %v", err)
	}
}

func TestGetMissingGroup(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.Get("group-123-abcdef"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Get on missing group = %v, want ErrGroupNotFound", err)
	}
}

func TestAddFilesBatch(t *testing.T) {
	s, groupsDir := newTestStore(t)
	group, err := s.Create("docs")
	if err != nil {
		t.Fatal(err)
	}

	// Two uploads sharing an original name must land under distinct
	// storage names.
	uploads := []Upload{
		stageMarkdown(t, "notes.md", "# first"),
		stageMarkdown(t, "notes.md", "# second"),
	}
	group, err = s.AddFiles(group.ID, uploads)
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if len(group.Files) != 2 {
		t.Fatalf("got %d records, want 2", len(group.Files))
	}
	if group.Files[0].StorageName == group.Files[1].StorageName {
		t.Errorf("storage name collision: %q", group.Files[0].StorageName)
	}

	for _, f := range group.Files {
		if f.Kind != contenttypes.KindDocument {
			t.Errorf("record %q kind = %s, want document", f.StorageName, f.Kind)
		}
		if _, err := os.Stat(filepath.Join(groupsDir, group.ID, "files", f.StorageName)); err != nil {
			t.Errorf("artifact for %q missing: %v", f.StorageName, err)
		}
	}

	// A fresh read must see the persisted records.
	reread, err := s.Get(group.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reread.Files) != 2 {
		t.Errorf("reread has %d records, want 2", len(reread.Files))
	}
}

func TestAddImageGeneratesThumbnail(t *testing.T) {
	s, groupsDir := newTestStore(t)
	group, err := s.Create("photos")
	if err != nil {
		t.Fatal(err)
	}

	group, err = s.AddFiles(group.ID, []Upload{stagePNG(t, "shot.png", 400, 300)})
	if err != nil {
		t.Fatal(err)
	}
	record := group.Files[0]
	if record.Kind != contenttypes.KindImage {
		t.Fatalf("kind = %s, want image", record.Kind)
	}
	if record.Thumbnail == "" {
		t.Fatal("expected thumbnail name on image record")
	}
	if _, err := os.Stat(filepath.Join(groupsDir, group.ID, "thumbnails", record.Thumbnail)); err != nil {
		t.Errorf("thumbnail artifact missing: %v", err)
	}

	path, err := s.ResolveThumbPath(group.ID, record.Thumbnail)
	if err != nil {
		t.Fatalf("ResolveThumbPath: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("resolved thumbnail path is stale: %v", err)
	}
}

func TestCompleteLifecycle(t *testing.T) {
	s, groupsDir := newTestStore(t)
	group, err := s.Create("draft")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Complete(group.ID, ""); !errors.Is(err, ErrEmptyGroup) {
		t.Fatalf("Complete on empty group = %v, want ErrEmptyGroup", err)
	}

	if _, err := s.AddFiles(group.ID, []Upload{stageMarkdown(t, "a.md", "x")}); err != nil {
		t.Fatal(err)
	}

	// Incomplete groups are invisible to listings.
	listed, err := s.ListCompleted()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Fatalf("incomplete group leaked into listing")
	}

	group, err = s.Complete(group.ID, "Final name")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !group.IsCompleted || group.CompletedAt == nil {
		t.Error("completion must stamp IsCompleted and CompletedAt")
	}
	if group.Name != "Final name" {
		t.Errorf("name = %q, want %q", group.Name, "Final name")
	}

	listed, err = s.ListCompleted()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != group.ID {
		t.Fatalf("completed group not listed")
	}

	// Completing again only re-stamps.
	first := *group.CompletedAt
	time.Sleep(2 * time.Millisecond)
	group, err = s.Complete(group.ID, "")
	if err != nil {
		t.Fatalf("repeated Complete: %v", err)
	}
	if !group.CompletedAt.After(first) {
		t.Error("repeated completion must advance the timestamp")
	}
	if group.Name != "Final name" {
		t.Errorf("empty final name must keep the current name, got %q", group.Name)
	}

	if err := s.Delete(group.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(groupsDir, group.ID)); !os.IsNotExist(err) {
		t.Error("group directory must be gone after delete")
	}
	if _, err := s.Get(group.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Get after delete = %v, want ErrGroupNotFound", err)
	}
}

func TestListCompletedNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	var ids []string
	for _, name := range []string{"older", "newer"} {
		group, err := s.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddFiles(group.ID, []Upload{stageMarkdown(t, "a.md", "x")}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Complete(group.ID, ""); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, group.ID)
		time.Sleep(2 * time.Millisecond)
	}

	listed, err := s.ListCompleted()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d groups, want 2", len(listed))
	}
	if listed[0].ID != ids[1] || listed[1].ID != ids[0] {
		t.Error("listing must order newest completion first")
	}
}

func TestListCompletedSkipsCorruptMetadata(t *testing.T) {
	s, groupsDir := newTestStore(t)

	group, err := s.Create("good")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFiles(group.ID, []Upload{stageMarkdown(t, "a.md", "x")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Complete(group.ID, ""); err != nil {
		t.Fatal(err)
	}

	badDir := filepath.Join(groupsDir, "group-1-badbad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "metadata.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	// A bare directory without any metadata document at all.
	if err := os.MkdirAll(filepath.Join(groupsDir, "group-2-nodata"), 0755); err != nil {
		t.Fatal(err)
	}

	listed, err := s.ListCompleted()
	if err != nil {
		t.Fatalf("listing must survive corrupt neighbors: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != group.ID {
		t.Errorf("expected only the healthy group, got %d entries", len(listed))
	}
}

func TestRemoveFile(t *testing.T) {
	s, groupsDir := newTestStore(t)
	group, err := s.Create("g")
	if err != nil {
		t.Fatal(err)
	}
	group, err = s.AddFiles(group.ID, []Upload{
		stageMarkdown(t, "keep.md", "k"),
		stageMarkdown(t, "drop.md", "d"),
	})
	if err != nil {
		t.Fatal(err)
	}
	target := group.Files[1]

	group, err = s.RemoveFile(group.ID, target.StorageName)
	if err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if len(group.Files) != 1 {
		t.Fatalf("got %d records after remove, want 1", len(group.Files))
	}
	if _, err := os.Stat(filepath.Join(groupsDir, group.ID, "files", target.StorageName)); !os.IsNotExist(err) {
		t.Error("artifact must be deleted with its record")
	}

	if _, err := s.RemoveFile(group.ID, target.StorageName); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second remove = %v, want ErrFileNotFound", err)
	}
}

func TestRenameFileKeepsStorageName(t *testing.T) {
	s, _ := newTestStore(t)
	group, err := s.Create("g")
	if err != nil {
		t.Fatal(err)
	}
	group, err = s.AddFiles(group.ID, []Upload{stageMarkdown(t, "old.md", "x")})
	if err != nil {
		t.Fatal(err)
	}
	storageName := group.Files[0].StorageName

	group, err = s.RenameFile(group.ID, storageName, "  renamed.md  ")
	if err != nil {
		t.Fatalf("RenameFile: %v", err)
	}
	if group.Files[0].DisplayName != "renamed.md" {
		t.Errorf("display name = %q, want trimmed %q", group.Files[0].DisplayName, "renamed.md")
	}
	if group.Files[0].StorageName != storageName {
		t.Error("rename must never touch the storage name")
	}

	// The artifact stays reachable under the original storage name.
	if _, _, err := s.ResolveFilePath(group.ID, storageName); err != nil {
		t.Errorf("artifact unreachable after rename: %v", err)
	}

	if _, err := s.RenameFile(group.ID, "170-nosuch-x.md", "y"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("rename of unknown file = %v, want ErrFileNotFound", err)
	}
}

func TestResolveFilePathOrphanedRecord(t *testing.T) {
	s, groupsDir := newTestStore(t)
	group, err := s.Create("g")
	if err != nil {
		t.Fatal(err)
	}
	group, err = s.AddFiles(group.ID, []Upload{stageMarkdown(t, "a.md", "x")})
	if err != nil {
		t.Fatal(err)
	}
	storageName := group.Files[0].StorageName

	// Delete the bytes out from under the record.
	if err := os.Remove(filepath.Join(groupsDir, group.ID, "files", storageName)); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.ResolveFilePath(group.ID, storageName); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("orphaned record = %v, want ErrFileNotFound", err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	s, _ := newTestStore(t)
	group, err := s.Create("g")
	if err != nil {
		t.Fatal(err)
	}

	segments := []string{"..", ".", "", "a/b", `a\b`, "..\x00"}
	for _, seg := range segments {
		t.Run("id "+seg, func(t *testing.T) {
			if _, err := s.Get(seg); !errors.Is(err, ErrForbiddenPath) {
				t.Errorf("Get(%q) = %v, want ErrForbiddenPath", seg, err)
			}
		})
		t.Run("file "+seg, func(t *testing.T) {
			if _, _, err := s.ResolveFilePath(group.ID, seg); !errors.Is(err, ErrForbiddenPath) {
				t.Errorf("ResolveFilePath(%q) = %v, want ErrForbiddenPath", seg, err)
			}
		})
		t.Run("thumb "+seg, func(t *testing.T) {
			if _, err := s.ResolveThumbPath(group.ID, seg); !errors.Is(err, ErrForbiddenPath) {
				t.Errorf("ResolveThumbPath(%q) = %v, want ErrForbiddenPath", seg, err)
			}
		})
	}

	if err := s.Delete("../outside"); !errors.Is(err, ErrForbiddenPath) {
		t.Errorf("Delete with traversal = %v, want ErrForbiddenPath", err)
	}
}

func TestRenameGroup(t *testing.T) {
	s, _ := newTestStore(t)
	group, err := s.Create("before")
	if err != nil {
		t.Fatal(err)
	}

	group, err = s.RenameGroup(group.ID, " after ")
	if err != nil {
		t.Fatalf("RenameGroup: %v", err)
	}
	if group.Name != "after" {
		t.Errorf("name = %q, want %q", group.Name, "after")
	}

	reread, err := s.Get(group.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reread.Name != "after" {
		t.Errorf("persisted name = %q, want %q", reread.Name, "after")
	}
}
