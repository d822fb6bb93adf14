package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/ke2007/MarkdownShare/internal/contenttypes"
	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/naming"
	"github.com/ke2007/MarkdownShare/internal/store"

	"github.com/gorilla/mux"
)

// CreateGroup starts a new, empty, incomplete group.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	// An empty or absent body falls back to a default name.
	_ = decodeJSONBody(r, &body)

	name := body.Name
	if name == "" {
		name = "New group " + time.Now().Format("2006-01-02")
	}

	group, err := h.groups.Create(name)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message": "group created",
		"group":   group,
	})
}

// AddGroupFiles accepts a multipart batch under the "files" field and
// appends each file to the group in input order. Unsupported
// extensions reject the whole batch before anything is stored.
func (h *Handlers) AddGroupFiles(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSONError(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSONError(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	// Upload filter: the whole batch is rejected while it is still
	// cheap to do so. Past this point unknown kinds are stored rather
	// than dropped.
	for _, header := range headers {
		if !contenttypes.IsAccepted(header.Filename) {
			writeJSONError(w,
				"only markdown files (.md, .markdown) or image files (.jpg, .png, .gif, .webp, .svg) can be uploaded",
				http.StatusBadRequest)
			return
		}
		if header.Size > h.maxUploadBytes {
			writeJSONError(w,
				fmt.Sprintf("file %q exceeds the %d byte upload limit", header.Filename, h.maxUploadBytes),
				http.StatusBadRequest)
			return
		}
	}

	uploads, cleanup, err := h.stageUploads(headers)
	defer cleanup()
	if err != nil {
		logging.Error("staging uploads failed: %v", err)
		writeJSONError(w, "failed to receive uploaded files", http.StatusInternalServerError)
		return
	}

	group, err := h.groups.AddFiles(id, uploads)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message": fmt.Sprintf("%d file(s) added", len(uploads)),
		"group":   group,
	})
}

// stageUploads writes each part to the staging directory and returns
// the store uploads plus a cleanup func that removes whatever was not
// moved into a group.
func (h *Handlers) stageUploads(headers []*multipart.FileHeader) ([]store.Upload, func(), error) {
	var staged []string
	cleanup := func() {
		for _, path := range staged {
			if _, err := os.Stat(path); err == nil {
				os.Remove(path)
			}
		}
	}

	uploads := make([]store.Upload, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			return nil, cleanup, err
		}

		tmp, err := os.CreateTemp(h.tempDir, "upload-*")
		if err != nil {
			part.Close()
			return nil, cleanup, err
		}
		staged = append(staged, tmp.Name())

		_, err = io.Copy(tmp, part)
		part.Close()
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, cleanup, err
		}

		name := naming.RepairDisplayName(header.Filename)
		uploads = append(uploads, store.Upload{
			OriginalName: name,
			DisplayName:  name,
			MimeType:     header.Header.Get("Content-Type"),
			Size:         header.Size,
			StagedPath:   tmp.Name(),
		})
	}
	return uploads, cleanup, nil
}

// GetGroup returns one group's metadata document.
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.Get(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, group)
}

// ListGroups returns completed groups, newest completion first.
func (h *Handlers) ListGroups(w http.ResponseWriter, _ *http.Request) {
	groups, err := h.groups.ListCompleted()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, groups)
}

// CompleteGroup marks a group completed, optionally renaming it.
func (h *Handlers) CompleteGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	_ = decodeJSONBody(r, &body)

	group, err := h.groups.Complete(mux.Vars(r)["id"], body.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message": "group completed",
		"group":   group,
	})
}

// RenameGroup updates a group's display name.
func (h *Handlers) RenameGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSONBody(r, &body); err != nil || body.Name == "" {
		writeJSONError(w, "group name is required", http.StatusBadRequest)
		return
	}

	group, err := h.groups.RenameGroup(mux.Vars(r)["id"], body.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message": "group renamed",
		"group":   group,
	})
}

// GetGroupFile serves a stored artifact: raw bytes for images, a JSON
// document envelope for markdown.
func (h *Handlers) GetGroupFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	path, record, err := h.groups.ResolveFilePath(vars["id"], vars["filename"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if record.Kind == contenttypes.KindImage {
		data, err := os.ReadFile(path)
		if err != nil {
			writeStoreError(w, store.ErrFileNotFound)
			return
		}
		w.Header().Set("Content-Type", contenttypes.MimeType(record.StorageName))
		w.Write(data)
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		writeStoreError(w, store.ErrFileNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"filename":    record.StorageName,
		"displayName": record.DisplayName,
		"content":     string(content),
		"fileType":    record.Kind,
	})
}

// GetGroupThumbnail serves a group thumbnail.
func (h *Handlers) GetGroupThumbnail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	path, err := h.groups.ResolveThumbPath(vars["id"], vars["filename"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// RenameGroupFile updates a file's display name; the storage name is
// immutable.
func (h *Handlers) RenameGroupFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSONBody(r, &body); err != nil || body.DisplayName == "" {
		writeJSONError(w, "file name is required", http.StatusBadRequest)
		return
	}

	group, err := h.groups.RenameFile(vars["id"], vars["filename"], body.DisplayName)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message": "file renamed",
		"group":   group,
	})
}

// DeleteGroupFile removes one file record and its artifacts.
func (h *Handlers) DeleteGroupFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	group, err := h.groups.RemoveFile(vars["id"], vars["filename"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message": "file deleted",
		"group":   group,
	})
}

// DeleteGroup removes the whole group subtree.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.Delete(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "group deleted"})
}
