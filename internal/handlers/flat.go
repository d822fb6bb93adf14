package handlers

import (
	"io"
	"net/http"
	"os"

	"github.com/ke2007/MarkdownShare/internal/contenttypes"
	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/naming"
	"github.com/ke2007/MarkdownShare/internal/store"

	"github.com/gorilla/mux"
)

// Upload handles the legacy single-file flat upload.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSONError(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer part.Close()

	if !contenttypes.IsAccepted(header.Filename) {
		writeJSONError(w,
			"only markdown files (.md, .markdown) or image files (.jpg, .png, .gif, .webp, .svg) can be uploaded",
			http.StatusBadRequest)
		return
	}
	if header.Size > h.maxUploadBytes {
		writeJSONError(w, "file exceeds the upload limit", http.StatusBadRequest)
		return
	}

	tmp, err := os.CreateTemp(h.tempDir, "upload-*")
	if err != nil {
		writeJSONError(w, "failed to receive uploaded file", http.StatusInternalServerError)
		return
	}
	_, err = io.Copy(tmp, part)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		writeJSONError(w, "failed to receive uploaded file", http.StatusInternalServerError)
		return
	}

	originalName := naming.RepairDisplayName(header.Filename)
	storageName, kind, err := h.flat.Save(originalName, tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		logging.Error("flat upload failed: %v", err)
		writeJSONError(w, "failed to store uploaded file", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message":      "file uploaded",
		"filename":     storageName,
		"originalName": originalName,
		"fileType":     kind,
	})
}

// UploadClipboard stores a pasted image delivered as a base64 data URL.
func (h *Handlers) UploadClipboard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImageData string `json:"imageData"`
	}
	if err := decodeJSONBody(r, &body); err != nil || body.ImageData == "" {
		writeJSONError(w, "image data is required", http.StatusBadRequest)
		return
	}

	storageName, err := h.flat.SaveClipboard(body.ImageData)
	if err != nil {
		logging.Error("clipboard upload failed: %v", err)
		writeJSONError(w, "failed to store clipboard image", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message":      "clipboard image uploaded",
		"filename":     storageName,
		"originalName": "clipboard.png",
		"fileType":     contenttypes.KindImage,
	})
}

// ListFlatFiles lists the legacy flat files, newest first.
func (h *Handlers) ListFlatFiles(w http.ResponseWriter, _ *http.Request) {
	entries, err := h.flat.List()
	if err != nil {
		logging.Error("flat listing failed: %v", err)
		writeJSONError(w, "failed to list files", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

// GetFlatFile serves a legacy flat file: bytes for images, a JSON
// envelope for markdown.
func (h *Handlers) GetFlatFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	folder, filename := vars["folder"], vars["filename"]

	path, err := h.flat.Resolve(folder, filename)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if contenttypes.Classify(filename) == contenttypes.KindImage {
		data, err := os.ReadFile(path)
		if err != nil {
			writeStoreError(w, store.ErrFileNotFound)
			return
		}
		w.Header().Set("Content-Type", contenttypes.MimeType(filename))
		w.Write(data)
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		writeStoreError(w, store.ErrFileNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"filename":    filename,
		"displayName": naming.DisplayNameFromFlat(filename),
		"content":     string(content),
		"fileType":    contenttypes.Classify(filename),
	})
}

// DeleteFlatFile deletes a legacy flat file and its thumbnail.
func (h *Handlers) DeleteFlatFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.flat.Delete(vars["folder"], vars["filename"]); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "file deleted"})
}

// GetFlatThumbnail serves a legacy thumbnail.
func (h *Handlers) GetFlatThumbnail(w http.ResponseWriter, r *http.Request) {
	path, err := h.flat.ResolveThumb(mux.Vars(r)["filename"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
