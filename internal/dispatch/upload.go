// filepath: internal/dispatch/upload.go
package dispatch

import (
	"net/http"

	"sqlgrid/internal/logging"
)

// upload stores a multipart file and answers with its stored-file
// reference. The form was already parsed with the configured size cap by
// Handle.
func (d *Dispatcher) upload(w http.ResponseWriter, r *http.Request, req *actionRequest) {
	if d.Store == nil {
		respondWithError(w, http.StatusNotImplemented, "Uploads are not configured.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing 'file' part in multipart form.")
		return
	}
	defer file.Close()

	if d.MaxUploadBytes > 0 && header.Size > d.MaxUploadBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit.")
		return
	}

	ref, size, err := d.Store.Save(file, header.Filename)
	if err != nil {
		logging.Log.Errorf("Upload failed for %s: %v", header.Filename, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to store file.")
		return
	}

	req.transition(StateResponding)
	respondWithJSON(w, http.StatusCreated, UploadResponse{
		Ref:      ref,
		Filename: header.Filename,
		Size:     size,
		MimeType: header.Header.Get("Content-Type"),
	})
}
