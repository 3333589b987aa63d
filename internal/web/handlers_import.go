package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/importer"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

var errNoFile = errors.New("no file provided")

// importResponse is the body of a finished (or stopped) import.
type importResponse struct {
	importer.Outcome
	Summary string                `json:"summary"`
	Error   *importer.UserMessage `json:"error,omitempty"`
}

// handleImport accepts a multipart upload in field "file" (.csv or .xlsx)
// and imports it synchronously. A run stopped by a timeout still reports the
// rows it processed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d bytes", importer.ErrFileTooLarge, maxSize))
			return
		}
		s.respondError(w, r, badRequest(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, badRequest(errNoFile))
		return
	}
	defer file.Close()

	logging.FromContext(r.Context()).Info("import received",
		"file", header.Filename,
		"size", header.Size,
	)

	out, err := s.service.Import(r.Context(), header.Filename, file, maxSize)
	if err != nil && !out.Cancelled {
		s.respondError(w, r, err)
		return
	}

	resp := importResponse{Outcome: out, Summary: out.Summary()}
	if err != nil {
		msg := importer.MapError(err)
		resp.Error = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}
