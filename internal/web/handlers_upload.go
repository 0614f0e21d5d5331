package web

import (
	"errors"
	"mime"
	"net/http"

	"github.com/JonMunkholm/persons/internal/core"
	"github.com/JonMunkholm/persons/internal/logging"
)

const (
	// multipartMemory is how much of a multipart body is held in memory;
	// the rest goes to temporary files removed after the request.
	multipartMemory = 1 << 20

	// multipartOverhead allows for boundaries and part headers on top of
	// the file itself.
	multipartOverhead = 64 << 10
)

type uploadResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	Code          string           `json:"code,omitempty"`
	InsertedCount int              `json:"inserted_count"`
	TotalRecords  int              `json:"total_records"`
	Errors        []core.Rejection `json:"errors,omitempty"`
}

// handleUpload imports a CSV file sent as multipart field "file".
//
// The body is capped with http.MaxBytesReader before parsing. A charset may be
// declared on the file part's Content-Type or in a "charset" form field.
// The response is 200 when at least one row was stored and 400 otherwise;
// both carry the per-row errors. An import cut short by cancellation or the
// import timeout still reports the rows stored before it stopped, under the
// status and code of the interrupting error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, r, formError(err, maxSize))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fileError(r, err))
		return
	}
	defer file.Close()

	charset := r.FormValue("charset")
	if charset == "" {
		if _, params, err := mime.ParseMediaType(header.Header.Get("Content-Type")); err == nil {
			charset = params["charset"]
		}
	}

	logging.WithFields(r.Context(), "file", header.Filename).
		Info("upload received", "size", header.Size, "charset", charset)

	outcome, err := s.service.Import(r.Context(), core.Upload{
		FileName: header.Filename,
		Size:     header.Size,
		Charset:  charset,
		Body:     file,
	})
	if err != nil {
		if outcome == nil {
			writeError(w, r, err)
			return
		}
		writeInterrupted(w, r, outcome, err)
		return
	}

	resp := newUploadResponse(outcome)

	status := http.StatusOK
	if !outcome.Success() {
		status = http.StatusBadRequest
		resp.Code = core.MapError(core.ErrNothingImported).Code
	}
	writeJSONStatus(w, status, resp)
}

func newUploadResponse(outcome *core.ImportOutcome) uploadResponse {
	return uploadResponse{
		Success:       outcome.Success(),
		Message:       outcome.Message(),
		InsertedCount: outcome.Accepted,
		TotalRecords:  outcome.Total,
		Errors:        outcome.Rejections,
	}
}

// writeInterrupted reports a partial import. Rows already stored stay stored,
// so the body carries their count next to the failure code.
func writeInterrupted(w http.ResponseWriter, r *http.Request, outcome *core.ImportOutcome, err error) {
	status := statusFor(err)
	code := core.MapError(err).Code

	logging.WithFields(r.Context(), "file", outcome.FileName).Warn("upload interrupted",
		"status", status,
		"code", code,
		"inserted", outcome.Accepted,
		"total", outcome.Total,
		"error", err.Error(),
	)

	resp := newUploadResponse(outcome)
	resp.Success = false
	resp.Code = code
	writeJSONStatus(w, status, resp)
}

// formError classifies a multipart parsing failure.
func formError(err error, limit int64) error {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return &core.OversizeError{Limit: limit}
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return &core.RequestError{Message: core.MsgNoFile}
	}
	return &core.RequestError{Message: "invalid upload form: " + err.Error()}
}

// fileError classifies a missing file part. Browsers send an empty file
// input as a part without a file name, which lands in the form values.
func fileError(r *http.Request, err error) error {
	if errors.Is(err, http.ErrMissingFile) {
		if _, ok := r.MultipartForm.Value["file"]; ok {
			return &core.RequestError{Message: core.MsgNoFileName}
		}
		return &core.RequestError{Message: core.MsgNoFile}
	}
	return &core.RequestError{Message: "read uploaded file: " + err.Error()}
}
