package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/persons/internal/logging"
)

// Request error messages returned before any parsing happens.
const (
	MsgNoFile        = "no file found in the request"
	MsgNoFileName    = "no file selected"
	MsgWrongFileType = "file type not allowed: only .csv files are accepted"
)

// Import runs the full CSV import for one upload: it checks the request,
// waits for an import slot, spools the body to a temporary file, parses it
// and stores every valid row. Rows are processed one at a time in file order.
//
// A returned error with a nil outcome means nothing was imported (request,
// size, parse and capacity errors). When ctx is cancelled or the import
// timeout fires between rows, the partial outcome is returned together with
// the error: Accepted counts the rows already stored and Phase is
// PhaseInterrupted. Otherwise the outcome lists every rejected row; it is not
// a success unless at least one row was accepted.
func (s *Service) Import(ctx context.Context, up Upload) (*ImportOutcome, error) {
	start := time.Now()

	if err := s.checkUpload(up); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	log := logging.WithFields(ctx, "file", up.FileName, "client_ip", ClientIPFromContext(ctx))
	log.Info("import started", "size", up.Size, "charset", up.Charset)

	f, err := s.spool(up.Body)
	if err != nil {
		return nil, err
	}
	defer func() {
		name := f.Name()
		_ = f.Close()
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("remove spooled upload", "path", name, "error", err)
		}
	}()

	rows, err := ParseCSV(f, up.Charset)
	if err != nil {
		log.Info("import rejected", "phase", PhaseParseFailed, "error", err)
		return nil, err
	}

	outcome := &ImportOutcome{
		FileName: up.FileName,
		Phase:    PhaseRowProcessing,
		Total:    len(rows),
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			outcome.Phase = PhaseInterrupted
			outcome.Duration = time.Since(start)
			log.Warn("import interrupted",
				"processed", outcome.Processed(),
				"accepted", outcome.Accepted,
				"total", outcome.Total,
				"error", err,
			)
			return outcome, fmt.Errorf("import %s: %w", up.FileName, err)
		}

		if rej, ok := s.importRow(ctx, log, row); !ok {
			outcome.Rejections = append(outcome.Rejections, rej)
			continue
		}
		outcome.Accepted++
	}

	outcome.Phase = PhaseCompleted
	outcome.Duration = time.Since(start)

	log.Info("import completed",
		"total", outcome.Total,
		"accepted", outcome.Accepted,
		"rejected", outcome.Rejected(),
		"duration", outcome.Duration,
	)

	return outcome, nil
}

// ImportFile imports a CSV file from the local filesystem.
func (s *Service) ImportFile(ctx context.Context, path, charset string) (*ImportOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return s.Import(ctx, Upload{
		FileName: filepath.Base(path),
		Size:     info.Size(),
		Charset:  charset,
		Body:     f,
	})
}

// importRow validates and stores a single row. ok is false when the row was
// rejected.
func (s *Service) importRow(ctx context.Context, log *slog.Logger, row RawRow) (rej Rejection, ok bool) {
	res := ValidateRow(row.Values)
	if !res.Valid {
		return Rejection{Line: row.Line, Reason: res.Reason}, false
	}

	id, err := NewID()
	if err != nil {
		perr := &PersistenceError{Err: err}
		log.Warn("row not stored", "line", row.Line, "error", perr)
		return Rejection{Line: row.Line, Reason: perr.Error()}, false
	}

	if err := s.store.Create(ctx, id, res.Record); err != nil {
		perr := &PersistenceError{ID: id, Err: err}
		log.Warn("row not stored", "line", row.Line, "error", perr)
		return Rejection{Line: row.Line, Reason: perr.Error()}, false
	}

	return Rejection{}, true
}

func (s *Service) checkUpload(up Upload) error {
	if up.Body == nil {
		return &RequestError{Message: MsgNoFile}
	}
	if strings.TrimSpace(up.FileName) == "" {
		return &RequestError{Message: MsgNoFileName}
	}
	if !strings.EqualFold(filepath.Ext(up.FileName), ".csv") {
		return &RequestError{Message: MsgWrongFileType}
	}
	if up.Size > s.maxFileSize {
		return &OversizeError{Limit: s.maxFileSize}
	}
	return nil
}

// spool copies body into a temporary file positioned at its start. Bodies
// larger than the maximum file size fail with *OversizeError. The caller
// owns the returned file.
func (s *Service) spool(body io.Reader) (*os.File, error) {
	f, err := os.CreateTemp(s.tempDir, "persons-import-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	fail := func(err error) (*os.File, error) {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}

	n, err := io.Copy(f, io.LimitReader(body, s.maxFileSize+1))
	if err != nil {
		return fail(fmt.Errorf("spool upload: %w", err))
	}
	if n > s.maxFileSize {
		return fail(&OversizeError{Limit: s.maxFileSize})
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("rewind spool file: %w", err))
	}

	return f, nil
}
