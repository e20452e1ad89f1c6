package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/plotapi/internal/audit"
	"github.com/JonMunkholm/plotapi/internal/ingest"
	"github.com/JonMunkholm/plotapi/internal/logging"
	"github.com/JonMunkholm/plotapi/internal/metrics"
)

// APIVersion is reported by the root endpoint.
const APIVersion = "1.0.0"

const (
	// multipartMemory is how much of a form is held in memory before
	// spilling file parts to disk.
	multipartMemory = 32 << 20
	// multipartSlack covers boundaries and part headers on top of the
	// file size ceiling.
	multipartSlack = 1 << 20
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"message": "Interactive Plotting API",
		"version": APIVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// handleUpload ingests a multipart file upload. The optional delimiter is
// read from the form or the query string.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := WithRequestMetadata(r.Context(), r)

	var in ingest.RawInput
	res, err := s.withSlot(ctx, func(ctx context.Context) (*ingest.Result, error) {
		var err error
		if in, err = s.readUpload(w, r); err != nil {
			return nil, err
		}
		return s.ingestor.Ingest(ctx, in)
	})

	s.finish(ctx, w, r, metrics.SourceUpload, in.Name, int64(len(in.Data)), res, err, start)
}

// readUpload extracts the file part and delimiter from a multipart request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (ingest.RawInput, error) {
	limit := s.ingestor.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return ingest.RawInput{}, ingest.TooLarge(limit)
		}
		return ingest.RawInput{}, &ingest.Error{Kind: ingest.KindBadInput, Msg: "invalid multipart form", Err: err}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return ingest.RawInput{}, ingest.Errorf(ingest.KindBadInput, "file is required")
	}
	defer file.Close()

	in := ingest.RawInput{Name: header.Filename}
	if in.Delimiter, err = ingest.ParseDelimiter(r.FormValue("delimiter")); err != nil {
		return in, err
	}
	if header.Size > limit {
		return in, ingest.TooLarge(limit)
	}

	// One byte past the ceiling is enough for Ingest to reject it.
	if in.Data, err = io.ReadAll(io.LimitReader(file, limit+1)); err != nil {
		return in, fmt.Errorf("read upload: %w", err)
	}
	return in, nil
}

// handleFetchURL retrieves a remote file and ingests it.
func (s *Server) handleFetchURL(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := WithRequestMetadata(r.Context(), r)

	req, err := decodeFetchRequest(w, r)
	if err != nil {
		s.finish(ctx, w, r, metrics.SourceURL, req.URL, 0, nil, err, start)
		return
	}
	delim, _ := ingest.ParseDelimiter(req.Delimiter) // checked by Validate

	in := ingest.RawInput{Name: req.URL}
	res, err := s.withSlot(ctx, func(ctx context.Context) (*ingest.Result, error) {
		fetched, err := s.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		in = fetched
		in.Delimiter = delim
		return s.ingestor.Ingest(ctx, in)
	})

	s.finish(ctx, w, r, metrics.SourceURL, in.Name, int64(len(in.Data)), res, err, start)
}

// withSlot runs fn while holding an ingestion slot.
func (s *Server) withSlot(ctx context.Context, fn func(context.Context) (*ingest.Result, error)) (*ingest.Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()
	return fn(ctx)
}

// finish records metrics and the audit entry, then writes the response.
func (s *Server) finish(ctx context.Context, w http.ResponseWriter, r *http.Request,
	source, name string, size int64, res *ingest.Result, err error, start time.Time) {

	elapsed := time.Since(start)
	entry := audit.Entry{
		Source:   source,
		Filename: name,
		Status:   audit.StatusSuccess,
		Bytes:    size,
		Duration: elapsed,
	}

	if err != nil {
		s.metrics.ObserveIngestion(source, err, elapsed, 0)
		entry.Status = audit.StatusFailure
		entry.Code = ingest.MapError(err).Code
		s.record(ctx, entry)
		s.respondError(w, r, err)
		return
	}

	s.metrics.ObserveIngestion(source, nil, elapsed, res.Rows)
	entry.Filename = res.Filename
	entry.Rows = res.Rows
	entry.Columns = len(res.Columns)
	s.record(ctx, entry)

	logging.FromContext(ctx).Info("ingestion complete",
		"source", source,
		"filename", res.Filename,
		"rows", res.Rows,
		"columns", len(res.Columns),
		"duration_ms", elapsed.Milliseconds(),
	)
	writeJSON(w, UploadResponse{Success: true, Result: res})
}

// record writes entry to the audit trail. Failures are logged and never
// reach the client; the write survives request cancellation.
func (s *Server) record(ctx context.Context, entry audit.Entry) {
	md := metadataFrom(ctx)
	entry.IPAddress = md.IPAddress
	entry.UserAgent = md.UserAgent

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Audit.Timeout)
	defer cancel()

	if err := s.audit.Record(actx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit record failed", "error", err, "source", entry.Source)
	}
}
