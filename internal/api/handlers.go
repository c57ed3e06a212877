package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/las"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/pipeline"
	"github.com/sells-group/lasqc/internal/processor"
	"github.com/sells-group/lasqc/internal/report"
	"github.com/sells-group/lasqc/internal/store"
)

// fileView is the JSON shape of an uploaded file. Sample values are only
// included on request.
type fileView struct {
	ID         string                 `json:"id"`
	Filename   string                 `json:"filename"`
	Size       int64                  `json:"size"`
	UploadedAt time.Time              `json:"uploaded_at"`
	Header     model.Header           `json:"header"`
	Rows       int                    `json:"rows"`
	Curves     []curveView            `json:"curves"`
	History    []model.ProcessingStep `json:"history"`
	QC         *model.QCResults       `json:"qc,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	Depth      model.Samples          `json:"depth,omitempty"`
}

type curveView struct {
	Mnemonic    string           `json:"mnemonic"`
	Unit        string           `json:"unit"`
	Description string           `json:"description"`
	Category    model.Category   `json:"category"`
	Stats       model.CurveStats `json:"stats"`
	Values      model.Samples    `json:"values,omitempty"`
}

func newFileView(f *model.File, withData bool) fileView {
	ds := f.Processed
	v := fileView{
		ID:         f.ID,
		Filename:   f.Filename,
		Size:       f.Size,
		UploadedAt: f.UploadedAt,
		Header:     ds.Header,
		Rows:       ds.Len(),
		Curves:     make([]curveView, len(ds.Curves)),
		History:    f.History,
		QC:         f.QC,
	}
	if v.History == nil {
		v.History = []model.ProcessingStep{}
	}
	for i, c := range ds.Curves {
		v.Curves[i] = curveView{Mnemonic: c.Mnemonic, Unit: c.Unit, Description: c.Description, Category: c.Category, Stats: c.Stats}
		if withData {
			v.Curves[i].Values = c.Values
		}
	}
	if withData {
		v.Depth = ds.Depth
	}
	return v
}

// runView is a pipeline result without the file payload.
type runView struct {
	Success          bool                   `json:"success"`
	RunID            string                 `json:"run_id"`
	FileID           string                 `json:"file_id"`
	InitialQC        *model.QCResults       `json:"initial_qc,omitempty"`
	FinalQC          *model.QCResults       `json:"final_qc,omitempty"`
	History          []model.ProcessingStep `json:"history"`
	Warnings         []string               `json:"warnings"`
	Errors           []string               `json:"errors"`
	ExecutionTimeMs  int64                  `json:"execution_time_ms"`
	MemoryDeltaBytes int64                  `json:"memory_delta_bytes"`
}

func newRunView(fileID string, res *pipeline.Result) runView {
	return runView{
		Success:          res.Success,
		RunID:            res.RunID,
		FileID:           fileID,
		InitialQC:        res.InitialQC,
		FinalQC:          res.FinalQC,
		History:          res.History,
		Warnings:         res.Warnings,
		Errors:           res.Errors,
		ExecutionTimeMs:  res.ExecutionTimeMs,
		MemoryDeltaBytes: res.MemoryDeltaBytes,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.files.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"files":    st.Entries,
		"hit_rate": st.HitRate,
	})
}

// handleUpload accepts either a multipart form with a "file" field or a raw
// body named by the filename query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		// One extra kilobyte leaves room for multipart framing.
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<10)
	}

	filename, content, err := readUpload(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, pipeline.ErrFileTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, warnings, err := s.pipe.Parse(r.Context(), pipeline.Input{FileID: s.newID(), Filename: filename, Content: content})
	switch {
	case errors.Is(err, pipeline.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, pipeline.ErrEmptyInput), errors.Is(err, pipeline.ErrUnparseable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.files.Set(f.ID, f)
	zap.L().Info("api: file uploaded",
		zap.String("file_id", f.ID),
		zap.String("filename", f.Filename),
		zap.Int("curves", len(f.Processed.Curves)),
		zap.Int("rows", f.Processed.Len()),
	)

	view := newFileView(f, false)
	view.Warnings = warnings
	writeJSON(w, http.StatusCreated, view)
}

func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, eris.Wrap(err, "missing multipart field \"file\"")
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return path.Base(header.Filename), content, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	name := r.URL.Query().Get("filename")
	if name == "" {
		name = "upload.las"
	}
	return path.Base(name), content, nil
}

// file looks up the file named in the URL, writing a 404 when it is gone.
func (s *Server) file(w http.ResponseWriter, r *http.Request) (*model.File, bool) {
	id := chi.URLParam(r, "id")
	f, ok := s.files.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("file %s not found", id))
		return nil, false
	}
	return f, true
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, ok := s.file(w, r)
	if !ok {
		return
	}
	unlock := s.pipe.Locks().Lock(f.ID)
	view := newFileView(f, r.URL.Query().Get("include") == "data")
	unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	f, ok := s.file(w, r)
	if !ok {
		return
	}
	res := s.pipe.ProcessFile(r.Context(), f)
	s.files.Set(f.ID, f)
	writeJSON(w, http.StatusOK, newRunView(f.ID, res))
}

// decoder turns a request body into a single-operation request. An empty
// body selects the operation's defaults.
type decoder func(body []byte) (pipeline.Operation, error)

func decodeInto(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}

func decodeDenoise(body []byte) (pipeline.Operation, error) {
	opts := processor.DefaultDenoiseOptions()
	if err := decodeInto(body, &opts); err != nil {
		return pipeline.Operation{}, err
	}
	return pipeline.Operation{Denoise: &opts}, opts.Validate()
}

func decodeDespike(body []byte) (pipeline.Operation, error) {
	opts := processor.DefaultDespikeOptions()
	if err := decodeInto(body, &opts); err != nil {
		return pipeline.Operation{}, err
	}
	return pipeline.Operation{Despike: &opts}, opts.Validate()
}

func decodeBaseline(body []byte) (pipeline.Operation, error) {
	opts := processor.DefaultBaselineOptions()
	if err := decodeInto(body, &opts); err != nil {
		return pipeline.Operation{}, err
	}
	return pipeline.Operation{Baseline: &opts}, opts.Validate()
}

func decodeFillGaps(body []byte) (pipeline.Operation, error) {
	var opts processor.FillGapsOptions
	if err := decodeInto(body, &opts); err != nil {
		return pipeline.Operation{}, err
	}
	return pipeline.Operation{FillGaps: &opts}, nil
}

func (s *Server) handleOperation(decode decoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := s.file(w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		op, err := decode(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := s.pipe.Apply(r.Context(), f, op)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.files.Set(f.ID, f)
		writeJSON(w, http.StatusOK, newRunView(f.ID, res))
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	f, ok := s.file(w, r)
	if !ok {
		return
	}
	s.pipe.Reset(f)
	unlock := s.pipe.Locks().Lock(f.ID)
	view := newFileView(f, false)
	unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	f, ok := s.file(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Quality(f))
}

func (s *Server) handleCertify(w http.ResponseWriter, r *http.Request) {
	f, ok := s.file(w, r)
	if !ok {
		return
	}
	cert, err := s.issuer.Issue(s.pipe.CertifyRequest(f))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.certs.Set(cert.ID, cert)
	if s.store != nil {
		if err := s.store.SaveCertificate(r.Context(), cert); err != nil {
			zap.L().Warn("api: failed to persist certificate", zap.String("certificate_id", cert.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, cert)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, ok := s.file(w, r)
	if !ok {
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "las"
	}

	base := strings.TrimSuffix(f.Filename, path.Ext(f.Filename))
	if base == "" {
		base = f.ID
	}

	var (
		buf         bytes.Buffer
		contentType string
		name        string
		err         error
	)
	unlock := s.pipe.Locks().Lock(f.ID)
	switch format {
	case "las":
		contentType, name = "text/plain; charset=utf-8", base+"_processed.las"
		err = las.Write(&buf, f.Processed)
	case "xlsx":
		contentType, name = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", base+"_report.xlsx"
		err = report.WriteWorkbook(&buf, f, nil)
	default:
		unlock()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}
	unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("api: write export", zap.String("file_id", f.ID), zap.Error(err))
	}
}

func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if cert, ok := s.certs.Get(id); ok {
		writeJSON(w, http.StatusOK, cert)
		return
	}
	if s.store != nil {
		cert, err := s.store.GetCertificate(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, cert)
			return
		case !errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("certificate %s not found", id))
}
