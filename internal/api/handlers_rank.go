package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/ranking"
	"github.com/dgallion1/docinsight/internal/report"
)

// maxRankFiles caps the documents accepted by one ranking request.
const maxRankFiles = 20

// handleOutline extracts the outline of one uploaded document synchronously.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	src, status, err := s.readUpload(fhs[0])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	res := s.orchestrator.Runner().Outline(r.Context(), []pipeline.Source{src})
	if len(res.Documents) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = report.Encode(w, map[string]any{
			"error":   "document could not be outlined",
			"skipped": res.Skipped,
			"run_id":  res.RunID,
		})
		return
	}

	out := report.NewOutline(res.Documents[0])
	if err := report.Validate(report.SchemaOutline, out); err != nil {
		s.log.Error("outline failed schema validation", "run_id", res.RunID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = report.Encode(w, out)
}

// handleRank queues a ranking job over the uploaded documents.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*maxRankFiles+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	query := doctree.PersonaQuery{
		Persona: strings.TrimSpace(r.FormValue("persona")),
		Job:     strings.TrimSpace(r.FormValue("job")),
	}
	if query.Persona == "" || query.Job == "" {
		jsonError(w, "persona and job are required", http.StatusBadRequest)
		return
	}

	topK := s.cfg.TopK
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > ranking.MaxTopK {
			jsonError(w, fmt.Sprintf("top_k must be between 1 and %d", ranking.MaxTopK), http.StatusBadRequest)
			return
		}
		topK = n
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > maxRankFiles {
		jsonError(w, fmt.Sprintf("at most %d files per request", maxRankFiles), http.StatusBadRequest)
		return
	}

	var (
		sources  []pipeline.Source
		rejected []map[string]any
	)
	for _, fh := range files {
		src, _, err := s.readUpload(fh)
		if err != nil {
			rejected = append(rejected, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": "no usable files", "rejected": rejected})
		return
	}

	job := pipeline.NewJob(uuid.NewString(), sources, query, topK)
	for _, rj := range rejected {
		job.AddError(fmt.Sprintf("%s: %s", rj["filename"], rj["error"]))
	}
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    snap.ID,
		"status":    snap.Status,
		"filenames": snap.Filenames,
		"rejected":  rejected,
		"poll_url":  fmt.Sprintf("/api/rank/%s", snap.ID),
	})
}

func (s *Server) handleRankStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	body := map[string]any{"job": job.Snapshot()}
	if res := job.Result(); res != nil {
		body["result"] = report.NewRanking(res)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = report.Encode(w, body)
}

// readUpload reads one multipart file into a Source. On failure it returns the HTTP
// status the error maps to.
func (s *Server) readUpload(fh *multipart.FileHeader) (pipeline.Source, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return pipeline.Source{}, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return pipeline.Source{}, http.StatusInternalServerError, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Source{}, http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return pipeline.Source{}, http.StatusRequestEntityTooLarge,
			fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return pipeline.Source{Name: filename, Data: data}, http.StatusOK, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
