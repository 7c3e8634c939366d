// ABOUTME: HTTP handlers for the generation API and the run history pages.
// ABOUTME: Maps pipeline stage failures to structured JSON error responses.
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/conjure/export"
	"github.com/2389-research/conjure/pipeline"
	"github.com/2389-research/conjure/runstore"
)

// generateRequest is the JSON body accepted by POST /api/generations.
type generateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Steps          int    `json:"steps,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Format         string `json:"format,omitempty"`
	CallerID       string `json:"caller_id,omitempty"`
}

// errorResponse is the uniform JSON error body. Stage is set when the failure
// occurred inside the pipeline rather than at the request boundary.
type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encoding response: %v", err)
	}
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGenerate runs the full pipeline for a prompt. The request blocks
// until the run completes or fails; generation against remote services can
// take tens of seconds.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	callerID := strings.TrimSpace(req.CallerID)
	if callerID == "" {
		callerID = s.cfg.CallerID
	}

	rec, err := s.orchestrator.Run(r.Context(), pipeline.Request{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.Steps,
		Width:          req.Width,
		Height:         req.Height,
		Format:         req.Format,
	}, callerID)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			writeJSON(w, http.StatusBadGateway, errorResponse{
				Error: stageErr.Error(),
				Stage: string(stageErr.Stage),
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// handleListRuns returns the run history for a caller, newest first.
// The caller query parameter overrides the server's default identity.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	callerID := strings.TrimSpace(r.URL.Query().Get("caller"))
	if callerID == "" {
		callerID = s.cfg.CallerID
	}

	runs, err := s.store.ListRunsForCaller(callerID)
	if err != nil {
		log.Printf("web: listing runs caller=%s err=%v", callerID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []runstore.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run record. The format query parameter selects the
// representation: json (default), yaml, or markdown.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	rec, ok, err := s.store.GetRun(runID)
	if err != nil {
		log.Printf("web: fetching run=%s err=%v", runID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to fetch run"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, rec)
	case "yaml":
		doc, yerr := export.YAML(rec)
		if yerr != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to export run"})
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(doc))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.Markdown(rec)))
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported format"})
	}
}

// handleSearch returns runs whose prompt or enhanced prompt contains the
// q query parameter.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "q parameter must not be empty"})
		return
	}

	runs, err := s.store.SearchRuns(query)
	if err != nil {
		log.Printf("web: searching runs q=%q err=%v", query, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to search runs"})
		return
	}
	if runs == nil {
		runs = []runstore.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleIndex renders the landing page with the prompt form and recent runs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRunsForCaller(s.cfg.CallerID)
	if err != nil {
		log.Printf("web: listing runs for index: %v", err)
	}

	data := PageData{
		Title: "Conjure",
		Runs:  runs,
	}
	if err := s.templates.Render(w, "index.html", data); err != nil {
		log.Printf("web: rendering index: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleRunDetail renders a single run page with the image preview, model
// download link, and the Markdown report.
func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	rec, ok, err := s.store.GetRun(runID)
	if err != nil {
		log.Printf("web: fetching run=%s err=%v", runID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	data := PageData{
		Title:    "Run " + rec.RunID,
		Run:      rec,
		ImageURL: "/static/images/" + filepath.Base(rec.ImagePath),
		ModelURL: "/static/models/" + filepath.Base(rec.ModelPath),
		Report:   export.Markdown(rec),
	}
	if err := s.templates.Render(w, "run_detail.html", data); err != nil {
		log.Printf("web: rendering run_detail: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
