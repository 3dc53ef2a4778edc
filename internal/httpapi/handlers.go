package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MimeLyc/novel-chapter-translator/internal/jobs"
	"github.com/MimeLyc/novel-chapter-translator/internal/service"
)

type createJobRequest struct {
	WorkID         string  `json:"work_id"`
	BatchPlan      [][]int `json:"batch_plan,omitempty"`
	ChapterNumbers []int   `json:"chapter_numbers,omitempty"`
	BatchSize      int     `json:"batch_size,omitempty"`
}

// plan resolves the request into a batch plan: an explicit plan wins,
// otherwise chapter numbers are grouped into batches of batch_size.
func (r createJobRequest) plan() jobs.BatchPlan {
	if len(r.BatchPlan) > 0 {
		return jobs.BatchPlan(r.BatchPlan)
	}
	size := r.BatchSize
	if size <= 0 {
		size = 1
	}
	ret := make(jobs.BatchPlan, 0, (len(r.ChapterNumbers)+size-1)/size)
	for start := 0; start < len(r.ChapterNumbers); start += size {
		end := start + size
		if end > len(r.ChapterNumbers) {
			end = len(r.ChapterNumbers)
		}
		ret = append(ret, r.ChapterNumbers[start:end])
	}
	return ret
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.WorkID == "" {
		writeError(w, http.StatusBadRequest, "work_id is required")
		return
	}
	if len(req.BatchPlan) == 0 && len(req.ChapterNumbers) == 0 {
		writeError(w, http.StatusBadRequest, "batch_plan or chapter_numbers is required")
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), req.WorkID, req.plan())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActiveJob):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidPlan), errors.Is(err, service.ErrUnknownWork):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// handleJobByID serves /api/jobs/{id} and the pause/resume/cancel controls
// under it.
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID, action, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job, err := s.jobs.GetJob(r.Context(), jobID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if job == nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)

	case "pause":
		s.handleJobControl(w, r, jobID, s.jobs.RequestPause)
	case "resume":
		s.handleJobControl(w, r, jobID, s.jobs.Resume)
	case "cancel":
		s.handleJobControl(w, r, jobID, s.jobs.Cancel)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleJobControl(w http.ResponseWriter, r *http.Request, jobID string, control func(ctx context.Context, jobID string) (bool, error)) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ok, err := control(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "job is not in a state that allows this")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.ticker.Tick(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
