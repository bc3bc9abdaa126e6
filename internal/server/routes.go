package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/course"
)

type queryRequest struct {
	Query     *string `json:"query"`
	SessionID string  `json:"session_id"`
}

type queryResponse struct {
	Answer     string          `json:"answer"`
	AnswerHTML string          `json:"answer_html"`
	Sources    []course.Source `json:"sources"`
	SessionID  string          `json:"session_id"`
}

type resetRequest struct {
	SessionID *string `json:"session_id"`
}

type resetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.Query == nil {
		writeError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}

	ans, err := s.backend.Query(r.Context(), *req.Query, req.SessionID)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:     ans.Answer,
		AnswerHTML: renderMarkdown(ans.Answer),
		Sources:    ans.Sources,
		SessionID:  ans.SessionID,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == nil {
		writeError(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}

	if err := s.backend.ResetSession(r.Context(), *req.SessionID); err != nil {
		s.logger.Error("session reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resetResponse{
		Status:  "success",
		Message: "Session cleared successfully",
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.backend.CourseAnalytics(r.Context())
	if err != nil {
		s.logger.Error("course analytics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, coursesResponse{
		TotalCourses: analytics.TotalCourses,
		CourseTitles: analytics.CourseTitles,
	})
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
