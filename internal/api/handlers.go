package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/dispatch"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

var validate = validator.New()

type categoryPayload struct {
	ID            int64    `json:"id" validate:"required,gt=0"`
	Name          string   `json:"name" validate:"required"`
	ExcludeTitles []string `json:"exclude_titles"`
}

type createTopicsRequest struct {
	MinTopics  int               `json:"min_topics" validate:"required,gt=0"`
	MaxTopics  int               `json:"max_topics" validate:"required,gtefield=MinTopics"`
	TimeWindow string            `json:"time_window"`
	Categories []categoryPayload `json:"categories" validate:"required,min=1,dive"`
}

type createTopicRequest struct {
	CategoryID    int64    `json:"category_id" validate:"required,gt=0"`
	CategoryName  string   `json:"category_name" validate:"required_without=Prompt"`
	MinTopics     int      `json:"min_topics"`
	MaxTopics     int      `json:"max_topics"`
	TimeWindow    string   `json:"time_window"`
	ExcludeTitles []string `json:"exclude_titles"`
	Prompt        string   `json:"prompt"`
}

type retryTopicRequest struct {
	JobID         int64    `json:"job_id" validate:"required,gt=0"`
	CategoryName  string   `json:"category_name"`
	MinTopics     int      `json:"min_topics"`
	MaxTopics     int      `json:"max_topics"`
	TimeWindow    string   `json:"time_window"`
	ExcludeTitles []string `json:"exclude_titles"`
	Prompt        string   `json:"prompt"`
}

type createArticleRequest struct {
	CategoryID int64    `json:"category_id" validate:"required,gt=0"`
	TopicID    int64    `json:"topic_id"`
	Title      string   `json:"title" validate:"required"`
	Summary    string   `json:"summary"`
	Sources    []string `json:"sources"`
	Trigger    string   `json:"trigger" validate:"omitempty,oneof=cron manual"`
}

type createManualArticleRequest struct {
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
	Prompt     string `json:"prompt" validate:"required"`
	UserID     string `json:"user_id"`
}

type ackResponse struct {
	Message string         `json:"message"`
	Jobs    []dispatch.Ack `json:"jobs,omitempty"`
	JobID   int64          `json:"job_id,omitempty"`
}

type jobPayload struct {
	ID             int64     `json:"id"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	Trigger        string    `json:"trigger"`
	CategoryID     int64     `json:"category_id"`
	Error          string    `json:"error,omitempty"`
	TotalItems     int64     `json:"total_items"`
	CompletedItems int64     `json:"completed_items"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// decodePost enforces POST, parses the JSON body, and runs validation tags.
// Returns false after writing the error response.
func (s *Server) decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handleCreateTopics(w http.ResponseWriter, r *http.Request) {
	var req createTopicsRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	spec := dispatch.TopicsRequest{
		MinTopics:  req.MinTopics,
		MaxTopics:  req.MaxTopics,
		TimeWindow: req.TimeWindow,
	}
	for _, category := range req.Categories {
		spec.Categories = append(spec.Categories, dispatch.CategorySpec{
			ID:            category.ID,
			Name:          category.Name,
			ExcludeTitles: category.ExcludeTitles,
		})
	}

	acks, err := s.dispatcher.DispatchTopics(r.Context(), spec)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ackResponse{Message: successMessage, Jobs: acks})
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	ack, err := s.dispatcher.DispatchTopic(r.Context(), dispatch.TopicRequest{
		CategoryID:    req.CategoryID,
		CategoryName:  req.CategoryName,
		MinTopics:     req.MinTopics,
		MaxTopics:     req.MaxTopics,
		TimeWindow:    req.TimeWindow,
		ExcludeTitles: req.ExcludeTitles,
		Prompt:        req.Prompt,
		Trigger:       store.TriggerManual,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ackResponse{Message: successMessage, JobID: ack.JobID})
}

func (s *Server) handleRetryTopic(w http.ResponseWriter, r *http.Request) {
	var req retryTopicRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	ack, err := s.dispatcher.RetryTopic(r.Context(), req.JobID, dispatch.TopicRequest{
		CategoryName:  req.CategoryName,
		MinTopics:     req.MinTopics,
		MaxTopics:     req.MaxTopics,
		TimeWindow:    req.TimeWindow,
		ExcludeTitles: req.ExcludeTitles,
		Prompt:        req.Prompt,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ackResponse{Message: successMessage, JobID: ack.JobID})
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	trigger := store.TriggerCron
	if req.Trigger != "" {
		parsed, err := store.ParseTrigger(req.Trigger)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		trigger = parsed
	}

	ack, err := s.dispatcher.DispatchArticle(r.Context(), dispatch.ArticleRequest{
		CategoryID: req.CategoryID,
		TopicID:    req.TopicID,
		Title:      req.Title,
		Summary:    req.Summary,
		Sources:    req.Sources,
		Trigger:    trigger,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ackResponse{Message: successMessage, JobID: ack.JobID})
}

func (s *Server) handleCreateManualArticle(w http.ResponseWriter, r *http.Request) {
	var req createManualArticleRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	ack, err := s.dispatcher.DispatchManualArticle(r.Context(), dispatch.ManualArticleRequest{
		CategoryID: req.CategoryID,
		Prompt:     req.Prompt,
		UserID:     req.UserID,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ackResponse{Message: successMessage, JobID: ack.JobID})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var statuses []store.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, err := store.ParseStatus(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.store.ListJobs(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]jobPayload, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, toJobPayload(job))
	}
	s.writeJSON(w, http.StatusOK, map[string][]jobPayload{"jobs": payload})
}

func (s *Server) handleJobItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/posts/jobs/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]jobPayload{"job": toJobPayload(job)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health := map[string]string{"status": "ok", "store": "ok", "broker": "ok"}
	code := http.StatusOK
	if err := s.store.Health(r.Context()); err != nil {
		health["status"] = "degraded"
		health["store"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.broker.Ping(r.Context()); err != nil {
		health["status"] = "degraded"
		health["broker"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

func toJobPayload(job *store.Job) jobPayload {
	return jobPayload{
		ID:             job.ID,
		Kind:           string(job.Kind),
		Status:         string(job.Status),
		Trigger:        string(job.Trigger),
		CategoryID:     job.CategoryID,
		Error:          job.ErrorMessage,
		TotalItems:     job.TotalItems,
		CompletedItems: job.CompletedItems,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}
