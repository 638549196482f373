// Package httpapi exposes the REST handlers and translates HTTP requests into
// the polling service.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evercare/livepoll/internal/app/feed"
	"github.com/evercare/livepoll/internal/app/polling"
	"github.com/evercare/livepoll/internal/domain"
	"github.com/evercare/livepoll/internal/platform/metrics"
)

// API bundles the HTTP handlers bound to the polling service and the live feed hub.
type API struct {
	service domain.PollingService
	hub     *feed.Hub
	logger  *slog.Logger
}

func New(service domain.PollingService, hub *feed.Hub, logger *slog.Logger) *API {
	return &API{service: service, hub: hub, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	// Routes stay centralized so tests and both binaries can reuse them.
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/polls", a.handlePolls)
	mux.HandleFunc("/polls/", a.handlePollSubpaths)
	mux.HandleFunc("/responses", a.handleResponses)
	mux.HandleFunc("/admin/dashboard", a.handleDashboard)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handlePolls(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPoll(w, r)
	case http.MethodGet:
		a.listPolls(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) handlePollSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/polls/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		a.getPoll(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		a.deletePoll(w, r, domain.PollID(parts[0]))
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPut:
		a.updateStatus(w, r, domain.PollID(parts[0]))
	case len(parts) == 2 && parts[1] == "results" && r.Method == http.MethodGet:
		a.getResults(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "live" && r.Method == http.MethodGet:
		a.streamLive(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

type questionRequest struct {
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
}

type createPollRequest struct {
	AdminID              string            `json:"adminId"`
	Title                string            `json:"title"`
	ChartType            string            `json:"chartType"`
	AllowViewResults     bool              `json:"allowViewResults"`
	RequiredDemographics []string          `json:"requiredDemographics"`
	Questions            []questionRequest `json:"questions"`
}

func (a *API) createPoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.logger.Warn("invalid create poll payload", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	poll := domain.Poll{
		Title:                req.Title,
		ChartType:            domain.ChartType(req.ChartType),
		AllowViewResults:     req.AllowViewResults,
		RequiredDemographics: req.RequiredDemographics,
	}
	for i, q := range req.Questions {
		question := domain.Question{Text: q.Text, Order: i + 1}
		for j, text := range q.Answers {
			question.Answers = append(question.Answers, domain.Answer{Text: text, Order: j + 1})
		}
		poll.Questions = append(poll.Questions, question)
	}

	created, err := a.service.CreatePoll(r.Context(), domain.AdminID(req.AdminID), poll)
	if err != nil {
		a.logger.Warn("failed to create poll", "err", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
	a.logger.Info("poll created", "poll", created.Code, "admin", req.AdminID)
}

func (a *API) listPolls(w http.ResponseWriter, r *http.Request) {
	adminID := domain.AdminID(r.URL.Query().Get("admin_id"))
	polls, err := a.service.ListPolls(r.Context(), adminID)
	if err != nil {
		a.logger.Error("failed to list polls", "err", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, polls)
}

func (a *API) getPoll(w http.ResponseWriter, r *http.Request, code string) {
	poll, err := a.service.GetPollByCode(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, poll)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *API) updateStatus(w http.ResponseWriter, r *http.Request, id domain.PollID) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	poll, err := a.service.UpdatePollStatus(r.Context(), id, domain.PollStatus(req.Status))
	if err != nil {
		a.logger.Warn("failed to update poll status", "poll", id, "err", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, poll)
}

func (a *API) deletePoll(w http.ResponseWriter, r *http.Request, id domain.PollID) {
	if err := a.service.DeletePoll(r.Context(), id); err != nil {
		a.logger.Warn("failed to delete poll", "poll", id, "err", err)
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminID := domain.AdminID(r.URL.Query().Get("admin_id"))
	summary, err := a.service.Dashboard(r.Context(), adminID)
	if err != nil {
		a.logger.Error("failed to build dashboard", "err", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type submitRequest struct {
	PollCode         string                `json:"pollCode"`
	Answers          []domain.AnswerChoice `json:"answers"`
	RespondentName   string                `json:"respondentName"`
	RespondentGender string                `json:"respondentGender"`
	RespondentAge    *int                  `json:"respondentAge"`
}

func (a *API) handleResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveSubmission("invalid_payload")
		a.logger.Warn("invalid submission payload", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	sub := domain.Submission{
		PollCode: req.PollCode,
		Answers:  req.Answers,
		Demographics: domain.Demographics{
			Name:   req.RespondentName,
			Gender: req.RespondentGender,
			Age:    req.RespondentAge,
		},
		OriginIP:  r.Header.Get("X-Forwarded-For"),
		UserAgent: r.UserAgent(),
	}
	if sub.OriginIP == "" {
		sub.OriginIP = strings.Split(r.RemoteAddr, ":")[0]
	}

	if err := a.service.SubmitResponse(r.Context(), sub); err != nil {
		status := statusFromError(err)
		metrics.ObserveSubmission(status)
		a.logger.Warn("submission rejected", "poll", req.PollCode, "status", status, "err", err)
		respondError(w, err)
		return
	}

	metrics.ObserveSubmission("accepted")
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	a.logger.Info("submission accepted", "poll", req.PollCode, "answers", len(req.Answers))
}

func (a *API) getResults(w http.ResponseWriter, r *http.Request, code string) {
	results, err := a.service.GetResults(r.Context(), code)
	if err != nil {
		a.logger.Error("failed to fetch results", "poll", code, "err", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (a *API) streamLive(w http.ResponseWriter, r *http.Request, code string) {
	ServeLiveFeed(a.hub, a.logger)(w, r, code)
}

// ServeLiveFeed streams result envelopes for one poll over SSE. Shared by the
// api and relay binaries.
func ServeLiveFeed(hub *feed.Hub, logger *slog.Logger) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, pollCode string) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		updates, cancel := hub.Subscribe(pollCode)
		defer cancel()

		logger.Info("live feed subscriber connected", "poll", pollCode)
		for {
			select {
			case <-r.Context().Done():
				logger.Info("live feed subscriber disconnected", "poll", pollCode)
				return
			case payload, ok := <-updates:
				if !ok {
					return
				}
				if _, err := w.Write([]byte("data: ")); err != nil {
					return
				}
				if _, err := w.Write(payload); err != nil {
					return
				}
				if _, err := w.Write([]byte("\n\n")); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missingFields,omitempty"`
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorResponse{Error: err.Error()}

	if ve, ok := domain.AsValidationError(err); ok {
		status = http.StatusBadRequest
		body.MissingFields = ve.MissingFields
	} else {
		switch {
		case errors.Is(err, polling.ErrInvalidPoll),
			errors.Is(err, polling.ErrEmptySubmission),
			errors.Is(err, polling.ErrInvalidStatus):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrPollClosed):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrRateLimited):
			status = http.StatusTooManyRequests
		}
	}

	respondJSON(w, status, body)
}

func statusFromError(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrPollClosed):
		return "closed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, polling.ErrEmptySubmission):
		return "invalid"
	default:
		if _, ok := domain.AsValidationError(err); ok {
			return "validation"
		}
		return "error"
	}
}
