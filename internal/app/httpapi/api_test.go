package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evercare/livepoll/internal/app/feed"
	"github.com/evercare/livepoll/internal/app/polling"
	"github.com/evercare/livepoll/internal/domain"
)

type MockPollingService struct {
	mock.Mock
}

func (m *MockPollingService) CreatePoll(ctx context.Context, adminID domain.AdminID, poll domain.Poll) (domain.Poll, error) {
	args := m.Called(ctx, adminID, poll)
	return args.Get(0).(domain.Poll), args.Error(1)
}

func (m *MockPollingService) GetPollByCode(ctx context.Context, code string) (domain.Poll, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.Poll), args.Error(1)
}

func (m *MockPollingService) ListPolls(ctx context.Context, adminID domain.AdminID) ([]domain.Poll, error) {
	args := m.Called(ctx, adminID)
	return args.Get(0).([]domain.Poll), args.Error(1)
}

func (m *MockPollingService) UpdatePollStatus(ctx context.Context, id domain.PollID, status domain.PollStatus) (domain.Poll, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(domain.Poll), args.Error(1)
}

func (m *MockPollingService) DeletePoll(ctx context.Context, id domain.PollID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPollingService) Dashboard(ctx context.Context, adminID domain.AdminID) (domain.DashboardSummary, error) {
	args := m.Called(ctx, adminID)
	return args.Get(0).(domain.DashboardSummary), args.Error(1)
}

func (m *MockPollingService) SubmitResponse(ctx context.Context, sub domain.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockPollingService) GetResults(ctx context.Context, pollCode string) (domain.PollResults, error) {
	args := m.Called(ctx, pollCode)
	return args.Get(0).(domain.PollResults), args.Error(1)
}

func setupAPI(t *testing.T) (*http.ServeMux, *MockPollingService) {
	mockService := new(MockPollingService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))
	api := New(mockService, feed.NewHub(), logger)

	mux := http.NewServeMux()
	api.Register(mux)

	t.Cleanup(func() {
		mockService.AssertExpectations(t)
	})

	return mux, mockService
}

func TestHandleHealthz(t *testing.T) {
	mux, _ := setupAPI(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCreatePoll_Success(t *testing.T) {
	mux, mockService := setupAPI(t)

	created := domain.Poll{ID: "01HXXXXXXXXXXXXXXXXXXXXX", Code: "poll-abc123", Title: "Lunch"}
	mockService.On("CreatePoll", mock.Anything, domain.AdminID("admin-1"), mock.Anything).Return(created, nil)

	body := `{
		"adminId": "admin-1",
		"title": "Lunch",
		"chartType": "PIE",
		"questions": [{"text": "Cuisine?", "answers": ["Italian", "Japanese"]}]
	}`
	req := httptest.NewRequest("POST", "/polls", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var got domain.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "poll-abc123", got.Code)
}

func TestCreatePoll_InvalidStructure(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("CreatePoll", mock.Anything, domain.AdminID("admin-1"), mock.Anything).
		Return(domain.Poll{}, polling.ErrInvalidPoll)

	body := `{"adminId": "admin-1", "title": ""}`
	req := httptest.NewRequest("POST", "/polls", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePoll_MalformedJSON(t *testing.T) {
	mux, _ := setupAPI(t)

	req := httptest.NewRequest("POST", "/polls", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPoll_Success(t *testing.T) {
	mux, mockService := setupAPI(t)

	poll := domain.Poll{Code: "poll-abc123", Title: "Lunch"}
	mockService.On("GetPollByCode", mock.Anything, "poll-abc123").Return(poll, nil)

	req := httptest.NewRequest("GET", "/polls/poll-abc123", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Lunch", got.Title)
}

func TestGetPoll_NotFound(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("GetPollByCode", mock.Anything, "poll-missing").Return(domain.Poll{}, domain.ErrNotFound)

	req := httptest.NewRequest("GET", "/polls/poll-missing", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatus_Success(t *testing.T) {
	mux, mockService := setupAPI(t)

	updated := domain.Poll{ID: "poll-id-1", Status: domain.PollStatusStopped}
	mockService.On("UpdatePollStatus", mock.Anything, domain.PollID("poll-id-1"), domain.PollStatusStopped).
		Return(updated, nil)

	req := httptest.NewRequest("PUT", "/polls/poll-id-1/status", strings.NewReader(`{"status":"STOPPED"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.PollStatusStopped, got.Status)
}

func TestDeletePoll_Success(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("DeletePoll", mock.Anything, domain.PollID("poll-id-1")).Return(nil)

	req := httptest.NewRequest("DELETE", "/polls/poll-id-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDashboard_Success(t *testing.T) {
	mux, mockService := setupAPI(t)

	summary := domain.DashboardSummary{TotalPolls: 4, ActivePolls: 3, TotalQuestions: 9}
	mockService.On("Dashboard", mock.Anything, domain.AdminID("admin-1")).Return(summary, nil)

	req := httptest.NewRequest("GET", "/admin/dashboard?admin_id=admin-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.DashboardSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(4), got.TotalPolls)
	assert.Equal(t, int64(3), got.ActivePolls)
}

func TestSubmitResponse_Accepted(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("SubmitResponse", mock.Anything, mock.MatchedBy(func(sub domain.Submission) bool {
		return sub.PollCode == "poll-abc123" &&
			len(sub.Answers) == 1 &&
			sub.Demographics.Age != nil && *sub.Demographics.Age == 28 &&
			sub.OriginIP != "" &&
			sub.UserAgent == "test-agent"
	})).Return(nil)

	body := `{
		"pollCode": "poll-abc123",
		"answers": [{"questionId": "q1", "answerId": "a1"}],
		"respondentAge": 28
	}`
	req := httptest.NewRequest("POST", "/responses", strings.NewReader(body))
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSubmitResponse_ForwardedForWins(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("SubmitResponse", mock.Anything, mock.MatchedBy(func(sub domain.Submission) bool {
		return sub.OriginIP == "203.0.113.7"
	})).Return(nil)

	body := `{"pollCode": "poll-abc123", "answers": [{"questionId": "q1", "answerId": "a1"}]}`
	req := httptest.NewRequest("POST", "/responses", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSubmitResponse_ValidationErrorListsFields(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("SubmitResponse", mock.Anything, mock.Anything).
		Return(&domain.ValidationError{MissingFields: []string{"name", "age"}})

	body := `{"pollCode": "poll-abc123", "answers": [{"questionId": "q1", "answerId": "a1"}]}`
	req := httptest.NewRequest("POST", "/responses", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error         string   `json:"error"`
		MissingFields []string `json:"missingFields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"name", "age"}, resp.MissingFields)
}

func TestSubmitResponse_ClosedPoll(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("SubmitResponse", mock.Anything, mock.Anything).Return(domain.ErrPollClosed)

	body := `{"pollCode": "poll-abc123", "answers": [{"questionId": "q1", "answerId": "a1"}]}`
	req := httptest.NewRequest("POST", "/responses", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitResponse_RateLimited(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("SubmitResponse", mock.Anything, mock.Anything).Return(domain.ErrRateLimited)

	body := `{"pollCode": "poll-abc123", "answers": [{"questionId": "q1", "answerId": "a1"}]}`
	req := httptest.NewRequest("POST", "/responses", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSubmitResponse_MethodNotAllowed(t *testing.T) {
	mux, _ := setupAPI(t)

	req := httptest.NewRequest("GET", "/responses", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGetResults_Success(t *testing.T) {
	mux, mockService := setupAPI(t)

	results := domain.PollResults{
		PollID:         "poll-id-1",
		Title:          "Lunch",
		TotalResponses: 3,
		QuestionResults: []domain.QuestionResult{{
			QuestionID:   "q1",
			QuestionText: "Cuisine?",
			AnswerResults: []domain.AnswerResult{
				{AnswerID: "a1", ResponseCount: 2, Percentage: 66.66666666666666},
				{AnswerID: "a2", ResponseCount: 1, Percentage: 33.33333333333333},
			},
		}},
	}
	mockService.On("GetResults", mock.Anything, "poll-abc123").Return(results, nil)

	req := httptest.NewRequest("GET", "/polls/poll-abc123/results", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.PollResults
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(3), got.TotalResponses)
	require.Len(t, got.QuestionResults, 1)
	assert.InDelta(t, 66.67, got.QuestionResults[0].AnswerResults[0].Percentage, 0.01)
}

func TestGetResults_NotFound(t *testing.T) {
	mux, mockService := setupAPI(t)

	mockService.On("GetResults", mock.Anything, "poll-missing").
		Return(domain.PollResults{}, domain.ErrNotFound)

	req := httptest.NewRequest("GET", "/polls/poll-missing/results", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownPollSubpath(t *testing.T) {
	mux, _ := setupAPI(t)

	req := httptest.NewRequest("GET", "/polls/poll-abc123/unknown", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
