// Package polling implements the poll lifecycle and the response submission flow:
// validation, persistence, tally increments, aggregation and result fan-out.
package polling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evercare/livepoll/internal/domain"
	"github.com/evercare/livepoll/internal/platform/ids"
)

var (
	ErrInvalidPoll     = errors.New("invalid poll")
	ErrEmptySubmission = errors.New("submission has no answers")
	ErrInvalidStatus   = errors.New("invalid poll status")
)

// Service orchestrates submissions and delegates storage and fan-out to ports.
type Service struct {
	polls         domain.PollRepository
	responses     domain.ResponseRepository
	tallies       domain.TallyStore
	submissions   domain.SubmissionStore
	publisher     domain.ResultPublisher
	limiter       domain.RateLimiter
	clock         domain.Clock
	ids           *ids.Generator
	logger        *slog.Logger
	shareLinkBase string
	submitTimeout time.Duration
}

func NewService(
	polls domain.PollRepository,
	responses domain.ResponseRepository,
	tallies domain.TallyStore,
	submissions domain.SubmissionStore,
	publisher domain.ResultPublisher,
	limiter domain.RateLimiter,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
	shareLinkBase string,
	submitTimeout time.Duration,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		polls:         polls,
		responses:     responses,
		tallies:       tallies,
		submissions:   submissions,
		publisher:     publisher,
		limiter:       limiter,
		clock:         clock,
		ids:           idsGen,
		logger:        logger,
		shareLinkBase: shareLinkBase,
		submitTimeout: submitTimeout,
	}
}

// CreatePoll validates and persists the whole aggregate. Question and answer
// structure is fixed from this point on; only the status may change later.
func (s *Service) CreatePoll(ctx context.Context, adminID domain.AdminID, poll domain.Poll) (domain.Poll, error) {
	if err := validatePoll(poll); err != nil {
		return domain.Poll{}, err
	}

	now := s.clock.Now()
	poll.ID = domain.PollID(s.ids.New())
	poll.AdminID = adminID
	poll.Code = s.newPollCode()
	poll.ShareLink = fmt.Sprintf("%s/%s", strings.TrimRight(s.shareLinkBase, "/"), poll.Code)
	poll.QRCode = fmt.Sprintf("qr_%s.png", poll.Code)
	poll.CreatedAt = now
	poll.UpdatedAt = now
	if poll.Status == "" {
		poll.Status = domain.PollStatusActive
	}
	if poll.ChartType == "" {
		poll.ChartType = domain.ChartTypePie
	}

	for qi := range poll.Questions {
		q := &poll.Questions[qi]
		q.ID = domain.QuestionID(s.ids.New())
		q.PollID = poll.ID
		if q.Order == 0 {
			q.Order = qi + 1
		}
		for ai := range q.Answers {
			a := &q.Answers[ai]
			a.ID = domain.AnswerID(s.ids.New())
			a.QuestionID = q.ID
			if a.Order == 0 {
				a.Order = ai + 1
			}
			a.ResponseCount = 0
		}
	}

	if err := s.polls.Create(ctx, poll); err != nil {
		return domain.Poll{}, err
	}

	return poll, nil
}

func (s *Service) GetPollByCode(ctx context.Context, code string) (domain.Poll, error) {
	return s.polls.FindByCode(ctx, code)
}

func (s *Service) ListPolls(ctx context.Context, adminID domain.AdminID) ([]domain.Poll, error) {
	return s.polls.ListByAdmin(ctx, adminID)
}

func (s *Service) UpdatePollStatus(ctx context.Context, id domain.PollID, status domain.PollStatus) (domain.Poll, error) {
	switch status {
	case domain.PollStatusActive, domain.PollStatusStopped, domain.PollStatusCompleted:
	default:
		return domain.Poll{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.polls.UpdateStatus(ctx, id, status); err != nil {
		return domain.Poll{}, err
	}
	return s.polls.FindByID(ctx, id)
}

func (s *Service) DeletePoll(ctx context.Context, id domain.PollID) error {
	return s.polls.Delete(ctx, id)
}

func (s *Service) Dashboard(ctx context.Context, adminID domain.AdminID) (domain.DashboardSummary, error) {
	totalPolls, err := s.polls.CountByAdmin(ctx, adminID, "")
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	activePolls, err := s.polls.CountByAdmin(ctx, adminID, domain.PollStatusActive)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	polls, err := s.polls.ListByAdmin(ctx, adminID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	var totalQuestions int64
	for _, p := range polls {
		totalQuestions += int64(len(p.Questions))
	}

	recent := polls
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return domain.DashboardSummary{
		TotalPolls:     totalPolls,
		TotalQuestions: totalQuestions,
		ActivePolls:    activePolls,
		RecentPolls:    recent,
	}, nil
}

// SubmitResponse runs the submission pipeline. The write (response rows plus
// tally increments) commits as one transaction under a bounded timeout; the
// snapshot publish that follows is fire-and-forget and can never fail the call.
// Retrying after a storage error is safe but not idempotent: there is no dedup
// key, so a duplicate retry double-counts.
func (s *Service) SubmitResponse(ctx context.Context, sub domain.Submission) error {
	if len(sub.Answers) == 0 {
		return ErrEmptySubmission
	}

	poll, err := s.polls.FindByCode(ctx, sub.PollCode)
	if err != nil {
		return err
	}

	if poll.Status != domain.PollStatusActive {
		return domain.ErrPollClosed
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, sub); err != nil {
			return err
		}
	}

	if err := ValidateDemographics(sub.Demographics, poll.RequiredDemographics); err != nil {
		return err
	}

	choices, answerIDs, err := resolveChoices(poll, sub.Answers)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	responses := make([]domain.Response, len(choices))
	for i, choice := range choices {
		responses[i] = domain.Response{
			ID:               domain.ResponseID(s.ids.New()),
			PollID:           poll.ID,
			QuestionID:       choice.QuestionID,
			AnswerID:         choice.AnswerID,
			RespondentName:   sub.Demographics.Name,
			RespondentGender: sub.Demographics.Gender,
			RespondentAge:    sub.Demographics.Age,
			OriginIP:         sub.OriginIP,
			UserAgent:        sub.UserAgent,
			CreatedAt:        now,
		}
	}

	writeCtx := ctx
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	if err := s.submissions.RecordSubmission(writeCtx, responses, answerIDs); err != nil {
		return err
	}

	// The submission has committed; everything below is best effort.
	results, err := s.buildResults(ctx, poll)
	if err != nil {
		s.logger.Error("aggregating results after submission", "poll", poll.Code, "err", err)
		return nil
	}

	if s.publisher != nil {
		s.publisher.Publish(poll.Code, results)
	}

	return nil
}

func (s *Service) GetResults(ctx context.Context, pollCode string) (domain.PollResults, error) {
	poll, err := s.polls.FindByCode(ctx, pollCode)
	if err != nil {
		return domain.PollResults{}, err
	}
	return s.buildResults(ctx, poll)
}

func (s *Service) buildResults(ctx context.Context, poll domain.Poll) (domain.PollResults, error) {
	total, err := s.responses.TotalByPoll(ctx, poll.ID)
	if err != nil {
		return domain.PollResults{}, err
	}
	tallies, err := s.tallies.Tallies(ctx, poll.ID)
	if err != nil {
		return domain.PollResults{}, err
	}
	return BuildResults(poll, total, tallies), nil
}

// resolveChoices verifies every pair against the preloaded poll structure (no
// extra round trips) and drops exact duplicates so one increment per distinct
// answer keeps the tally equal to the number of response rows.
func resolveChoices(poll domain.Poll, answers []domain.AnswerChoice) ([]domain.AnswerChoice, []domain.AnswerID, error) {
	answersByQuestion := make(map[domain.QuestionID]map[domain.AnswerID]struct{}, len(poll.Questions))
	for _, q := range poll.Questions {
		set := make(map[domain.AnswerID]struct{}, len(q.Answers))
		for _, a := range q.Answers {
			set[a.ID] = struct{}{}
		}
		answersByQuestion[q.ID] = set
	}

	seen := make(map[domain.AnswerChoice]struct{}, len(answers))
	choices := make([]domain.AnswerChoice, 0, len(answers))
	answerIDs := make([]domain.AnswerID, 0, len(answers))

	for _, choice := range answers {
		answerSet, ok := answersByQuestion[choice.QuestionID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: question %s", domain.ErrNotFound, choice.QuestionID)
		}
		if _, ok := answerSet[choice.AnswerID]; !ok {
			return nil, nil, fmt.Errorf("%w: answer %s", domain.ErrNotFound, choice.AnswerID)
		}
		if _, dup := seen[choice]; dup {
			continue
		}
		seen[choice] = struct{}{}
		choices = append(choices, choice)
		answerIDs = append(answerIDs, choice.AnswerID)
	}

	return choices, answerIDs, nil
}

func (s *Service) newPollCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "poll" + raw[:8]
}

func validatePoll(p domain.Poll) error {
	if p.Title == "" {
		return fmt.Errorf("%w: title required", ErrInvalidPoll)
	}
	if len(p.Questions) == 0 {
		return fmt.Errorf("%w: at least one question", ErrInvalidPoll)
	}
	for _, q := range p.Questions {
		if q.Text == "" {
			return fmt.Errorf("%w: question text required", ErrInvalidPoll)
		}
		if len(q.Answers) < 2 {
			return fmt.Errorf("%w: question %q needs at least two answers", ErrInvalidPoll, q.Text)
		}
		for _, a := range q.Answers {
			if a.Text == "" {
				return fmt.Errorf("%w: answer text required", ErrInvalidPoll)
			}
		}
	}
	for _, field := range p.RequiredDemographics {
		switch field {
		case domain.DemographicName, domain.DemographicGender, domain.DemographicAge:
		default:
			return fmt.Errorf("%w: unknown demographic %q", ErrInvalidPoll, field)
		}
	}
	return nil
}

var _ domain.PollingService = (*Service)(nil)
