package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/evercare/livepoll/internal/domain"
)

// ResponseRepository stores raw respondent choices and answers aggregate count queries.
type ResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

type responseModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	PollID           string    `gorm:"column:poll_id;index"`
	QuestionID       string    `gorm:"column:question_id;index"`
	AnswerID         string    `gorm:"column:answer_id;index"`
	RespondentName   string    `gorm:"column:respondent_name"`
	RespondentGender string    `gorm:"column:respondent_gender"`
	RespondentAge    *int      `gorm:"column:respondent_age"`
	OriginIP         string    `gorm:"column:origin_ip"`
	UserAgent        string    `gorm:"column:user_agent"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (responseModel) TableName() string {
	return "responses"
}

func fromDomainResponse(r domain.Response) responseModel {
	return responseModel{
		ID:               string(r.ID),
		PollID:           string(r.PollID),
		QuestionID:       string(r.QuestionID),
		AnswerID:         string(r.AnswerID),
		RespondentName:   r.RespondentName,
		RespondentGender: r.RespondentGender,
		RespondentAge:    r.RespondentAge,
		OriginIP:         r.OriginIP,
		UserAgent:        r.UserAgent,
		CreatedAt:        r.CreatedAt,
	}
}

func (r *ResponseRepository) TotalByPoll(ctx context.Context, pollID domain.PollID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&responseModel{}).
		Where("poll_id = ?", pollID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm responses: total by poll: %w", err)
	}
	return total, nil
}

func (r *ResponseRepository) CountByAnswer(ctx context.Context, answerID domain.AnswerID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&responseModel{}).
		Where("answer_id = ?", answerID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm responses: count by answer: %w", err)
	}
	return total, nil
}

var _ domain.ResponseRepository = (*ResponseRepository)(nil)

// SubmissionStore commits one submission's response rows and tally increments in
// a single transaction, so concurrent submitters never observe a partial write.
type SubmissionStore struct {
	db *gorm.DB
}

func NewSubmissionStore(db *gorm.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) RecordSubmission(ctx context.Context, responses []domain.Response, answerIDs []domain.AnswerID) error {
	if len(responses) == 0 {
		return nil
	}

	models := make([]responseModel, len(responses))
	for i, resp := range responses {
		models[i] = fromDomainResponse(resp)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One bulk insert for the rows, then one arithmetic update per answer.
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("insert responses: %w", err)
		}
		for _, answerID := range answerIDs {
			if err := incrementTally(tx, answerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm submission: %w", err)
	}
	return nil
}

var _ domain.SubmissionStore = (*SubmissionStore)(nil)
