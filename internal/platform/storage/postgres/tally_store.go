package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evercare/livepoll/internal/domain"
)

// TallyStore mutates the per-answer counters. The increment is a conditionless
// arithmetic update executed at the database, which makes concurrent submissions
// for the same answer lose nothing; it deliberately skips the version column,
// which only fences the admin edit path.
type TallyStore struct {
	db *gorm.DB
}

func NewTallyStore(db *gorm.DB) *TallyStore {
	return &TallyStore{db: db}
}

func incrementTally(db *gorm.DB, answerID domain.AnswerID) error {
	res := db.Model(&answerModel{}).
		Where("id = ?", answerID).
		UpdateColumn("response_count", gorm.Expr("response_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("increment tally %s: %w", answerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *TallyStore) Increment(ctx context.Context, answerID domain.AnswerID) error {
	return incrementTally(t.db.WithContext(ctx), answerID)
}

func (t *TallyStore) Tallies(ctx context.Context, pollID domain.PollID) (map[domain.AnswerID]int64, error) {
	type row struct {
		ID            string
		ResponseCount int64
	}

	var rows []row
	if err := t.db.WithContext(ctx).
		Model(&answerModel{}).
		Select("answers.id AS id, answers.response_count AS response_count").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("questions.poll_id = ?", pollID).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm tally: read poll tallies: %w", err)
	}

	tallies := make(map[domain.AnswerID]int64, len(rows))
	for _, r := range rows {
		tallies[domain.AnswerID(r.ID)] = r.ResponseCount
	}
	return tallies, nil
}

var _ domain.TallyStore = (*TallyStore)(nil)
