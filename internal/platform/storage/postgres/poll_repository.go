package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/evercare/livepoll/internal/domain"
)

// PollRepository maps the poll aggregate (poll, questions, answers) to GORM tables.
type PollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{db: db}
}

type pollModel struct {
	ID                   string          `gorm:"column:id;primaryKey"`
	Code                 string          `gorm:"column:code;uniqueIndex"`
	Title                string          `gorm:"column:title"`
	ShareLink            string          `gorm:"column:share_link"`
	QRCode               string          `gorm:"column:qr_code"`
	Status               string          `gorm:"column:status"`
	ChartType            string          `gorm:"column:chart_type"`
	AllowViewResults     bool            `gorm:"column:allow_view_results"`
	AdminID              string          `gorm:"column:admin_id;index"`
	RequiredDemographics []string        `gorm:"column:required_demographics;type:text;serializer:json"`
	Questions            []questionModel `gorm:"foreignKey:PollID;references:ID"`
	CreatedAt            time.Time       `gorm:"column:created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

type questionModel struct {
	ID      string        `gorm:"column:id;primaryKey"`
	PollID  string        `gorm:"column:poll_id;index"`
	Text    string        `gorm:"column:text"`
	Order   int           `gorm:"column:question_order"`
	Answers []answerModel `gorm:"foreignKey:QuestionID;references:ID"`
}

func (questionModel) TableName() string {
	return "questions"
}

type answerModel struct {
	ID            string `gorm:"column:id;primaryKey"`
	QuestionID    string `gorm:"column:question_id;index"`
	Text          string `gorm:"column:text"`
	Order         int    `gorm:"column:answer_order"`
	ResponseCount int64  `gorm:"column:response_count"`
	Version       int64  `gorm:"column:version"`
}

func (answerModel) TableName() string {
	return "answers"
}

func (m pollModel) toDomain() domain.Poll {
	p := domain.Poll{
		ID:                   domain.PollID(m.ID),
		Code:                 m.Code,
		Title:                m.Title,
		ShareLink:            m.ShareLink,
		QRCode:               m.QRCode,
		Status:               domain.PollStatus(m.Status),
		ChartType:            domain.ChartType(m.ChartType),
		AllowViewResults:     m.AllowViewResults,
		AdminID:              domain.AdminID(m.AdminID),
		RequiredDemographics: m.RequiredDemographics,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}

	questions := make([]domain.Question, len(m.Questions))
	for i, q := range m.Questions {
		questions[i] = q.toDomain()
	}
	p.Questions = questions

	return p
}

func (m questionModel) toDomain() domain.Question {
	q := domain.Question{
		ID:     domain.QuestionID(m.ID),
		PollID: domain.PollID(m.PollID),
		Text:   m.Text,
		Order:  m.Order,
	}

	answers := make([]domain.Answer, len(m.Answers))
	for i, a := range m.Answers {
		answers[i] = domain.Answer{
			ID:            domain.AnswerID(a.ID),
			QuestionID:    domain.QuestionID(a.QuestionID),
			Text:          a.Text,
			Order:         a.Order,
			ResponseCount: a.ResponseCount,
			Version:       a.Version,
		}
	}
	q.Answers = answers

	return q
}

func fromDomainPoll(p domain.Poll) pollModel {
	model := pollModel{
		ID:                   string(p.ID),
		Code:                 p.Code,
		Title:                p.Title,
		ShareLink:            p.ShareLink,
		QRCode:               p.QRCode,
		Status:               string(p.Status),
		ChartType:            string(p.ChartType),
		AllowViewResults:     p.AllowViewResults,
		AdminID:              string(p.AdminID),
		RequiredDemographics: p.RequiredDemographics,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}

	if len(p.Questions) > 0 {
		model.Questions = make([]questionModel, len(p.Questions))
		for i, q := range p.Questions {
			qm := questionModel{
				ID:     string(q.ID),
				PollID: string(q.PollID),
				Text:   q.Text,
				Order:  q.Order,
			}
			if len(q.Answers) > 0 {
				qm.Answers = make([]answerModel, len(q.Answers))
				for j, a := range q.Answers {
					qm.Answers[j] = answerModel{
						ID:            string(a.ID),
						QuestionID:    string(a.QuestionID),
						Text:          a.Text,
						Order:         a.Order,
						ResponseCount: a.ResponseCount,
						Version:       a.Version,
					}
				}
			}
			model.Questions[i] = qm
		}
	}

	return model
}

func (r *PollRepository) Create(ctx context.Context, p domain.Poll) error {
	model := fromDomainPoll(p)
	// One Create persists the whole aggregate; GORM inserts the associations with it.
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm poll: insert: %w", err)
	}
	return nil
}

func (r *PollRepository) FindByCode(ctx context.Context, code string) (domain.Poll, error) {
	var model pollModel
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_order ASC")
		}).
		First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Poll{}, domain.ErrNotFound
		}
		return domain.Poll{}, fmt.Errorf("gorm poll: find by code: %w", err)
	}
	return model.toDomain(), nil
}

func (r *PollRepository) FindByID(ctx context.Context, id domain.PollID) (domain.Poll, error) {
	var model pollModel
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_order ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Poll{}, domain.ErrNotFound
		}
		return domain.Poll{}, fmt.Errorf("gorm poll: find by id: %w", err)
	}
	return model.toDomain(), nil
}

func (r *PollRepository) ListByAdmin(ctx context.Context, adminID domain.AdminID) ([]domain.Poll, error) {
	var models []pollModel
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_order ASC")
		}).
		Where("admin_id = ?", adminID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm poll: list by admin: %w", err)
	}

	result := make([]domain.Poll, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

func (r *PollRepository) UpdateStatus(ctx context.Context, id domain.PollID, status domain.PollStatus) error {
	res := r.db.WithContext(ctx).Model(&pollModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("gorm poll: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PollRepository) Delete(ctx context.Context, id domain.PollID) error {
	// Explicit cascade keeps the same behavior on engines without FK enforcement.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&responseModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id IN (?)",
			tx.Model(&questionModel{}).Select("id").Where("poll_id = ?", id),
		).Delete(&answerModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", id).Delete(&questionModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&pollModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("gorm poll: delete: %w", err)
	}
	return nil
}

func (r *PollRepository) CountByAdmin(ctx context.Context, adminID domain.AdminID, status domain.PollStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&pollModel{}).Where("admin_id = ?", adminID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm poll: count by admin: %w", err)
	}
	return total, nil
}

var _ domain.PollRepository = (*PollRepository)(nil)
