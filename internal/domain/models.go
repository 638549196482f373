package domain

import (
	"time"
)

type (
	PollID     string
	QuestionID string
	AnswerID   string
	ResponseID string
	AdminID    string
)

// PollStatus is set exclusively by the admin surface; the submission path only reads it.
type PollStatus string

const (
	PollStatusActive    PollStatus = "ACTIVE"
	PollStatusStopped   PollStatus = "STOPPED"
	PollStatusCompleted PollStatus = "COMPLETED"
)

// ChartType is a rendering hint echoed back to viewers; the core never interprets it.
type ChartType string

const (
	ChartTypePie ChartType = "PIE"
	ChartTypeBar ChartType = "BAR"
)

// Demographic field names a poll may require from respondents.
const (
	DemographicName   = "name"
	DemographicGender = "gender"
	DemographicAge    = "age"
)

type Poll struct {
	ID                   PollID     `json:"id" gorm:"column:id;type:char(26);primaryKey"`
	Code                 string     `json:"code" gorm:"column:code;type:text;not null;uniqueIndex"`
	Title                string     `json:"title" gorm:"column:title;type:text;not null"`
	ShareLink            string     `json:"shareLink" gorm:"column:share_link;type:text"`
	QRCode               string     `json:"qrCode" gorm:"column:qr_code;type:text"`
	Status               PollStatus `json:"status" gorm:"column:status;type:text;not null"`
	ChartType            ChartType  `json:"chartType" gorm:"column:chart_type;type:text;not null"`
	AllowViewResults     bool       `json:"allowViewResults" gorm:"column:allow_view_results;not null"`
	AdminID              AdminID    `json:"adminId" gorm:"column:admin_id;type:char(26);not null;index"`
	RequiredDemographics []string   `json:"requiredDemographics" gorm:"column:required_demographics;type:text;serializer:json"`
	Questions            []Question `json:"questions" gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time  `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

type Question struct {
	ID      QuestionID `json:"id" gorm:"column:id;type:char(26);primaryKey"`
	PollID  PollID     `json:"pollId" gorm:"column:poll_id;type:char(26);not null;index"`
	Text    string     `json:"text" gorm:"column:text;type:text;not null"`
	Order   int        `json:"order" gorm:"column:question_order;not null"`
	Answers []Answer   `json:"answers" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

type Answer struct {
	ID         AnswerID   `json:"id" gorm:"column:id;type:char(26);primaryKey"`
	QuestionID QuestionID `json:"questionId" gorm:"column:question_id;type:char(26);not null;index"`
	Text       string     `json:"text" gorm:"column:text;type:text;not null"`
	Order      int        `json:"order" gorm:"column:answer_order;not null"`
	// ResponseCount only ever grows, and only through TallyStore.Increment.
	ResponseCount int64 `json:"responseCount" gorm:"column:response_count;not null;default:0"`
	// Version guards the admin edit path; the tally increment bypasses it.
	Version int64 `json:"-" gorm:"column:version;not null;default:0"`
}

// Response records one respondent's choice for one question. Immutable once created;
// rows are removed only as a cascade of the parent poll's deletion.
type Response struct {
	ID               ResponseID `gorm:"column:id;type:char(26);primaryKey"`
	PollID           PollID     `gorm:"column:poll_id;type:char(26);not null;index"`
	QuestionID       QuestionID `gorm:"column:question_id;type:char(26);not null;index"`
	AnswerID         AnswerID   `gorm:"column:answer_id;type:char(26);not null;index"`
	RespondentName   string     `gorm:"column:respondent_name;type:text"`
	RespondentGender string     `gorm:"column:respondent_gender;type:text"`
	RespondentAge    *int       `gorm:"column:respondent_age"`
	OriginIP         string     `gorm:"column:origin_ip;type:text"`
	UserAgent        string     `gorm:"column:user_agent;type:text"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// Demographics carries the optional respondent attributes of a submission.
// Age is a pointer so "unset" stays distinguishable from zero.
type Demographics struct {
	Name   string
	Gender string
	Age    *int
}

// AnswerChoice is one (question, answer) pair of a submission.
type AnswerChoice struct {
	QuestionID QuestionID `json:"questionId"`
	AnswerID   AnswerID   `json:"answerId"`
}

// Submission is the full payload of one respondent for one poll.
type Submission struct {
	PollCode     string
	Answers      []AnswerChoice
	Demographics Demographics
	OriginIP     string
	UserAgent    string
}

// PollResults is the derived snapshot delivered to viewers. Never stored.
type PollResults struct {
	PollID          PollID           `json:"pollId"`
	Title           string           `json:"title"`
	ChartType       ChartType        `json:"chartType"`
	TotalResponses  int64            `json:"totalResponses"`
	QuestionResults []QuestionResult `json:"questionResults"`
}

type QuestionResult struct {
	QuestionID    QuestionID     `json:"questionId"`
	QuestionText  string         `json:"questionText"`
	AnswerResults []AnswerResult `json:"answerResults"`
}

type AnswerResult struct {
	AnswerID      AnswerID `json:"answerId"`
	AnswerText    string   `json:"answerText"`
	ResponseCount int64    `json:"responseCount"`
	Percentage    float64  `json:"percentage"`
}

// ResultEnvelope is the wire shape pushed to subscribers on every tally change.
type ResultEnvelope struct {
	Type     string      `json:"type"`
	PollCode string      `json:"pollCode"`
	Data     PollResults `json:"data"`
}

const EnvelopeTypePollUpdated = "POLL_UPDATED"

// DashboardSummary aggregates an admin's polls for the management screen.
type DashboardSummary struct {
	TotalPolls     int64  `json:"totalPolls"`
	TotalQuestions int64  `json:"totalQuestions"`
	ActivePolls    int64  `json:"activePolls"`
	RecentPolls    []Poll `json:"recentPolls"`
}

func (Poll) TableName() string { return "polls" }

func (Question) TableName() string { return "questions" }

func (Answer) TableName() string { return "answers" }

func (Response) TableName() string { return "responses" }
