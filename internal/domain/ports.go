package domain

import (
	"context"
	"time"
)

type PollRepository interface {
	Create(ctx context.Context, p Poll) error
	// FindByCode returns the poll with questions and answers preloaded in display
	// order, so pair membership checks need no further round trips.
	FindByCode(ctx context.Context, code string) (Poll, error)
	FindByID(ctx context.Context, id PollID) (Poll, error)
	ListByAdmin(ctx context.Context, adminID AdminID) ([]Poll, error)
	UpdateStatus(ctx context.Context, id PollID, status PollStatus) error
	// Delete removes the poll and cascades questions, answers and responses.
	Delete(ctx context.Context, id PollID) error
	CountByAdmin(ctx context.Context, adminID AdminID, status PollStatus) (int64, error)
}

type ResponseRepository interface {
	TotalByPoll(ctx context.Context, pollID PollID) (int64, error)
	CountByAnswer(ctx context.Context, answerID AnswerID) (int64, error)
}

// TallyStore owns the per-answer counters. Increment must be a single atomic
// arithmetic update at the storage layer, never a read followed by a write.
type TallyStore interface {
	Increment(ctx context.Context, answerID AnswerID) error
	// Tallies returns the counters for every answer of the poll in one query.
	Tallies(ctx context.Context, pollID PollID) (map[AnswerID]int64, error)
}

// SubmissionStore applies one submission's writes as a unit: either all response
// rows and all increments commit, or none do.
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, responses []Response, answerIDs []AnswerID) error
}

// Broadcaster delivers an already-encoded result envelope to every current
// subscriber of a poll's feed. Best effort; callers treat errors as log-only.
type Broadcaster interface {
	Broadcast(ctx context.Context, pollCode string, payload []byte) error
}

// ResultPublisher hands snapshots off for asynchronous fan-out. Publish must
// return immediately regardless of subscriber count or transport latency.
type ResultPublisher interface {
	Publish(pollCode string, results PollResults)
}

// RateLimiter caps how often one origin may submit to a poll.
type RateLimiter interface {
	Allow(ctx context.Context, sub Submission) error
}

type Clock interface {
	Now() time.Time
}

type PollingService interface {
	CreatePoll(ctx context.Context, adminID AdminID, poll Poll) (Poll, error)
	GetPollByCode(ctx context.Context, code string) (Poll, error)
	ListPolls(ctx context.Context, adminID AdminID) ([]Poll, error)
	UpdatePollStatus(ctx context.Context, id PollID, status PollStatus) (Poll, error)
	DeletePoll(ctx context.Context, id PollID) error
	Dashboard(ctx context.Context, adminID AdminID) (DashboardSummary, error)
	SubmitResponse(ctx context.Context, sub Submission) error
	GetResults(ctx context.Context, pollCode string) (PollResults, error)
}
