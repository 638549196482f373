package polling

import (
	"github.com/evercare/livepoll/internal/domain"
)

// BuildResults derives the snapshot from the poll structure and the committed
// tallies. Pure function: display order comes from the poll, counts come from
// the tally store, percentages are count/total*100 (0.0 when total is zero)
// with no rounding at this layer.
func BuildResults(poll domain.Poll, total int64, tallies map[domain.AnswerID]int64) domain.PollResults {
	questionResults := make([]domain.QuestionResult, len(poll.Questions))
	for qi, q := range poll.Questions {
		answerResults := make([]domain.AnswerResult, len(q.Answers))
		for ai, a := range q.Answers {
			count := tallies[a.ID]
			var percentage float64
			if total > 0 {
				percentage = float64(count) / float64(total) * 100
			}
			answerResults[ai] = domain.AnswerResult{
				AnswerID:      a.ID,
				AnswerText:    a.Text,
				ResponseCount: count,
				Percentage:    percentage,
			}
		}
		questionResults[qi] = domain.QuestionResult{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			AnswerResults: answerResults,
		}
	}

	return domain.PollResults{
		PollID:          poll.ID,
		Title:           poll.Title,
		ChartType:       poll.ChartType,
		TotalResponses:  total,
		QuestionResults: questionResults,
	}
}
