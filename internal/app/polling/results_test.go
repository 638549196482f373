package polling

import (
	"math"
	"testing"

	"github.com/evercare/livepoll/internal/domain"
)

func resultsFixture() domain.Poll {
	return domain.Poll{
		ID:        "poll-1",
		Title:     "Snacks",
		ChartType: domain.ChartTypePie,
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "Sweet or salty?",
				Answers: []domain.Answer{
					{ID: "a1", Text: "Sweet"},
					{ID: "a2", Text: "Salty"},
				},
			},
			{
				ID:   "q2",
				Text: "Hot or cold?",
				Answers: []domain.Answer{
					{ID: "a3", Text: "Hot"},
					{ID: "a4", Text: "Cold"},
				},
			},
		},
	}
}

func TestBuildResultsPercentages(t *testing.T) {
	poll := resultsFixture()
	tallies := map[domain.AnswerID]int64{"a1": 2, "a2": 1, "a3": 3}

	results := BuildResults(poll, 3, tallies)

	if results.TotalResponses != 3 {
		t.Fatalf("total mismatch: %d", results.TotalResponses)
	}
	if len(results.QuestionResults) != 2 {
		t.Fatalf("expected 2 question results, got %d", len(results.QuestionResults))
	}

	first := results.QuestionResults[0].AnswerResults
	if math.Abs(first[0].Percentage-66.6666) > 0.01 {
		t.Fatalf("a1 percentage: %f", first[0].Percentage)
	}
	if math.Abs(first[1].Percentage-33.3333) > 0.01 {
		t.Fatalf("a2 percentage: %f", first[1].Percentage)
	}

	second := results.QuestionResults[1].AnswerResults
	if second[0].ResponseCount != 3 || second[0].Percentage != 100 {
		t.Fatalf("a3 result: %+v", second[0])
	}
	if second[1].ResponseCount != 0 || second[1].Percentage != 0 {
		t.Fatalf("untallied answer must report zero: %+v", second[1])
	}
}

func TestBuildResultsZeroTotal(t *testing.T) {
	poll := resultsFixture()

	results := BuildResults(poll, 0, map[domain.AnswerID]int64{})

	for _, q := range results.QuestionResults {
		for _, a := range q.AnswerResults {
			if a.ResponseCount != 0 || a.Percentage != 0 {
				t.Fatalf("empty poll must report zeros, got %+v", a)
			}
		}
	}
}

func TestBuildResultsPreservesOrder(t *testing.T) {
	poll := resultsFixture()

	results := BuildResults(poll, 1, map[domain.AnswerID]int64{"a1": 1})

	if results.QuestionResults[0].QuestionID != "q1" || results.QuestionResults[1].QuestionID != "q2" {
		t.Fatal("question order must follow the poll structure")
	}
	answers := results.QuestionResults[0].AnswerResults
	if answers[0].AnswerID != "a1" || answers[1].AnswerID != "a2" {
		t.Fatal("answer order must follow the poll structure")
	}
}
