package domain

import "time"

const (
	MaxQuestionTextLength = 200
	MaxChoiceTextLength   = 200

	// RecentWindow is how far back a publish date counts as recent.
	RecentWindow = 24 * time.Hour
)

type Question struct {
	ID          int64     `json:"id"`
	Text        string    `json:"question_text"`
	PublishDate time.Time `json:"publish_date"`
	Choices     []Choice  `json:"choices,omitempty"`
}

// WasPublishedRecently reports whether the question was published within
// [now-24h, now]. Future publish dates are never recent.
func (q *Question) WasPublishedRecently(now time.Time) bool {
	return !q.PublishDate.Before(now.Add(-RecentWindow)) && !q.PublishDate.After(now)
}

func (q *Question) IsPublished(now time.Time) bool {
	return !q.PublishDate.After(now)
}

func (q *Question) TotalVotes() int64 {
	var total int64
	for _, c := range q.Choices {
		total += c.Votes
	}
	return total
}

// Choice returns the choice with the given id, if it belongs to q.
func (q *Question) Choice(id int64) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"choice_text"`
	Votes      int64  `json:"votes"`
}

type ChoiceResult struct {
	Choice
	Percentage float64 `json:"percentage"`
}

// Results pairs every choice with its share of the question's total votes.
func (q *Question) Results() []ChoiceResult {
	total := q.TotalVotes()
	results := make([]ChoiceResult, 0, len(q.Choices))
	for _, c := range q.Choices {
		percentage := 0.0
		if total > 0 {
			percentage = (float64(c.Votes) / float64(total)) * 100
		}
		results = append(results, ChoiceResult{Choice: c, Percentage: percentage})
	}
	return results
}
