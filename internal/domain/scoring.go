package domain

import (
	"math"
	"sort"
)

// AnswerSet is a set of answer ids.
type AnswerSet map[int64]struct{}

// NewAnswerSet builds a set from ids; duplicates collapse.
func NewAnswerSet(ids ...int64) AnswerSet {
	set := make(AnswerSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s AnswerSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Equal reports whether both sets hold exactly the same ids.
func (s AnswerSet) Equal(other AnswerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order.
func (s AnswerSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AnsweredCorrectly applies the exact-match rule: the valid selected set must equal the correct set.
// Selected ids that are not answers of the question are ignored.
func AnsweredCorrectly(q Question, selected AnswerSet) bool {
	valid := AnswerSet{}
	for id := range selected {
		if _, ok := q.Answer(id); ok {
			valid[id] = struct{}{}
		}
	}
	return q.CorrectAnswerIDs().Equal(valid)
}

// Percentage returns round(score/total*100, 2), or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(score) / float64(total) * 100)
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Passed reports percentage >= threshold.
func Passed(percentage float64, threshold int) bool {
	return percentage >= float64(threshold)
}

// GroupSelections maps question ids to the set of chosen answer ids.
func GroupSelections(selections []Selection) map[int64]AnswerSet {
	grouped := make(map[int64]AnswerSet)
	for _, s := range selections {
		set, ok := grouped[s.QuestionID]
		if !ok {
			set = AnswerSet{}
			grouped[s.QuestionID] = set
		}
		set[s.AnswerID] = struct{}{}
	}
	return grouped
}

// QuestionScore is the evaluation of one answered question.
type QuestionScore struct {
	Question Question
	Selected AnswerSet
	Correct  bool
}

// Scorecard is the outcome of scoring a submission against a questionnaire.
type Scorecard struct {
	Questions      []QuestionScore
	CorrectCount   int
	TotalQuestions int
}

// Percentage of the scorecard, rounded to two decimals.
func (s Scorecard) Percentage() float64 {
	return Percentage(s.CorrectCount, s.TotalQuestions)
}

// Score evaluates raw selections against the questionnaire aggregate. Question ids outside the
// questionnaire are skipped and answer ids outside their question are dropped; neither is an error.
func Score(quiz Questionnaire, selections []Selection) Scorecard {
	grouped := GroupSelections(selections)
	questionIDs := make([]int64, 0, len(grouped))
	for id := range grouped {
		questionIDs = append(questionIDs, id)
	}
	sort.Slice(questionIDs, func(i, j int) bool { return questionIDs[i] < questionIDs[j] })

	card := Scorecard{}
	for _, questionID := range questionIDs {
		question, ok := quiz.Question(questionID)
		if !ok {
			continue
		}
		valid := AnswerSet{}
		for answerID := range grouped[questionID] {
			if _, ok := question.Answer(answerID); ok {
				valid[answerID] = struct{}{}
			}
		}
		correct := question.CorrectAnswerIDs().Equal(valid)
		card.TotalQuestions++
		if correct {
			card.CorrectCount++
		}
		card.Questions = append(card.Questions, QuestionScore{
			Question: question,
			Selected: valid,
			Correct:  correct,
		})
	}
	return card
}
