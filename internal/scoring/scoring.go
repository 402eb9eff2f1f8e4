// Package scoring grades a set of submitted answers against a test's
// questions. It is deterministic and side-effect free: the same questions and
// answers always produce the same result.
package scoring

import (
	"strings"

	"recruitment-service/internal/model"
)

// MaxScore is the top of the grading scale.
const MaxScore float64 = 20.0

// Normalize prepares an answer for comparison: surrounding whitespace is
// trimmed and the result lowercased. Matching is full-string equality, no
// partial credit.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Grade counts exact (normalized) matches and converts the ratio to the 0-20
// scale. A question with an empty correct answer, or with no submitted answer
// under its id, never counts as correct. The question count is floored at 1 so
// an empty test grades to 0 rather than dividing by zero.
func Grade(questions []model.Question, answers map[uint]string) (correct int, score float64) {
	for _, q := range questions {
		expected := Normalize(q.CorrectAnswer)
		if expected == "" {
			continue
		}
		given := Normalize(answers[q.ID])
		if given == "" {
			continue
		}
		if expected == given {
			correct++
		}
	}

	count := len(questions)
	if count < 1 {
		count = 1
	}
	score = (float64(correct) / float64(count)) * MaxScore
	return correct, score
}
