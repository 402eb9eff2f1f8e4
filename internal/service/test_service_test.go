package service

import (
	"errors"
	"testing"

	"recruitment-service/internal/apperr"
	"recruitment-service/internal/dto"
)

func TestCreateTestRejectsDuplicateOrder(t *testing.T) {
	svc := NewTestService(newFakeTestRepo())

	_, err := svc.CreateTest(dto.TestCreateDTO{
		Title:           "Dup order",
		DurationMinutes: 10,
		Questions: []dto.QuestionCreateDTO{
			{Prompt: "q1", Options: []string{"a", "b"}, CorrectAnswer: "a", OrderInTest: 1},
			{Prompt: "q2", Options: []string{"a", "b"}, CorrectAnswer: "b", OrderInTest: 1},
		},
	})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate order_in_test, got %v", err)
	}
}

func TestGetTestByJobPostingStripsCorrectAnswers(t *testing.T) {
	test := sampleTest()
	jobPostingID := uint(42)
	test.JobPostingID = &jobPostingID
	svc := NewTestService(newFakeTestRepo(test))

	view, err := svc.GetTestByJobPosting(42)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if view.ID != test.ID {
		t.Errorf("expected test %d, got %d", test.ID, view.ID)
	}
	if len(view.Questions) != len(test.Questions) {
		t.Fatalf("expected %d questions, got %d", len(test.Questions), len(view.Questions))
	}
	// CandidateQuestionDTO has no correct-answer field; make sure prompts and
	// order carried over.
	for i, q := range view.Questions {
		if q.OrderInTest != test.Questions[i].OrderInTest {
			t.Errorf("question %d order mismatch: %d vs %d", i, q.OrderInTest, test.Questions[i].OrderInTest)
		}
	}
}

func TestGetTestByJobPostingNotFound(t *testing.T) {
	svc := NewTestService(newFakeTestRepo(sampleTest()))
	if _, err := svc.GetTestByJobPosting(999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
