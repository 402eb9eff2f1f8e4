package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"recruitment-service/internal/apperr"
	"recruitment-service/internal/dto"
	"recruitment-service/internal/model"
	"recruitment-service/internal/repository"
)

// ResultService is the read side: attempt details for audit and a candidate's
// result history. No method here ever writes.
type ResultService interface {
	GetAttemptDetails(attemptID uint) (*dto.AttemptDetailDTO, error)
	GetResultsByCandidate(candidateID uint) ([]dto.AttemptSummaryDTO, error)
}

type resultService struct {
	attemptRepo repository.AttemptRepository
}

func NewResultService(attemptRepo repository.AttemptRepository) ResultService {
	return &resultService{attemptRepo: attemptRepo}
}

func (s *resultService) GetAttemptDetails(attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d: %w", attemptID, apperr.ErrNotFound)
		}
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Failed to load attempt details")
		return nil, fmt.Errorf("fetching attempt %d: %w", attemptID, err)
	}

	questionByID := make(map[uint]model.Question, len(attempt.Test.Questions))
	for _, q := range attempt.Test.Questions {
		questionByID[q.ID] = q
	}

	detail := dto.AttemptDetailDTO{
		ID:          attempt.ID,
		CandidateID: attempt.CandidateID,
		TestID:      attempt.TestID,
		TestTitle:   attempt.Test.Title,
		Status:      attempt.Status,
		Score:       attempt.Score,
		AssignedAt:  attempt.AssignedAt,
		StartedAt:   attempt.StartedAt,
		FinishedAt:  attempt.FinishedAt,
	}
	for _, ans := range attempt.Answers {
		entry := dto.AnswerResponseDTO{QuestionID: ans.QuestionID, Value: ans.Value}
		if q, ok := questionByID[ans.QuestionID]; ok {
			entry.Prompt = q.Prompt
		}
		detail.Answers = append(detail.Answers, entry)
	}

	// Present answers in question order; answers for questions no longer on
	// the test sort last.
	sort.SliceStable(detail.Answers, func(i, j int) bool {
		qi, oki := questionByID[detail.Answers[i].QuestionID]
		qj, okj := questionByID[detail.Answers[j].QuestionID]
		if oki != okj {
			return oki
		}
		return qi.OrderInTest < qj.OrderInTest
	})

	return &detail, nil
}

func (s *resultService) GetResultsByCandidate(candidateID uint) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByCandidate(candidateID)
	if err != nil {
		log.Error().Err(err).Uint("candidateID", candidateID).Msg("Failed to list attempts for candidate")
		return nil, fmt.Errorf("fetching results for candidate %d: %w", candidateID, err)
	}

	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, attempt := range attempts {
		summaries = append(summaries, dto.AttemptSummaryDTO{
			ID:          attempt.ID,
			CandidateID: attempt.CandidateID,
			TestID:      attempt.TestID,
			TestTitle:   attempt.Test.Title,
			Status:      attempt.Status,
			Score:       attempt.Score,
			AssignedAt:  attempt.AssignedAt,
			StartedAt:   attempt.StartedAt,
			FinishedAt:  attempt.FinishedAt,
		})
	}
	return summaries, nil
}
