package service

import (
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"recruitment-service/internal/apperr"
	"recruitment-service/internal/dto"
	"recruitment-service/internal/model"
	"recruitment-service/internal/repository"
)

// TestService is the admin CRUD surface for test definitions plus the
// candidate-facing job-posting lookup. It never touches attempt ledgers;
// editing a test does not rescore attempts that already reference it.
type TestService interface {
	CreateTest(req dto.TestCreateDTO) (*dto.TestResponseDTO, error)
	GetTest(id uint) (*dto.TestResponseDTO, error)
	GetAllTests() ([]dto.TestSummaryDTO, error)
	GetTestByJobPosting(jobPostingID uint) (*dto.CandidateTestDTO, error)
	UpdateTest(id uint, req dto.TestUpdateDTO) (*dto.TestResponseDTO, error)
	DeleteTest(id uint) error
}

type testService struct {
	testRepo repository.TestRepository
}

func NewTestService(testRepo repository.TestRepository) TestService {
	return &testService{testRepo: testRepo}
}

func (s *testService) CreateTest(req dto.TestCreateDTO) (*dto.TestResponseDTO, error) {
	orderSeen := make(map[int]bool)
	questions := make([]model.Question, 0, len(req.Questions))
	for _, qDto := range req.Questions {
		if orderSeen[qDto.OrderInTest] {
			return nil, fmt.Errorf("%w: duplicate order_in_test %d", apperr.ErrInvalidInput, qDto.OrderInTest)
		}
		orderSeen[qDto.OrderInTest] = true
		questions = append(questions, model.Question{
			Prompt:        qDto.Prompt,
			Options:       qDto.Options,
			CorrectAnswer: qDto.CorrectAnswer,
			OrderInTest:   qDto.OrderInTest,
		})
	}

	test := model.Test{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		MinScore:        req.MinScore,
		JobPostingID:    req.JobPostingID,
		Questions:       questions,
	}

	if err := s.testRepo.Create(&test); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Failed to create test")
		return nil, fmt.Errorf("database error creating test: %w", err)
	}

	created, err := s.testRepo.FindByIDWithQuestions(test.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("Failed to reload created test for response")
		var fallback dto.TestResponseDTO
		copier.Copy(&fallback, &test)
		return &fallback, nil
	}

	var resp dto.TestResponseDTO
	if err := copier.Copy(&resp, created); err != nil {
		log.Error().Err(err).Msg("Failed to copy created test to response DTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	return &resp, nil
}

func (s *testService) GetTest(id uint) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching test %d: %w", id, err)
	}
	var resp dto.TestResponseDTO
	if err := copier.Copy(&resp, test); err != nil {
		return nil, fmt.Errorf("error preparing test response: %w", err)
	}
	return &resp, nil
}

func (s *testService) GetAllTests() ([]dto.TestSummaryDTO, error) {
	testsWithCount, err := s.testRepo.FindAllWithQuestionCount()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tests with question count")
		return nil, fmt.Errorf("error fetching tests: %w", err)
	}

	summaries := make([]dto.TestSummaryDTO, 0, len(testsWithCount))
	for _, twc := range testsWithCount {
		summaries = append(summaries, dto.TestSummaryDTO{
			ID:              twc.Test.ID,
			Title:           twc.Test.Title,
			Description:     twc.Test.Description,
			DurationMinutes: twc.Test.DurationMinutes,
			MinScore:        twc.Test.MinScore,
			JobPostingID:    twc.Test.JobPostingID,
			QuestionCount:   twc.QuestionCount,
			CreatedAt:       twc.Test.CreatedAt,
		})
	}
	return summaries, nil
}

// GetTestByJobPosting is the candidate read path: the test linked to a job
// posting, with correct answers stripped.
func (s *testService) GetTestByJobPosting(jobPostingID uint) (*dto.CandidateTestDTO, error) {
	test, err := s.testRepo.FindByJobPosting(jobPostingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no test for job posting %d: %w", jobPostingID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching test for job posting %d: %w", jobPostingID, err)
	}
	return candidateTestView(test), nil
}

func (s *testService) UpdateTest(id uint, req dto.TestUpdateDTO) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching test %d: %w", id, err)
	}

	test.Title = req.Title
	test.Description = req.Description
	test.DurationMinutes = req.DurationMinutes
	test.MinScore = req.MinScore
	test.JobPostingID = req.JobPostingID

	if err := s.testRepo.Update(test); err != nil {
		log.Error().Err(err).Uint("testID", id).Msg("Failed to update test")
		return nil, fmt.Errorf("updating test %d: %w", id, err)
	}

	var resp dto.TestResponseDTO
	copier.Copy(&resp, test)
	return &resp, nil
}

func (s *testService) DeleteTest(id uint) error {
	if _, err := s.testRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("test %d: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("fetching test %d: %w", id, err)
	}
	if err := s.testRepo.Delete(id); err != nil {
		log.Error().Err(err).Uint("testID", id).Msg("Failed to delete test")
		return fmt.Errorf("deleting test %d: %w", id, err)
	}
	return nil
}
