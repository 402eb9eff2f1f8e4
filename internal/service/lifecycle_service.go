package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"recruitment-service/internal/apperr"
	"recruitment-service/internal/dto"
	"recruitment-service/internal/model"
	"recruitment-service/internal/notify"
	"recruitment-service/internal/repository"
	"recruitment-service/internal/scoring"
)

// LifecycleService is the attempt state machine. Every attempt moves
// assigned -> in_progress -> exactly one of passed/failed/expired, and each
// transition into a terminal state fires exactly one finished event.
type LifecycleService interface {
	AssignTest(candidateID, testID uint) (*dto.AttemptSummaryDTO, error)
	OpenTest(candidateID, testID uint) (*dto.OpenTestResponse, error)
	SubmitTest(testID uint, req dto.SubmitTestRequest) (*dto.SubmitTestResponse, error)
	SendReminder(attemptID uint) (*dto.ReminderResponseDTO, error)
}

type lifecycleService struct {
	testRepo    repository.TestRepository
	attemptRepo repository.AttemptRepository
	notifier    notify.Notifier
	clock       Clock
}

func NewLifecycleService(
	testRepo repository.TestRepository,
	attemptRepo repository.AttemptRepository,
	notifier notify.Notifier,
	clock Clock,
) LifecycleService {
	return &lifecycleService{
		testRepo:    testRepo,
		attemptRepo: attemptRepo,
		notifier:    notifier,
		clock:       clock,
	}
}

// AssignTest pre-creates the attempt ledger for a candidate. The unique
// (candidate, test) index backs the at-most-one-ledger rule; a lost race
// surfaces as ErrAlreadyAssigned just like a plain duplicate call.
func (s *lifecycleService) AssignTest(candidateID, testID uint) (*dto.AttemptSummaryDTO, error) {
	if candidateID == 0 || testID == 0 {
		return nil, fmt.Errorf("%w: candidate_id and test_id are required", apperr.ErrInvalidInput)
	}

	test, err := s.testRepo.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching test %d: %w", testID, err)
	}

	if _, err := s.attemptRepo.FindByCandidateAndTest(candidateID, testID); err == nil {
		return nil, fmt.Errorf("candidate %d, test %d: %w", candidateID, testID, apperr.ErrAlreadyAssigned)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking existing attempt: %w", err)
	}

	now := s.clock()
	attempt := model.TestAttempt{
		CandidateID: candidateID,
		TestID:      testID,
		Status:      model.StatusAssigned,
		AssignedAt:  &now,
	}
	if err := s.attemptRepo.Create(&attempt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("candidate %d, test %d: %w", candidateID, testID, apperr.ErrAlreadyAssigned)
		}
		log.Error().Err(err).Uint("candidateID", candidateID).Uint("testID", testID).Msg("AssignTest: failed to create attempt ledger")
		return nil, fmt.Errorf("creating attempt: %w", err)
	}

	s.emit(notify.Event{
		ID:          uuid.NewString(),
		Kind:        notify.KindAssigned,
		CandidateID: candidateID,
		TestID:      testID,
		TestTitle:   test.Title,
		EmittedAt:   now,
	})

	summary := s.summarize(&attempt)
	summary.TestTitle = test.Title
	return summary, nil
}

// OpenTest starts or resumes an attempt. Terminal attempts return the stored
// result without mutation; an in_progress attempt keeps its original
// StartedAt so a reconnecting candidate does not get a fresh clock.
func (s *lifecycleService) OpenTest(candidateID, testID uint) (*dto.OpenTestResponse, error) {
	if candidateID == 0 || testID == 0 {
		return nil, fmt.Errorf("%w: candidate_id and test_id are required", apperr.ErrInvalidInput)
	}

	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching test %d: %w", testID, err)
	}

	now := s.clock()

	attempt, err := s.attemptRepo.FindByCandidateAndTest(candidateID, testID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("fetching attempt: %w", err)
		}
		// No prior assignment: the ledger is created directly in progress.
		attempt = &model.TestAttempt{
			CandidateID: candidateID,
			TestID:      testID,
			Status:      model.StatusInProgress,
			StartedAt:   &now,
		}
		if createErr := s.attemptRepo.Create(attempt); createErr != nil {
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
				log.Error().Err(createErr).Uint("candidateID", candidateID).Uint("testID", testID).Msg("OpenTest: failed to create attempt ledger")
				return nil, fmt.Errorf("creating attempt: %w", createErr)
			}
			// Concurrent open won the insert; use its row.
			attempt, err = s.attemptRepo.FindByCandidateAndTest(candidateID, testID)
			if err != nil {
				return nil, fmt.Errorf("re-reading attempt: %w", err)
			}
		}
	}

	if attempt.IsTerminal() {
		return s.completedResponse(attempt), nil
	}

	if attempt.Status == model.StatusAssigned {
		started, startErr := s.attemptRepo.StartIfAssigned(attempt.ID, now)
		if startErr != nil {
			return nil, fmt.Errorf("starting attempt %d: %w", attempt.ID, startErr)
		}
		if started {
			attempt.Status = model.StatusInProgress
			attempt.StartedAt = &now
		} else {
			// Lost the start race; read whichever state won.
			attemptID := attempt.ID
			attempt, err = s.attemptRepo.FindByID(attemptID)
			if err != nil {
				return nil, fmt.Errorf("re-reading attempt %d: %w", attemptID, err)
			}
			if attempt.IsTerminal() {
				return s.completedResponse(attempt), nil
			}
		}
	}

	resp := &dto.OpenTestResponse{
		Status:    attempt.Status,
		StartedAt: attempt.StartedAt,
		Test:      candidateTestView(test),
	}
	if deadline := attempt.Deadline(test); deadline != nil {
		remaining := int64(deadline.Sub(now).Seconds())
		if remaining <= 0 {
			// Deadline already passed. The row stays in_progress until the
			// next write, but the caller is told the attempt is closed.
			remaining = 0
			resp.Closed = true
		}
		resp.RemainingSeconds = &remaining
	}
	return resp, nil
}

// SubmitTest is the only path into a terminal state. The conditional terminal
// write guarantees that of any number of concurrent submissions exactly one
// scores, writes and notifies; the rest observe ErrAlreadyFinished.
func (s *lifecycleService) SubmitTest(testID uint, req dto.SubmitTestRequest) (*dto.SubmitTestResponse, error) {
	if req.CandidateID == 0 || testID == 0 {
		return nil, fmt.Errorf("%w: candidate_id and test_id are required", apperr.ErrInvalidInput)
	}
	if req.Answers == nil {
		return nil, fmt.Errorf("%w: answers payload is required", apperr.ErrInvalidInput)
	}

	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching test %d: %w", testID, err)
	}

	now := s.clock()

	attempt, err := s.attemptRepo.FindByCandidateAndTest(req.CandidateID, testID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("fetching attempt: %w", err)
		}
		// Submission without a prior open. The only usable start time is the
		// client's claim, clamped so it cannot lie in the future.
		startedAt := now
		if req.StartTime != nil {
			claimed := time.UnixMilli(*req.StartTime)
			if claimed.Before(now) {
				startedAt = claimed
			}
		}
		attempt = &model.TestAttempt{
			CandidateID: req.CandidateID,
			TestID:      testID,
			Status:      model.StatusInProgress,
			StartedAt:   &startedAt,
		}
		if createErr := s.attemptRepo.Create(attempt); createErr != nil {
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
				log.Error().Err(createErr).Uint("candidateID", req.CandidateID).Uint("testID", testID).Msg("SubmitTest: failed to create attempt ledger")
				return nil, fmt.Errorf("creating attempt: %w", createErr)
			}
			attempt, err = s.attemptRepo.FindByCandidateAndTest(req.CandidateID, testID)
			if err != nil {
				return nil, fmt.Errorf("re-reading attempt: %w", err)
			}
		}
	}

	if attempt.IsTerminal() {
		return nil, fmt.Errorf("attempt %d: %w", attempt.ID, apperr.ErrAlreadyFinished)
	}

	// The server-recorded start is authoritative. The client-supplied start
	// only matters when the ledger has never been started server-side.
	startedAt := now
	if attempt.StartedAt != nil {
		startedAt = *attempt.StartedAt
	} else if req.StartTime != nil {
		claimed := time.UnixMilli(*req.StartTime)
		if claimed.Before(now) {
			startedAt = claimed
		}
	}

	recorded := recordedAnswers(req.Answers)

	if now.Sub(startedAt) > test.Duration() {
		// Too late: expired with score 0. The answers are still recorded for
		// audit, but never scored.
		return s.finish(attempt, test, repository.FinishUpdate{
			Status:     model.StatusExpired,
			Score:      0,
			FinishedAt: now,
			Answers:    recorded,
		}, 0)
	}

	correct, score := scoring.Grade(test.Questions, req.Answers)
	status := model.StatusFailed
	if score >= test.MinScore {
		status = model.StatusPassed
	}

	return s.finish(attempt, test, repository.FinishUpdate{
		Status:     status,
		Score:      score,
		FinishedAt: now,
		Answers:    recorded,
	}, correct)
}

// SendReminder re-notifies a candidate of a pending attempt with the time
// they have left. Terminal attempts can no longer be reminded.
func (s *lifecycleService) SendReminder(attemptID uint) (*dto.ReminderResponseDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d: %w", attemptID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching attempt %d: %w", attemptID, err)
	}
	if attempt.IsTerminal() {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, apperr.ErrAlreadyFinished)
	}

	now := s.clock()
	reference := attempt.StartedAt
	if reference == nil {
		reference = attempt.AssignedAt
	}
	remaining := attempt.Test.Duration()
	if reference != nil {
		remaining = attempt.Test.Duration() - now.Sub(*reference)
		if remaining < 0 {
			remaining = 0
		}
	}
	remainingText := formatRemaining(remaining)

	s.emit(notify.Event{
		ID:            uuid.NewString(),
		Kind:          notify.KindReminder,
		CandidateID:   attempt.CandidateID,
		TestID:        attempt.TestID,
		TestTitle:     attempt.Test.Title,
		RemainingTime: remainingText,
		EmittedAt:     now,
	})

	return &dto.ReminderResponseDTO{
		AttemptID:     attempt.ID,
		CandidateID:   attempt.CandidateID,
		TestTitle:     attempt.Test.Title,
		RemainingTime: remainingText,
		Message:       "Reminder sent",
	}, nil
}

// finish performs the single terminal write and, if this caller won it, fires
// the one finished event. The ledger write commits before the notification,
// so a notifier failure can only ever cost the event, never the result.
func (s *lifecycleService) finish(attempt *model.TestAttempt, test *model.Test, update repository.FinishUpdate, correct int) (*dto.SubmitTestResponse, error) {
	won, err := s.attemptRepo.FinishIfRunning(attempt.ID, update)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("SubmitTest: terminal write failed")
		return nil, fmt.Errorf("finishing attempt %d: %w", attempt.ID, err)
	}
	if !won {
		return nil, fmt.Errorf("attempt %d: %w", attempt.ID, apperr.ErrAlreadyFinished)
	}

	score := update.Score
	s.emit(notify.Event{
		ID:          uuid.NewString(),
		Kind:        notify.KindFinished,
		CandidateID: attempt.CandidateID,
		TestID:      test.ID,
		TestTitle:   test.Title,
		Status:      update.Status,
		Score:       &score,
		EmittedAt:   update.FinishedAt,
	})

	return &dto.SubmitTestResponse{
		AttemptID:    attempt.ID,
		Status:       update.Status,
		Score:        update.Score,
		CorrectCount: correct,
		Message:      submitMessage(update.Status),
	}, nil
}

// emit forwards an event to the notifier. Failures are logged and swallowed:
// the transition that produced the event has already committed.
func (s *lifecycleService) emit(event notify.Event) {
	if err := s.notifier.Publish(event); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Str("kind", string(event.Kind)).Msg("Notification publish failed")
	}
}

func (s *lifecycleService) completedResponse(attempt *model.TestAttempt) *dto.OpenTestResponse {
	score := attempt.Score
	return &dto.OpenTestResponse{
		Status:           attempt.Status,
		AlreadyCompleted: true,
		Score:            &score,
		StartedAt:        attempt.StartedAt,
		FinishedAt:       attempt.FinishedAt,
	}
}

func (s *lifecycleService) summarize(attempt *model.TestAttempt) *dto.AttemptSummaryDTO {
	var summary dto.AttemptSummaryDTO
	if err := copier.Copy(&summary, attempt); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to copy attempt to summary DTO")
	}
	return &summary
}

func recordedAnswers(answers map[uint]string) []model.AttemptAnswer {
	out := make([]model.AttemptAnswer, 0, len(answers))
	for questionID, value := range answers {
		out = append(out, model.AttemptAnswer{QuestionID: questionID, Value: value})
	}
	return out
}

func candidateTestView(test *model.Test) *dto.CandidateTestDTO {
	view := dto.CandidateTestDTO{
		ID:              test.ID,
		Title:           test.Title,
		Description:     test.Description,
		DurationMinutes: test.DurationMinutes,
		JobPostingID:    test.JobPostingID,
	}
	for _, q := range test.Questions {
		view.Questions = append(view.Questions, dto.CandidateQuestionDTO{
			ID:          q.ID,
			Prompt:      q.Prompt,
			Options:     q.Options,
			OrderInTest: q.OrderInTest,
		})
	}
	return &view
}

func submitMessage(status string) string {
	switch status {
	case model.StatusPassed:
		return "Congratulations, you passed the test!"
	case model.StatusExpired:
		return "Time limit exceeded."
	default:
		return "Sorry, you did not pass."
	}
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0 minutes"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dmin", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}
