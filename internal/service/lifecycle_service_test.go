package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"recruitment-service/internal/apperr"
	"recruitment-service/internal/dto"
	"recruitment-service/internal/model"
	"recruitment-service/internal/notify"
	"recruitment-service/internal/repository"
)

// --- fakes ---

type fakeTestRepo struct {
	tests map[uint]*model.Test
}

func newFakeTestRepo(tests ...*model.Test) *fakeTestRepo {
	r := &fakeTestRepo{tests: make(map[uint]*model.Test)}
	for _, t := range tests {
		r.tests[t.ID] = t
	}
	return r
}

func (r *fakeTestRepo) Create(test *model.Test) error {
	r.tests[test.ID] = test
	return nil
}

func (r *fakeTestRepo) FindByID(id uint) (*model.Test, error) {
	t, ok := r.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *fakeTestRepo) FindByIDWithQuestions(id uint) (*model.Test, error) {
	return r.FindByID(id)
}

func (r *fakeTestRepo) FindByJobPosting(jobPostingID uint) (*model.Test, error) {
	for _, t := range r.tests {
		if t.JobPostingID != nil && *t.JobPostingID == jobPostingID {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTestRepo) FindAllWithQuestionCount() ([]repository.TestWithQuestionCount, error) {
	var out []repository.TestWithQuestionCount
	for _, t := range r.tests {
		out = append(out, repository.TestWithQuestionCount{Test: *t, QuestionCount: len(t.Questions)})
	}
	return out, nil
}

func (r *fakeTestRepo) Update(test *model.Test) error { r.tests[test.ID] = test; return nil }
func (r *fakeTestRepo) Delete(id uint) error          { delete(r.tests, id); return nil }

type attemptKey struct {
	candidateID uint
	testID      uint
}

// fakeAttemptRepo mimics the postgres repository: a unique (candidate, test)
// key and status-guarded conditional updates, guarded by a mutex so the
// concurrency tests exercise the same single-winner semantics.
type fakeAttemptRepo struct {
	mu      sync.Mutex
	nextID  uint
	byKey   map[attemptKey]*model.TestAttempt
	byID    map[uint]*model.TestAttempt
	answers map[uint][]model.AttemptAnswer
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{
		nextID:  1,
		byKey:   make(map[attemptKey]*model.TestAttempt),
		byID:    make(map[uint]*model.TestAttempt),
		answers: make(map[uint][]model.AttemptAnswer),
	}
}

func (r *fakeAttemptRepo) Create(attempt *model.TestAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attemptKey{attempt.CandidateID, attempt.TestID}
	if _, exists := r.byKey[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	attempt.ID = r.nextID
	r.nextID++
	stored := *attempt
	r.byKey[key] = &stored
	r.byID[stored.ID] = &stored
	return nil
}

func (r *fakeAttemptRepo) FindByID(id uint) (*model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *a
	return &copy, nil
}

func (r *fakeAttemptRepo) FindByIDWithDetails(id uint) (*model.TestAttempt, error) {
	return r.FindByID(id)
}

func (r *fakeAttemptRepo) FindByCandidateAndTest(candidateID, testID uint) (*model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byKey[attemptKey{candidateID, testID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *a
	return &copy, nil
}

func (r *fakeAttemptRepo) FindAllByCandidate(candidateID uint) ([]model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range r.byID {
		if a.CandidateID == candidateID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) StartIfAssigned(id uint, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Status != model.StatusAssigned {
		return false, nil
	}
	a.Status = model.StatusInProgress
	a.StartedAt = &startedAt
	return true, nil
}

func (r *fakeAttemptRepo) FinishIfRunning(id uint, update repository.FinishUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.IsTerminal() {
		return false, nil
	}
	a.Status = update.Status
	a.Score = update.Score
	finishedAt := update.FinishedAt
	a.FinishedAt = &finishedAt
	r.answers[id] = update.Answers
	return true, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Publish(event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) byKind(kind notify.EventKind) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func sampleTest() *model.Test {
	return &model.Test{
		ID:              1,
		Title:           "Backend Skills Test",
		DurationMinutes: 10,
		MinScore:        12,
		Questions: []model.Question{
			{ID: 1, TestID: 1, OrderInTest: 1, CorrectAnswer: "a"},
			{ID: 2, TestID: 1, OrderInTest: 2, CorrectAnswer: "b"},
			{ID: 3, TestID: 1, OrderInTest: 3, CorrectAnswer: "c"},
			{ID: 4, TestID: 1, OrderInTest: 4, CorrectAnswer: "d"},
		},
	}
}

func newEngine(now time.Time) (LifecycleService, *fakeAttemptRepo, *recordingNotifier) {
	attempts := newFakeAttemptRepo()
	notifier := &recordingNotifier{}
	svc := NewLifecycleService(newFakeTestRepo(sampleTest()), attempts, notifier, fixedClock(now))
	return svc, attempts, notifier
}

// --- tests ---

func TestAssignTestCreatesLedgerOnce(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, attempts, notifier := newEngine(now)

	summary, err := svc.AssignTest(7, 1)
	if err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if summary.Status != model.StatusAssigned {
		t.Errorf("expected status assigned, got %s", summary.Status)
	}
	if summary.AssignedAt == nil || !summary.AssignedAt.Equal(now) {
		t.Errorf("expected assignedAt %v, got %v", now, summary.AssignedAt)
	}

	if _, err := svc.AssignTest(7, 1); !errors.Is(err, apperr.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned on duplicate assign, got %v", err)
	}

	if got := len(notifier.byKind(notify.KindAssigned)); got != 1 {
		t.Errorf("expected exactly 1 assigned event, got %d", got)
	}
	if len(attempts.byID) != 1 {
		t.Errorf("expected exactly 1 ledger row, got %d", len(attempts.byID))
	}
}

func TestAssignTestUnknownTest(t *testing.T) {
	svc, _, _ := newEngine(time.Now())
	if _, err := svc.AssignTest(7, 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenTestStartsClockOnce(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	notifier := &recordingNotifier{}
	testRepo := newFakeTestRepo(sampleTest())

	svc := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start))
	if _, err := svc.AssignTest(7, 1); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	first, err := svc.OpenTest(7, 1)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if first.Status != model.StatusInProgress {
		t.Errorf("expected in_progress, got %s", first.Status)
	}
	if first.StartedAt == nil || !first.StartedAt.Equal(start) {
		t.Errorf("expected startedAt %v, got %v", start, first.StartedAt)
	}

	// Re-open two minutes later: same StartedAt, clock not reset.
	later := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start.Add(2*time.Minute)))
	second, err := later.OpenTest(7, 1)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	if second.StartedAt == nil || !second.StartedAt.Equal(start) {
		t.Errorf("resume should keep startedAt %v, got %v", start, second.StartedAt)
	}
	if second.RemainingSeconds == nil || *second.RemainingSeconds != 8*60 {
		t.Errorf("expected 480 remaining seconds, got %v", second.RemainingSeconds)
	}
}

func TestOpenTestWithoutAssignmentCreatesInProgress(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, attempts, _ := newEngine(now)

	resp, err := svc.OpenTest(7, 1)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if resp.Status != model.StatusInProgress {
		t.Errorf("expected in_progress, got %s", resp.Status)
	}
	if resp.Test == nil || len(resp.Test.Questions) != 4 {
		t.Fatalf("expected test content with 4 questions, got %+v", resp.Test)
	}

	stored, err := attempts.FindByCandidateAndTest(7, 1)
	if err != nil {
		t.Fatalf("ledger not created: %v", err)
	}
	if stored.StartedAt == nil || !stored.StartedAt.Equal(now) {
		t.Errorf("expected startedAt %v, got %v", now, stored.StartedAt)
	}
}

func TestOpenTestPastDeadlineReportsClosedWithoutWrite(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	testRepo := newFakeTestRepo(sampleTest())
	notifier := &recordingNotifier{}

	opener := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start))
	if _, err := opener.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// 11 minutes later, past the 10 minute duration.
	late := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start.Add(11*time.Minute)))
	resp, err := late.OpenTest(7, 1)
	if err != nil {
		t.Fatalf("late open failed: %v", err)
	}
	if !resp.Closed {
		t.Error("expected closed=true after deadline")
	}
	if resp.RemainingSeconds == nil || *resp.RemainingSeconds != 0 {
		t.Errorf("expected 0 remaining seconds, got %v", resp.RemainingSeconds)
	}

	// Storage is only corrected on the next write.
	stored, _ := attempts.FindByCandidateAndTest(7, 1)
	if stored.Status != model.StatusInProgress {
		t.Errorf("expected stored status still in_progress, got %s", stored.Status)
	}
}

func TestOpenTestTerminalReturnsStoredResult(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	testRepo := newFakeTestRepo(sampleTest())
	notifier := &recordingNotifier{}

	svc := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start))
	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := svc.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"},
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	resp, err := svc.OpenTest(7, 1)
	if err != nil {
		t.Fatalf("re-open failed: %v", err)
	}
	if !resp.AlreadyCompleted {
		t.Error("expected already_completed on terminal attempt")
	}
	if resp.Status != model.StatusPassed {
		t.Errorf("expected status passed, got %s", resp.Status)
	}
	if resp.Score == nil || *resp.Score != 20 {
		t.Errorf("expected stored score 20, got %v", resp.Score)
	}
}

func TestSubmitScoresAndPasses(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, attempts, notifier := newEngine(now)

	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// Case and whitespace insensitive: 3 of 4 correct, score 15 >= min 12.
	result, err := svc.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "A", 2: " b ", 3: "x", 4: "d"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.CorrectCount != 3 {
		t.Errorf("expected 3 correct, got %d", result.CorrectCount)
	}
	if result.Score != 15 {
		t.Errorf("expected score 15, got %f", result.Score)
	}
	if result.Status != model.StatusPassed {
		t.Errorf("expected passed, got %s", result.Status)
	}

	finished := notifier.byKind(notify.KindFinished)
	if len(finished) != 1 {
		t.Fatalf("expected exactly 1 finished event, got %d", len(finished))
	}
	if finished[0].Status != model.StatusPassed || finished[0].Score == nil || *finished[0].Score != 15 {
		t.Errorf("finished event should carry final state and score, got %+v", finished[0])
	}

	stored, _ := attempts.FindByCandidateAndTest(7, 1)
	if stored.FinishedAt == nil || !stored.FinishedAt.Equal(now) {
		t.Errorf("expected finishedAt %v, got %v", now, stored.FinishedAt)
	}
}

func TestSubmitBelowThresholdFails(t *testing.T) {
	svc, _, _ := newEngine(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	// 2 of 4 correct: score 10 < min 12.
	result, err := svc.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "nope", 4: "nope"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != model.StatusFailed {
		t.Errorf("expected failed, got %s", result.Status)
	}
	if result.Score != 10 {
		t.Errorf("expected score 10, got %f", result.Score)
	}
}

func TestSubmitAfterDeadlineExpiresRegardlessOfAnswers(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	testRepo := newFakeTestRepo(sampleTest())
	notifier := &recordingNotifier{}

	opener := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start))
	if _, err := opener.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// Submit 11 minutes after the server-recorded start of a 10 minute test,
	// with every answer correct.
	late := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start.Add(11*time.Minute)))
	result, err := late.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != model.StatusExpired {
		t.Errorf("expected expired, got %s", result.Status)
	}
	if result.Score != 0 {
		t.Errorf("expired submission must score 0, got %f", result.Score)
	}

	// Answers are still recorded for audit.
	stored, _ := attempts.FindByCandidateAndTest(7, 1)
	if len(attempts.answers[stored.ID]) != 4 {
		t.Errorf("expected 4 recorded answers on expired attempt, got %d", len(attempts.answers[stored.ID]))
	}
}

func TestSubmitIgnoresClientStartWhenServerStartExists(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	testRepo := newFakeTestRepo(sampleTest())
	notifier := &recordingNotifier{}

	opener := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start))
	if _, err := opener.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// The client claims it started just now, but the server knows better.
	now := start.Add(11 * time.Minute)
	claimed := now.Add(-1 * time.Minute).UnixMilli()
	late := NewLifecycleService(testRepo, attempts, notifier, fixedClock(now))
	result, err := late.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a"},
		StartTime:   &claimed,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != model.StatusExpired {
		t.Errorf("server start is authoritative; expected expired, got %s", result.Status)
	}
}

func TestDoubleSubmitYieldsOneTerminalWriteAndOneEvent(t *testing.T) {
	svc, _, notifier := newEngine(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	req := dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"},
	}

	if _, err := svc.SubmitTest(1, req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := svc.SubmitTest(1, req); !errors.Is(err, apperr.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished on second submit, got %v", err)
	}

	if got := len(notifier.byKind(notify.KindFinished)); got != 1 {
		t.Errorf("expected exactly 1 finished event, got %d", got)
	}
}

func TestConcurrentSubmitsExactlyOneWinner(t *testing.T) {
	svc, _, notifier := newEngine(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	req := dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"},
	}

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitTest(1, req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrAlreadyFinished):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winning submit, got %d", wins)
	}
	if conflicts != callers-1 {
		t.Errorf("expected %d conflicts, got %d", callers-1, conflicts)
	}
	if got := len(notifier.byKind(notify.KindFinished)); got != 1 {
		t.Errorf("expected exactly 1 finished event, got %d", got)
	}
}

func TestNotifierFailureDoesNotFailSubmission(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc := NewLifecycleService(newFakeTestRepo(sampleTest()), attempts, notifier, fixedClock(now))

	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	result, err := svc.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"},
	})
	if err != nil {
		t.Fatalf("submission must not fail on notifier error, got %v", err)
	}
	if result.Status != model.StatusPassed {
		t.Errorf("expected passed, got %s", result.Status)
	}

	stored, _ := attempts.FindByCandidateAndTest(7, 1)
	if stored.Status != model.StatusPassed {
		t.Errorf("terminal write must have committed, got %s", stored.Status)
	}
}

func TestSubmitInvalidInput(t *testing.T) {
	svc, _, _ := newEngine(time.Now())

	if _, err := svc.SubmitTest(1, dto.SubmitTestRequest{CandidateID: 0}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing candidate, got %v", err)
	}
	if _, err := svc.SubmitTest(1, dto.SubmitTestRequest{CandidateID: 7, Answers: nil}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing answers, got %v", err)
	}
}

func TestSendReminderOnlyWhileRunning(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	attempts := newFakeAttemptRepo()
	testRepo := newFakeTestRepo(sampleTest())
	notifier := &recordingNotifier{}

	svc := NewLifecycleService(testRepo, attempts, notifier, fixedClock(start))
	if _, err := svc.AssignTest(7, 1); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	stored, _ := attempts.FindByCandidateAndTest(7, 1)

	// Reminders on a fake need the test preloaded; mirror FindByIDWithDetails.
	attempts.byID[stored.ID].Test = *testRepo.tests[1]

	reminder, err := svc.SendReminder(stored.ID)
	if err != nil {
		t.Fatalf("reminder failed: %v", err)
	}
	if reminder.RemainingTime != "10 minutes" {
		t.Errorf("expected '10 minutes' remaining, got %q", reminder.RemainingTime)
	}
	if got := len(notifier.byKind(notify.KindReminder)); got != 1 {
		t.Errorf("expected 1 reminder event, got %d", got)
	}

	if _, err := svc.OpenTest(7, 1); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := svc.SubmitTest(1, dto.SubmitTestRequest{
		CandidateID: 7,
		Answers:     map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"},
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := svc.SendReminder(stored.ID); !errors.Is(err, apperr.ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished for terminal attempt, got %v", err)
	}
}
