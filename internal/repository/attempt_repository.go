package repository

import (
	"time"

	"recruitment-service/internal/model"

	"gorm.io/gorm"
)

// FinishUpdate carries everything a terminal transition writes. The write is
// atomic: either the row flips to the terminal state with its answers, or
// nothing changes.
type FinishUpdate struct {
	Status     string
	Score      float64
	FinishedAt time.Time
	Answers    []model.AttemptAnswer
}

type AttemptRepository interface {
	Create(attempt *model.TestAttempt) error
	FindByID(id uint) (*model.TestAttempt, error)
	FindByIDWithDetails(id uint) (*model.TestAttempt, error)
	FindByCandidateAndTest(candidateID, testID uint) (*model.TestAttempt, error)
	FindAllByCandidate(candidateID uint) ([]model.TestAttempt, error)
	StartIfAssigned(id uint, startedAt time.Time) (bool, error)
	FinishIfRunning(id uint, update FinishUpdate) (bool, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.TestAttempt) error {
	// The idx_candidate_test unique index rejects a second ledger for the same
	// (candidate, test) pair with gorm.ErrDuplicatedKey.
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByIDWithDetails(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.
		Preload("Test").
		Preload("Test.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_test ASC")
		}).
		Preload("Answers").
		First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByCandidateAndTest(candidateID, testID uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.Where("candidate_id = ? AND test_id = ?", candidateID, testID).First(&attempt).Error
	return &attempt, err
}

func (r *attemptRepository) FindAllByCandidate(candidateID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.
		Preload("Test").
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// StartIfAssigned flips an assigned attempt to in_progress, recording the
// start time exactly once. Returns false when the row was not in assigned,
// so a concurrent open that lost the race can re-read the winner's StartedAt.
func (r *attemptRepository) StartIfAssigned(id uint, startedAt time.Time) (bool, error) {
	res := r.db.Model(&model.TestAttempt{}).
		Where("id = ? AND status = ?", id, model.StatusAssigned).
		Updates(map[string]interface{}{
			"status":     model.StatusInProgress,
			"started_at": startedAt,
		})
	return res.RowsAffected > 0, res.Error
}

// FinishIfRunning performs the single terminal write for an attempt. The
// status guard makes it a check-and-set: of two concurrent submissions,
// exactly one observes RowsAffected > 0. Answers are replaced in the same
// transaction so a reader never sees a terminal row with half its answers.
func (r *attemptRepository) FinishIfRunning(id uint, update FinishUpdate) (bool, error) {
	won := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TestAttempt{}).
			Where("id = ? AND status IN ?", id, model.RunningStatuses()).
			Updates(map[string]interface{}{
				"status":      update.Status,
				"score":       update.Score,
				"finished_at": update.FinishedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		if err := tx.Unscoped().Where("test_attempt_id = ?", id).Delete(&model.AttemptAnswer{}).Error; err != nil {
			return err
		}
		if len(update.Answers) == 0 {
			return nil
		}
		for i := range update.Answers {
			update.Answers[i].TestAttemptID = id
		}
		return tx.Create(&update.Answers).Error
	})
	if err != nil {
		return false, err
	}
	return won, nil
}
