package repository

import (
	"recruitment-service/internal/model"

	"gorm.io/gorm"
)

type TestRepository interface {
	Create(test *model.Test) error
	FindByID(id uint) (*model.Test, error)
	FindByIDWithQuestions(id uint) (*model.Test, error)
	FindByJobPosting(jobPostingID uint) (*model.Test, error)
	FindAllWithQuestionCount() ([]TestWithQuestionCount, error)
	Update(test *model.Test) error
	Delete(id uint) error
}

type TestWithQuestionCount struct {
	model.Test
	QuestionCount int
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) Create(test *model.Test) error {
	// GORM creates the associated questions along with the test.
	return r.db.Create(test).Error
}

func (r *testRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.First(&test, id).Error
	return &test, err
}

func (r *testRepository) FindByIDWithQuestions(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.order_in_test ASC")
	}).First(&test, id).Error
	return &test, err
}

func (r *testRepository) FindByJobPosting(jobPostingID uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.order_in_test ASC")
	}).Where("job_posting_id = ?", jobPostingID).First(&test).Error
	return &test, err
}

func (r *testRepository) FindAllWithQuestionCount() ([]TestWithQuestionCount, error) {
	var results []TestWithQuestionCount
	err := r.db.Model(&model.Test{}).
		Select("tests.*, (SELECT COUNT(*) FROM questions WHERE questions.test_id = tests.id AND questions.deleted_at IS NULL) as question_count").
		Where("tests.deleted_at IS NULL").
		Order("tests.created_at DESC").
		Scan(&results).Error
	return results, err
}

func (r *testRepository) Update(test *model.Test) error {
	return r.db.Save(test).Error
}

func (r *testRepository) Delete(id uint) error {
	// Questions go with the test; attempt ledgers are kept for audit.
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Test{}, id).Error
	})
}
