package quiz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizRepository interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*QuizProfile, error)
	EnsureProfile(ctx context.Context, userID uuid.UUID) (*QuizProfile, error)
	TopProfiles(ctx context.Context, limit int) ([]QuizProfile, error)
	CountAttempts(ctx context.Context, profileID uuid.UUID) (answered, correct int64, err error)

	FindUnattemptedQuestion(ctx context.Context, profileID uuid.UUID) (*Question, error)

	CreateAttempt(ctx context.Context, a *AttemptedQuestion) (bool, error)
	GetAttemptByQuestion(ctx context.Context, profileID, questionID uuid.UUID) (*AttemptedQuestion, error)
	GetAttempt(ctx context.Context, profileID, attemptID uuid.UUID) (*AttemptedQuestion, error)
	GetChoice(ctx context.Context, questionID, choiceID uuid.UUID) (*Choice, error)

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

type quizRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func orderedChoices(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *quizRepository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*QuizProfile, error) {
	var p QuizProfile
	if err := r.db.WithContext(ctx).Preload("User").First(&p, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// EnsureProfile inserts a profile for userID unless one exists and returns
// the stored row. Concurrent callers converge on the same row.
func (r *quizRepository) EnsureProfile(ctx context.Context, userID uuid.UUID) (*QuizProfile, error) {
	if err := CreateProfileTx(r.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}
	return r.GetProfileByUserID(ctx, userID)
}

// CreateProfileTx inserts an empty profile for userID using tx, doing
// nothing when the user already has one.
func CreateProfileTx(tx *gorm.DB, userID uuid.UUID) error {
	p := &QuizProfile{UserID: userID}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(p).Error
}

func (r *quizRepository) TopProfiles(ctx context.Context, limit int) ([]QuizProfile, error) {
	var profiles []QuizProfile
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("total_score DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *quizRepository) CountAttempts(ctx context.Context, profileID uuid.UUID) (int64, int64, error) {
	var answered, correct int64
	base := r.db.WithContext(ctx).Model(&AttemptedQuestion{}).Where("quiz_profile_id = ?", profileID)
	if err := base.Session(&gorm.Session{}).Where("selected_choice_id IS NOT NULL").Count(&answered).Error; err != nil {
		return 0, 0, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_correct = ?", true).Count(&correct).Error; err != nil {
		return 0, 0, err
	}
	return answered, correct, nil
}

func (r *quizRepository) FindUnattemptedQuestion(ctx context.Context, profileID uuid.UUID) (*Question, error) {
	attempted := r.db.Model(&AttemptedQuestion{}).
		Select("question_id").
		Where("quiz_profile_id = ?", profileID)

	var q Question
	err := r.db.WithContext(ctx).
		Preload("Choices", orderedChoices).
		Where("id NOT IN (?)", attempted).
		Order("RANDOM()").
		Take(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// CreateAttempt inserts a unless the profile already has an attempt at the
// same question. It reports whether a row was inserted.
func (r *quizRepository) CreateAttempt(ctx context.Context, a *AttemptedQuestion) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quiz_profile_id"}, {Name: "question_id"}},
		DoNothing: true,
	}).Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *quizRepository) GetAttemptByQuestion(ctx context.Context, profileID, questionID uuid.UUID) (*AttemptedQuestion, error) {
	var a AttemptedQuestion
	if err := r.db.WithContext(ctx).
		Preload("Question").
		First(&a, "quiz_profile_id = ? AND question_id = ?", profileID, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *quizRepository) GetAttempt(ctx context.Context, profileID, attemptID uuid.UUID) (*AttemptedQuestion, error) {
	var a AttemptedQuestion
	if err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Question.Choices", orderedChoices).
		Preload("SelectedChoice").
		First(&a, "id = ? AND quiz_profile_id = ?", attemptID, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *quizRepository) GetChoice(ctx context.Context, questionID, choiceID uuid.UUID) (*Choice, error) {
	var c Choice
	if err := r.db.WithContext(ctx).First(&c, "id = ? AND question_id = ?", choiceID, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *quizRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *quizRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *quizRepository) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	var c Category
	if err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *quizRepository) CreateCategory(ctx context.Context, c *Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}
