package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/form"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	LeaderboardLimit = 500
	PointsPerCorrect = 1

	playAttempts = 3
)

var (
	ErrAttemptNotFound  = errors.New("attempted question not found")
	ErrChoiceNotFound   = errors.New("choice not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrAlreadyAnswered  = errors.New("attempted question already answered")
	ErrCategoryName     = errors.New("category name must be 1 to 250 characters")
)

type Leaderboard struct {
	TopQuizProfiles []QuizProfile
	// TotalCount is the number of returned profiles, never more than LeaderboardLimit.
	TotalCount int
}

type ProfileSummary struct {
	Profile  *QuizProfile
	Answered int64
	Correct  int64
}

type QuizService interface {
	GetOrCreateProfile(ctx context.Context, userID uuid.UUID) (*QuizProfile, error)
	NextQuestion(ctx context.Context, profile *QuizProfile) (*Question, error)
	CreateAttempt(ctx context.Context, profile *QuizProfile, question *Question) (*AttemptedQuestion, error)
	Play(ctx context.Context, userID uuid.UUID) (*Question, error)
	SubmitAnswer(ctx context.Context, userID, questionID, choiceID uuid.UUID) (*AttemptedQuestion, error)
	GetAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptedQuestion, error)
	Leaderboard(ctx context.Context) (*Leaderboard, error)
	ProfileSummary(ctx context.Context, userID uuid.UUID) (*ProfileSummary, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	AddQuestion(ctx context.Context, q form.QuestionForm, choices form.ChoiceFormset) (*Question, form.Errors, error)
}

type quizService struct {
	repo   QuizRepository
	db     *gorm.DB
	events EventPublisher
	queue  string
}

func NewService(db *gorm.DB, repo QuizRepository, events EventPublisher, queue string) QuizService {
	return &quizService{
		repo:   repo,
		db:     db,
		events: events,
		queue:  queue,
	}
}

func (s *quizService) GetOrCreateProfile(ctx context.Context, userID uuid.UUID) (*QuizProfile, error) {
	log := config.WithContext(ctx)

	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to load quiz profile")
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	profile, err = s.repo.EnsureProfile(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to create quiz profile")
		return nil, err
	}
	log.WithField("profile_id", profile.ID.String()).Info("Quiz profile created")
	return profile, nil
}

func (s *quizService) NextQuestion(ctx context.Context, profile *QuizProfile) (*Question, error) {
	question, err := s.repo.FindUnattemptedQuestion(ctx, profile.ID)
	if err != nil {
		config.WithContext(ctx).WithError(err).Error("Failed to pick next question")
		return nil, err
	}
	return question, nil
}

// CreateAttempt records that question was shown to profile. When a
// concurrent request already recorded it, the stored attempt is returned.
func (s *quizService) CreateAttempt(ctx context.Context, profile *QuizProfile, question *Question) (*AttemptedQuestion, error) {
	log := config.WithContext(ctx)

	attempt := &AttemptedQuestion{
		QuizProfileID: profile.ID,
		QuestionID:    question.ID,
	}
	created, err := s.repo.CreateAttempt(ctx, attempt)
	if err != nil {
		log.WithError(err).Error("Failed to create attempt")
		return nil, err
	}
	if created {
		return attempt, nil
	}

	existing, err := s.repo.GetAttemptByQuestion(ctx, profile.ID, question.ID)
	if err != nil {
		log.WithError(err).Error("Failed to load existing attempt")
		return nil, err
	}
	if existing == nil {
		return nil, ErrAttemptNotFound
	}
	log.WithField("attempt_id", existing.ID.String()).Debug("Question already presented")
	return existing, nil
}

// Play picks a question the user has not seen and records it as an
// unanswered attempt. It returns nil when every question has been attempted.
func (s *quizService) Play(ctx context.Context, userID uuid.UUID) (*Question, error) {
	profile, err := s.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A concurrent request may record and answer the same question between
	// picking and inserting; an answered pick is replaced by a fresh one.
	for i := 0; i < playAttempts; i++ {
		question, err := s.NextQuestion(ctx, profile)
		if err != nil || question == nil {
			return nil, err
		}

		attempt, err := s.CreateAttempt(ctx, profile, question)
		if err != nil {
			return nil, err
		}
		if !attempt.Answered() {
			return question, nil
		}
	}
	return nil, ErrAlreadyAnswered
}

// SubmitAnswer scores choiceID for the caller's attempt at questionID. The
// attempt must belong to the caller and the choice to the question.
func (s *quizService) SubmitAnswer(ctx context.Context, userID, questionID, choiceID uuid.UUID) (*AttemptedQuestion, error) {
	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"question_id": questionID.String(),
		"choice_id":   choiceID.String(),
	})

	profile, err := s.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repo.GetAttemptByQuestion(ctx, profile.ID, questionID)
	if err != nil {
		log.WithError(err).Error("Failed to load attempt")
		return nil, err
	}
	if attempt == nil {
		log.Warn("Submission for a question that was never presented")
		return nil, ErrAttemptNotFound
	}

	choice, err := s.repo.GetChoice(ctx, attempt.QuestionID, choiceID)
	if err != nil {
		log.WithError(err).Error("Failed to load choice")
		return nil, err
	}
	if choice == nil {
		log.Warn("Submitted choice does not belong to the question")
		return nil, ErrChoiceNotFound
	}

	if attempt.Answered() {
		return attempt, ErrAlreadyAnswered
	}

	answeredAt := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&AttemptedQuestion{}).
			Where("id = ? AND selected_choice_id IS NULL", attempt.ID).
			Updates(map[string]any{
				"selected_choice_id": choice.ID,
				"is_correct":         choice.IsCorrect,
				"answered_at":        answeredAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAnswered
		}

		if choice.IsCorrect {
			if err := tx.Model(&QuizProfile{}).
				Where("id = ?", profile.ID).
				Updates(map[string]any{
					"total_score": gorm.Expr("total_score + ?", PointsPerCorrect),
					"updated_at":  answeredAt,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Select("total_score").First(profile, "id = ?", profile.ID).Error
	})
	if errors.Is(err, ErrAlreadyAnswered) {
		return attempt, err
	}
	if err != nil {
		log.WithError(err).Error("Failed to record answer")
		return nil, err
	}

	attempt.SelectedChoiceID = &choice.ID
	attempt.SelectedChoice = choice
	attempt.IsCorrect = choice.IsCorrect
	attempt.AnsweredAt = &answeredAt

	log.WithFields(logrus.Fields{
		"attempt_id":  attempt.ID.String(),
		"correct":     choice.IsCorrect,
		"total_score": profile.TotalScore,
	}).Info("Answer evaluated")

	s.publishEvaluated(ctx, AttemptEvaluated{
		AttemptID:  attempt.ID,
		UserID:     userID,
		QuestionID: attempt.QuestionID,
		ChoiceID:   choice.ID,
		Correct:    choice.IsCorrect,
		TotalScore: profile.TotalScore,
		AnsweredAt: answeredAt,
	})
	return attempt, nil
}

func (s *quizService) publishEvaluated(ctx context.Context, event AttemptEvaluated) {
	if s.events == nil {
		return
	}
	log := config.WithContext(ctx)

	body, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to encode attempt event")
		return
	}
	if err := s.events.Publish(ctx, s.queue, body); err != nil {
		log.WithError(err).Warn("Failed to publish attempt event")
	}
}

func (s *quizService) GetAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptedQuestion, error) {
	log := config.WithContext(ctx)

	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to load quiz profile")
		return nil, err
	}
	if profile == nil {
		return nil, ErrAttemptNotFound
	}

	attempt, err := s.repo.GetAttempt(ctx, profile.ID, attemptID)
	if err != nil {
		log.WithError(err).Error("Failed to load attempt")
		return nil, err
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *quizService) Leaderboard(ctx context.Context) (*Leaderboard, error) {
	profiles, err := s.repo.TopProfiles(ctx, LeaderboardLimit)
	if err != nil {
		config.WithContext(ctx).WithError(err).Error("Failed to load leaderboard")
		return nil, err
	}
	return &Leaderboard{
		TopQuizProfiles: profiles,
		TotalCount:      len(profiles),
	}, nil
}

func (s *quizService) ProfileSummary(ctx context.Context, userID uuid.UUID) (*ProfileSummary, error) {
	profile, err := s.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	answered, correct, err := s.repo.CountAttempts(ctx, profile.ID)
	if err != nil {
		config.WithContext(ctx).WithError(err).Error("Failed to count attempts")
		return nil, err
	}
	return &ProfileSummary{Profile: profile, Answered: answered, Correct: correct}, nil
}

func (s *quizService) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		config.WithContext(ctx).WithError(err).Error("Failed to list categories")
		return nil, err
	}
	return categories, nil
}

func (s *quizService) CreateCategory(ctx context.Context, name string) (*Category, error) {
	log := config.WithContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 250 {
		return nil, ErrCategoryName
	}

	existing, err := s.repo.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrCategoryExists
	}

	category := &Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		log.WithError(err).Error("Failed to create category")
		return nil, err
	}
	log.WithField("category_id", category.ID.String()).Info("Category created")
	return category, nil
}

func (s *quizService) requireCategory(ctx context.Context, id uuid.UUID) error {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	return nil
}

// AddQuestion validates the question form together with its choice formset
// and stores both only when every field is valid.
func (s *quizService) AddQuestion(ctx context.Context, qf form.QuestionForm, choices form.ChoiceFormset) (*Question, form.Errors, error) {
	log := config.WithContext(ctx)

	qf.Clean()
	choices.Clean()

	errs := form.Validate(qf)
	errs.Merge("", choices.Validate())

	var categoryID uuid.UUID
	if len(errs.Get("category")) == 0 {
		categoryID = uuid.MustParse(qf.Category)
		err := s.requireCategory(ctx, categoryID)
		switch {
		case errors.Is(err, ErrCategoryNotFound):
			errs.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			log.WithError(err).Error("Failed to load category")
			return nil, errs, err
		}
	}
	if !errs.Valid() {
		return nil, errs, nil
	}

	question := &Question{CategoryID: categoryID, HTML: qf.HTML}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Choices", "Category").Create(question).Error; err != nil {
			return fmt.Errorf("create question: %w", err)
		}

		rows := make([]Choice, 0, len(choices.Choices))
		for i, c := range choices.Choices {
			rows = append(rows, Choice{
				QuestionID: question.ID,
				HTML:       c.HTML,
				IsCorrect:  c.IsCorrect,
				Position:   i,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("create choices: %w", err)
		}
		question.Choices = rows
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to save question")
		return nil, errs, err
	}

	log.WithField("question_id", question.ID.String()).Info("Question created")
	return question, errs, nil
}
