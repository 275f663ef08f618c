package quiz_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mariakisialiova/itechart-quiz/internal/form"
	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/mariakisialiova/itechart-quiz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	queues []string
	events []quiz.AttemptEvaluated
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var event quiz.AttemptEvaluated
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	p.queues = append(p.queues, queue)
	p.events = append(p.events, event)
	return nil
}

func newQuizService(t *testing.T) (quiz.QuizService, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := testutil.NewDB(t)
	events := &recordingPublisher{}
	return quiz.NewService(db, quiz.NewRepository(db), events, "quiz.attempt_evaluated"), db, events
}

func correctChoice(q *quiz.Question) quiz.Choice {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c
		}
	}
	panic("question without a correct choice")
}

func wrongChoice(q *quiz.Question) quiz.Choice {
	for _, c := range q.Choices {
		if !c.IsCorrect {
			return c
		}
	}
	panic("question without a wrong choice")
}

func TestPlayNeverRepeatsQuestions(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newQuizService(t)
	u := testutil.CreateUser(t, db, "alice", false)

	const total = 5
	for i := 0; i < total; i++ {
		testutil.CreateQuestion(t, db, "General", fmt.Sprintf("Question %d", i), i%4)
	}

	seen := map[uuid.UUID]bool{}
	for i := 0; i < total; i++ {
		q, err := svc.Play(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, q)
		assert.False(t, seen[q.ID], "question %s served twice", q.ID)
		assert.Len(t, q.Choices, 4)
		seen[q.ID] = true
	}

	q, err := svc.Play(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, q, "expected the empty state once every question was attempted")
}

func TestPlayCreatesProfileLazily(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newQuizService(t)
	u := testutil.CreateUser(t, db, "alice", false)
	require.NoError(t, db.Where("user_id = ?", u.ID).Delete(&quiz.QuizProfile{}).Error)

	q, err := svc.Play(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, q)

	profile, err := svc.GetOrCreateProfile(ctx, u.ID)
	require.NoError(t, err)
	again, err := svc.GetOrCreateProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)
	assert.Zero(t, profile.TotalScore)
}

func TestSubmitAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("CorrectAddsOnePoint", func(t *testing.T) {
		svc, db, events := newQuizService(t)
		u := testutil.CreateUser(t, db, "alice", false)
		testutil.CreateQuestion(t, db, "General", "Q1", 1)

		q, err := svc.Play(ctx, u.ID)
		require.NoError(t, err)

		attempt, err := svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(q).ID)
		require.NoError(t, err)
		assert.True(t, attempt.IsCorrect)
		assert.True(t, attempt.Answered())
		require.NotNil(t, attempt.AnsweredAt)

		summary, err := svc.ProfileSummary(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Profile.TotalScore)
		assert.Equal(t, int64(1), summary.Answered)
		assert.Equal(t, int64(1), summary.Correct)

		require.Len(t, events.events, 1)
		assert.Equal(t, "quiz.attempt_evaluated", events.queues[0])
		assert.Equal(t, attempt.ID, events.events[0].AttemptID)
		assert.True(t, events.events[0].Correct)
		assert.Equal(t, 1, events.events[0].TotalScore)
	})

	t.Run("WrongKeepsScore", func(t *testing.T) {
		svc, db, _ := newQuizService(t)
		u := testutil.CreateUser(t, db, "alice", false)
		testutil.CreateQuestion(t, db, "General", "Q1", 0)

		q, err := svc.Play(ctx, u.ID)
		require.NoError(t, err)

		attempt, err := svc.SubmitAnswer(ctx, u.ID, q.ID, wrongChoice(q).ID)
		require.NoError(t, err)
		assert.False(t, attempt.IsCorrect)
		assert.True(t, attempt.Answered())

		summary, err := svc.ProfileSummary(ctx, u.ID)
		require.NoError(t, err)
		assert.Zero(t, summary.Profile.TotalScore)
		assert.Equal(t, int64(1), summary.Answered)
		assert.Zero(t, summary.Correct)
	})

	t.Run("ForeignChoiceIsNotFound", func(t *testing.T) {
		svc, db, _ := newQuizService(t)
		u := testutil.CreateUser(t, db, "alice", false)
		testutil.CreateQuestion(t, db, "General", "Q1", 0)

		q, err := svc.Play(ctx, u.ID)
		require.NoError(t, err)
		other := testutil.CreateQuestion(t, db, "General", "Unserved", 0)

		_, err = svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(other).ID)
		assert.ErrorIs(t, err, quiz.ErrChoiceNotFound)

		summary, err := svc.ProfileSummary(ctx, u.ID)
		require.NoError(t, err)
		assert.Zero(t, summary.Profile.TotalScore)
		assert.Zero(t, summary.Answered)
	})

	t.Run("UnservedQuestionIsNotFound", func(t *testing.T) {
		svc, db, _ := newQuizService(t)
		u := testutil.CreateUser(t, db, "alice", false)
		q := testutil.CreateQuestion(t, db, "General", "Q1", 0)

		_, err := svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(q).ID)
		assert.ErrorIs(t, err, quiz.ErrAttemptNotFound)
	})

	t.Run("OtherUsersAttemptIsNotFound", func(t *testing.T) {
		svc, db, _ := newQuizService(t)
		alice := testutil.CreateUser(t, db, "alice", false)
		bob := testutil.CreateUser(t, db, "bob", false)
		testutil.CreateQuestion(t, db, "General", "Q1", 0)

		q, err := svc.Play(ctx, alice.ID)
		require.NoError(t, err)

		_, err = svc.SubmitAnswer(ctx, bob.ID, q.ID, correctChoice(q).ID)
		assert.ErrorIs(t, err, quiz.ErrAttemptNotFound)
	})

	t.Run("ResubmissionRejected", func(t *testing.T) {
		svc, db, events := newQuizService(t)
		u := testutil.CreateUser(t, db, "alice", false)
		testutil.CreateQuestion(t, db, "General", "Q1", 2)

		q, err := svc.Play(ctx, u.ID)
		require.NoError(t, err)

		first, err := svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(q).ID)
		require.NoError(t, err)

		again, err := svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(q).ID)
		require.ErrorIs(t, err, quiz.ErrAlreadyAnswered)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)

		summary, err := svc.ProfileSummary(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Profile.TotalScore)
		assert.Len(t, events.events, 1)
	})

	t.Run("PublishFailureIsNotFatal", func(t *testing.T) {
		svc, db, events := newQuizService(t)
		events.err = errors.New("broker down")
		u := testutil.CreateUser(t, db, "alice", false)
		testutil.CreateQuestion(t, db, "General", "Q1", 0)

		q, err := svc.Play(ctx, u.ID)
		require.NoError(t, err)

		attempt, err := svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(q).ID)
		require.NoError(t, err)
		assert.True(t, attempt.IsCorrect)
	})
}

func TestGetAttempt(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newQuizService(t)
	alice := testutil.CreateUser(t, db, "alice", false)
	bob := testutil.CreateUser(t, db, "bob", false)
	testutil.CreateQuestion(t, db, "General", "Q1", 3)

	q, err := svc.Play(ctx, alice.ID)
	require.NoError(t, err)
	submitted, err := svc.SubmitAnswer(ctx, alice.ID, q.ID, wrongChoice(q).ID)
	require.NoError(t, err)

	attempt, err := svc.GetAttempt(ctx, alice.ID, submitted.ID)
	require.NoError(t, err)
	require.NotNil(t, attempt.Question)
	assert.Len(t, attempt.Question.Choices, 4)
	require.NotNil(t, attempt.SelectedChoice)
	assert.Equal(t, wrongChoice(q).ID, attempt.SelectedChoice.ID)

	_, err = svc.GetAttempt(ctx, bob.ID, submitted.ID)
	assert.ErrorIs(t, err, quiz.ErrAttemptNotFound)

	_, err = svc.GetAttempt(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, quiz.ErrAttemptNotFound)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newQuizService(t)

	const users = quiz.LeaderboardLimit + 5
	for i := 0; i < users; i++ {
		u := testutil.CreateUser(t, db, fmt.Sprintf("user%03d", i), false)
		require.NoError(t, db.Model(&quiz.QuizProfile{}).
			Where("user_id = ?", u.ID).
			Update("total_score", i%37).Error)
	}

	board, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Len(t, board.TopQuizProfiles, quiz.LeaderboardLimit)
	assert.Equal(t, quiz.LeaderboardLimit, board.TotalCount)

	for i := 1; i < len(board.TopQuizProfiles); i++ {
		assert.GreaterOrEqual(t, board.TopQuizProfiles[i-1].TotalScore, board.TopQuizProfiles[i].TotalScore)
	}
	require.NotNil(t, board.TopQuizProfiles[0].User)
	assert.NotEmpty(t, board.TopQuizProfiles[0].User.Username)
}

func validFormset() form.ChoiceFormset {
	var f form.ChoiceFormset
	for i := range f.Choices {
		f.Choices[i].HTML = fmt.Sprintf("Choice %d", i)
	}
	f.Choices[0].IsCorrect = true
	return f
}

func TestAddQuestion(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		svc, db, _ := newQuizService(t)
		category, err := svc.CreateCategory(ctx, "Science")
		require.NoError(t, err)

		q, errs, err := svc.AddQuestion(ctx, form.QuestionForm{HTML: "What is H2O?", Category: category.ID.String()}, validFormset())
		require.NoError(t, err)
		require.True(t, errs.Valid(), "%v", errs)
		assert.Len(t, q.Choices, 4)

		var stored quiz.Question
		require.NoError(t, db.Preload("Choices").First(&stored, "id = ?", q.ID).Error)
		assert.Len(t, stored.Choices, 4)
		assert.Equal(t, category.ID, stored.CategoryID)
	})

	invalid := []struct {
		name    string
		mutate  func(*form.QuestionForm, *form.ChoiceFormset)
		field   string
		formErr bool
	}{
		{
			name:   "EmptyChoice",
			mutate: func(_ *form.QuestionForm, f *form.ChoiceFormset) { f.Choices[3].HTML = "" },
			field:  "choices[3].html",
		},
		{
			name:   "EmptyQuestion",
			mutate: func(q *form.QuestionForm, _ *form.ChoiceFormset) { q.HTML = "  " },
			field:  "html",
		},
		{
			name:   "UnknownCategory",
			mutate: func(q *form.QuestionForm, _ *form.ChoiceFormset) { q.Category = uuid.NewString() },
			field:  "category",
		},
		{
			name:    "NoCorrectChoice",
			mutate:  func(_ *form.QuestionForm, f *form.ChoiceFormset) { f.Choices[0].IsCorrect = false },
			formErr: true,
		},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			svc, db, _ := newQuizService(t)
			category, err := svc.CreateCategory(ctx, "Science")
			require.NoError(t, err)

			qf := form.QuestionForm{HTML: "What is H2O?", Category: category.ID.String()}
			formset := validFormset()
			tc.mutate(&qf, &formset)

			q, errs, err := svc.AddQuestion(ctx, qf, formset)
			require.NoError(t, err)
			assert.Nil(t, q)
			assert.False(t, errs.Valid())
			if tc.field != "" {
				assert.NotEmpty(t, errs.Get(tc.field), "%v", errs.Fields)
			}
			if tc.formErr {
				assert.NotEmpty(t, errs.NonField)
			}

			var questions, choices int64
			require.NoError(t, db.Model(&quiz.Question{}).Count(&questions).Error)
			require.NoError(t, db.Model(&quiz.Choice{}).Count(&choices).Error)
			assert.Zero(t, questions)
			assert.Zero(t, choices)
		})
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newQuizService(t)

	_, err := svc.CreateCategory(ctx, "Science")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, " Art ")
	require.NoError(t, err)

	existing, err := svc.CreateCategory(ctx, "Science")
	assert.ErrorIs(t, err, quiz.ErrCategoryExists)
	assert.NotNil(t, existing)

	_, err = svc.CreateCategory(ctx, "   ")
	assert.ErrorIs(t, err, quiz.ErrCategoryName)

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Art", categories[0].Name)
	assert.Equal(t, "Science", categories[1].Name)
}

// hookedRepository runs callbacks after selected reads so tests can
// interleave a concurrent request at that point.
type hookedRepository struct {
	quiz.QuizRepository
	afterFind        func(q *quiz.Question)
	afterAttemptLoad func(a *quiz.AttemptedQuestion)
}

func (r *hookedRepository) FindUnattemptedQuestion(ctx context.Context, profileID uuid.UUID) (*quiz.Question, error) {
	q, err := r.QuizRepository.FindUnattemptedQuestion(ctx, profileID)
	if err == nil && q != nil && r.afterFind != nil {
		r.afterFind(q)
	}
	return q, err
}

func (r *hookedRepository) GetAttemptByQuestion(ctx context.Context, profileID, questionID uuid.UUID) (*quiz.AttemptedQuestion, error) {
	a, err := r.QuizRepository.GetAttemptByQuestion(ctx, profileID, questionID)
	if err == nil && a != nil && r.afterAttemptLoad != nil {
		hook := r.afterAttemptLoad
		r.afterAttemptLoad = nil
		hook(a)
	}
	return a, err
}

func newHookedService(t *testing.T) (quiz.QuizService, *hookedRepository, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := testutil.NewDB(t)
	repo := &hookedRepository{QuizRepository: quiz.NewRepository(db)}
	events := &recordingPublisher{}
	return quiz.NewService(db, repo, events, "quiz.attempt_evaluated"), repo, db, events
}

func TestConcurrentPlayServesSameQuestion(t *testing.T) {
	ctx := context.Background()
	svc, repo, db, _ := newHookedService(t)
	u := testutil.CreateUser(t, db, "alice", false)
	testutil.CreateQuestion(t, db, "General", "Only question", 0)

	var (
		barrier sync.WaitGroup
		calls   atomic.Int32
	)
	barrier.Add(2)
	repo.afterFind = func(*quiz.Question) {
		if calls.Add(1) <= 2 {
			barrier.Done()
			barrier.Wait()
		}
	}

	type result struct {
		q   *quiz.Question
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			q, err := svc.Play(ctx, u.ID)
			results <- result{q, err}
		}()
	}

	first, second := <-results, <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	require.NotNil(t, first.q)
	require.NotNil(t, second.q)
	assert.Equal(t, first.q.ID, second.q.ID)

	var attempts int64
	require.NoError(t, db.Model(&quiz.AttemptedQuestion{}).Count(&attempts).Error)
	assert.Equal(t, int64(1), attempts)
}

func TestPlaySkipsQuestionAnsweredMeanwhile(t *testing.T) {
	ctx := context.Background()
	svc, repo, db, _ := newHookedService(t)
	u := testutil.CreateUser(t, db, "alice", false)
	testutil.CreateQuestion(t, db, "General", "Q1", 0)
	testutil.CreateQuestion(t, db, "General", "Q2", 0)

	profile, err := svc.GetOrCreateProfile(ctx, u.ID)
	require.NoError(t, err)

	var raced *quiz.Question
	repo.afterFind = func(q *quiz.Question) {
		if raced != nil {
			return
		}
		raced = q
		choice := correctChoice(q).ID
		now := time.Now().UTC()
		require.NoError(t, db.Create(&quiz.AttemptedQuestion{
			QuizProfileID:    profile.ID,
			QuestionID:       q.ID,
			SelectedChoiceID: &choice,
			IsCorrect:        true,
			AnsweredAt:       &now,
		}).Error)
	}

	q, err := svc.Play(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, q)
	require.NotNil(t, raced)
	assert.NotEqual(t, raced.ID, q.ID)
}

func TestSubmitAnswerConcurrentSubmission(t *testing.T) {
	ctx := context.Background()
	svc, repo, db, events := newHookedService(t)
	u := testutil.CreateUser(t, db, "alice", false)
	testutil.CreateQuestion(t, db, "General", "Q1", 0)

	q, err := svc.Play(ctx, u.ID)
	require.NoError(t, err)

	// Another submission wins after this one loaded the attempt.
	other := wrongChoice(q).ID
	repo.afterAttemptLoad = func(a *quiz.AttemptedQuestion) {
		require.False(t, a.Answered())
		require.NoError(t, db.Model(&quiz.AttemptedQuestion{}).
			Where("id = ?", a.ID).
			Updates(map[string]any{"selected_choice_id": other, "answered_at": time.Now().UTC()}).Error)
	}

	attempt, err := svc.SubmitAnswer(ctx, u.ID, q.ID, correctChoice(q).ID)
	require.ErrorIs(t, err, quiz.ErrAlreadyAnswered)
	require.NotNil(t, attempt)

	summary, err := svc.ProfileSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.Profile.TotalScore)
	assert.Empty(t, events.events)

	var stored quiz.AttemptedQuestion
	require.NoError(t, db.First(&stored, "id = ?", attempt.ID).Error)
	require.NotNil(t, stored.SelectedChoiceID)
	assert.Equal(t, other, *stored.SelectedChoiceID)
	assert.False(t, stored.IsCorrect)
}
