// Package testutil builds throwaway databases and configs for package tests.
package testutil

import (
	"testing"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/mariakisialiova/itechart-quiz/internal/user"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const JWTSecret = "test-secret-that-is-long-enough-for-hs256"

// NewDB opens a private in-memory sqlite database with every table migrated.
// A single connection keeps the in-memory database alive for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.Open("sqlite", "file::memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	models := append([]any{&user.User{}}, quiz.Models()...)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

// Config returns a valid sqlite config with the cheapest bcrypt cost.
func Config() config.Config {
	var cfg config.Config
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file::memory:"
	cfg.Auth.JWTSecret = JWTSecret
	cfg.Auth.SessionTTL = "1h"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.RabbitMQ.Queue = "quiz.attempt_evaluated"
	return cfg
}

// CreateUser stores a user with a quiz profile and returns it.
func CreateUser(t *testing.T, db *gorm.DB, username string, staff bool) *user.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &user.User{Username: username, PasswordHash: string(hash), IsStaff: staff}
	require.NoError(t, db.Create(u).Error)
	require.NoError(t, quiz.CreateProfileTx(db, u.ID))
	return u
}

// CreateQuestion stores a question in a new or existing category with four
// choices, the one at index correct being the right answer.
func CreateQuestion(t *testing.T, db *gorm.DB, categoryName, html string, correct int) *quiz.Question {
	t.Helper()

	var category quiz.Category
	require.NoError(t, db.Where(quiz.Category{Name: categoryName}).FirstOrCreate(&category).Error)

	q := &quiz.Question{CategoryID: category.ID, HTML: html}
	require.NoError(t, db.Omit("Choices", "Category").Create(q).Error)

	for i := 0; i < 4; i++ {
		c := quiz.Choice{
			QuestionID: q.ID,
			HTML:       html + " choice " + string(rune('A'+i)),
			IsCorrect:  i == correct,
			Position:   i,
		}
		require.NoError(t, db.Create(&c).Error)
		q.Choices = append(q.Choices, c)
	}
	return q
}
