package container

import (
	"time"

	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/mariakisialiova/itechart-quiz/internal/user"
	"gorm.io/gorm"
)

const defaultSessionTTL = 24 * time.Hour

// AutoMigrate creates or updates every table the application owns.
func AutoMigrate(db *gorm.DB) error {
	models := append([]any{&user.User{}}, quiz.Models()...)
	return db.AutoMigrate(models...)
}
