package quiz

import (
	"github.com/mariakisialiova/itechart-quiz/internal/view"
	"gorm.io/gorm"
)

type QuizContainer struct {
	Repo    QuizRepository
	Service QuizService
	Handler *Handler
}

func NewQuizContainer(db *gorm.DB, events EventPublisher, queue string, views view.Renderer) *QuizContainer {
	repo := NewRepository(db)
	service := NewService(db, repo, events, queue)
	handler := NewHandler(service, views)

	return &QuizContainer{
		Repo:    repo,
		Service: service,
		Handler: handler,
	}
}
