package quiz

import (
	"github.com/go-chi/chi/v5"
	"github.com/mariakisialiova/itechart-quiz/internal/auth"
)

func Routes(r chi.Router, h *Handler, sessions *auth.Middleware) {
	r.Get("/", h.Home)
	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/categories", h.Categories)

	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireRole(auth.RoleStaff, "/"))
		r.Get("/add-question", h.AddQuestionPage)
		r.Post("/add-question", h.AddQuestion)
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireLogin)
		r.Get("/user-home", h.UserHome)
		r.Get("/play", h.PlayPage)
		r.Post("/play", h.SubmitAnswer)
		r.Get("/submission-result/{id}", h.SubmissionResult)
	})
}
