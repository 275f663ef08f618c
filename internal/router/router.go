package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mariakisialiova/itechart-quiz/internal/auth"
	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/middlewares"
	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/mariakisialiova/itechart-quiz/internal/view"
)

type RouterConfig struct {
	AuthHandler *auth.Handler
	Sessions    *auth.Middleware
	QuizHandler *quiz.Handler
	Views       view.Renderer
}

func New(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middlewares.Recoverer(cfg.Views.ServerError))
	r.Use(cfg.Sessions.SessionMiddleware)

	r.NotFound(cfg.Views.NotFound)
	r.MethodNotAllowed(cfg.Views.NotFound)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		config.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	auth.Routes(r, cfg.AuthHandler)
	quiz.Routes(r, cfg.QuizHandler, cfg.Sessions)

	return r
}
