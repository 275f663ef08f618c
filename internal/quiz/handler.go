package quiz

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mariakisialiova/itechart-quiz/internal/auth"
	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/form"
	"github.com/mariakisialiova/itechart-quiz/internal/view"
)

type Handler struct {
	service QuizService
	views   view.Renderer
}

func NewHandler(s QuizService, views view.Renderer) *Handler {
	return &Handler{service: s, views: views}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "home", nil)
}

func (h *Handler) UserHome(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	summary, err := h.service.ProfileSummary(r.Context(), identity.UserID)
	if err != nil {
		h.views.ServerError(w, r)
		return
	}

	h.views.Render(w, r, http.StatusOK, "user_home", map[string]any{
		"Username": identity.Username,
		"Profile":  summary.Profile,
		"Answered": summary.Answered,
		"Correct":  summary.Correct,
	})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.views.ServerError(w, r)
		return
	}

	h.views.Render(w, r, http.StatusOK, "leaderboard", map[string]any{
		"TopQuizProfiles": board.TopQuizProfiles,
		"TotalCount":      board.TotalCount,
	})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.views.ServerError(w, r)
		return
	}

	h.views.Render(w, r, http.StatusOK, "categories", map[string]any{
		"Categories": categories,
	})
}

func (h *Handler) PlayPage(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	question, err := h.service.Play(r.Context(), identity.UserID)
	if errors.Is(err, ErrAlreadyAnswered) {
		http.Redirect(w, r, "/play", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.views.ServerError(w, r)
		return
	}

	h.views.Render(w, r, http.StatusOK, "play", map[string]any{
		"Question": question,
	})
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	questionID, err := uuid.Parse(r.PostForm.Get("question_pk"))
	if err != nil {
		log.WithError(err).Warn("Invalid question_pk")
		h.views.NotFound(w, r)
		return
	}
	choiceID, err := uuid.Parse(r.PostForm.Get("choice_pk"))
	if err != nil {
		log.WithError(err).Warn("Invalid choice_pk")
		h.views.NotFound(w, r)
		return
	}

	attempt, err := h.service.SubmitAnswer(r.Context(), identity.UserID, questionID, choiceID)
	switch {
	case errors.Is(err, ErrAttemptNotFound), errors.Is(err, ErrChoiceNotFound):
		h.views.NotFound(w, r)
		return
	case errors.Is(err, ErrAlreadyAnswered):
		log.WithField("attempt_id", attempt.ID.String()).Info("Ignoring repeated submission")
	case err != nil:
		h.views.ServerError(w, r)
		return
	}

	http.Redirect(w, r, resultPath(attempt), http.StatusSeeOther)
}

func (h *Handler) SubmissionResult(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	attemptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.views.NotFound(w, r)
		return
	}

	attempt, err := h.service.GetAttempt(r.Context(), identity.UserID, attemptID)
	if errors.Is(err, ErrAttemptNotFound) {
		h.views.NotFound(w, r)
		return
	}
	if err != nil {
		h.views.ServerError(w, r)
		return
	}

	h.views.Render(w, r, http.StatusOK, "submission_result", map[string]any{
		"AttemptedQuestion": attempt,
		"Selected":          attempt.SelectedChoice,
	})
}

func (h *Handler) AddQuestionPage(w http.ResponseWriter, r *http.Request) {
	h.renderAddQuestion(w, r, form.QuestionForm{}, form.ChoiceFormset{}, form.Errors{})
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var (
		qf      form.QuestionForm
		choices form.ChoiceFormset
	)
	if err := form.Decode(r.PostForm, &qf); err != nil {
		log.WithError(err).Warn("Invalid question form")
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if err := form.Decode(r.PostForm, &choices); err != nil {
		log.WithError(err).Warn("Invalid choice formset")
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, errs, err := h.service.AddQuestion(r.Context(), qf, choices)
	if err != nil {
		h.views.ServerError(w, r)
		return
	}
	if !errs.Valid() {
		h.renderAddQuestion(w, r, qf, choices, errs)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderAddQuestion(w http.ResponseWriter, r *http.Request, qf form.QuestionForm, choices form.ChoiceFormset, errs form.Errors) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.views.ServerError(w, r)
		return
	}

	h.views.Render(w, r, http.StatusOK, "add_question", map[string]any{
		"Form":       qf,
		"Formset":    choices,
		"Errors":     errs,
		"Categories": categories,
	})
}

func resultPath(a *AttemptedQuestion) string {
	return "/submission-result/" + a.ID.String()
}
