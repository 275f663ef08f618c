package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/form"
	"github.com/mariakisialiova/itechart-quiz/internal/view"
)

const (
	loginTitle        = "Login"
	registrationTitle = "Create account"
	defaultLoginPath  = "/user-home"
)

type Handler struct {
	service     AuthService
	tokens      *TokenManager
	revocations RevocationStore
	cookie      CookieConfig
	views       view.Renderer
}

func NewHandler(service AuthService, tokens *TokenManager, revocations RevocationStore, cookie CookieConfig, views view.Renderer) *Handler {
	return &Handler{
		service:     service,
		tokens:      tokens,
		revocations: revocations,
		cookie:      cookie,
		views:       views,
	}
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	f := form.LoginForm{Next: r.URL.Query().Get("next")}
	h.renderLogin(w, r, f, form.Errors{})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	var f form.LoginForm
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if err := form.Decode(r.PostForm, &f); err != nil {
		log.WithError(err).Warn("Invalid login form")
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	u, errs, err := h.service.Authenticate(r.Context(), f)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		errs.AddNonField("Please enter a correct username and password.")
	case err != nil:
		h.views.ServerError(w, r)
		return
	}
	if !errs.Valid() {
		f.Password = ""
		h.renderLogin(w, r, f, errs)
		return
	}

	token, err := h.tokens.GenerateJWT(u.ID.String(), u.Username, RoleOf(u), h.cookie.TTL)
	if err != nil {
		log.WithError(err).Error("Failed to issue session token")
		h.views.ServerError(w, r)
		return
	}
	h.cookie.set(w, token)

	log.WithField("user_id", u.ID.String()).Info("User logged in")
	http.Redirect(w, r, safeNext(f.Next), http.StatusSeeOther)
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegistration(w, r, form.RegistrationForm{}, form.Errors{})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	var f form.RegistrationForm
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if err := form.Decode(r.PostForm, &f); err != nil {
		log.WithError(err).Warn("Invalid registration form")
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, errs, err := h.service.Register(r.Context(), f)
	if err != nil {
		h.views.ServerError(w, r)
		return
	}
	if !errs.Valid() {
		f.Password1, f.Password2 = "", ""
		h.renderRegistration(w, r, f, errs)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	if identity, ok := IdentityFromContext(r.Context()); ok {
		if err := h.revocations.Revoke(r.Context(), identity.TokenID, time.Until(identity.ExpiresAt)); err != nil {
			log.WithError(err).Error("Failed to revoke session token")
		}
		log.Info("User logged out")
	}
	h.cookie.clear(w)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, f form.LoginForm, errs form.Errors) {
	h.views.Render(w, r, http.StatusOK, "login", map[string]any{
		"Title":  loginTitle,
		"Form":   f,
		"Errors": errs,
	})
}

func (h *Handler) renderRegistration(w http.ResponseWriter, r *http.Request, f form.RegistrationForm, errs form.Errors) {
	h.views.Render(w, r, http.StatusOK, "registration", map[string]any{
		"Title":  registrationTitle,
		"Form":   f,
		"Errors": errs,
	})
}

// safeNext only follows local absolute paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultLoginPath
	}
	return next
}
