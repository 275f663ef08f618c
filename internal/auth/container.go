package auth

import (
	"github.com/mariakisialiova/itechart-quiz/internal/user"
	"github.com/mariakisialiova/itechart-quiz/internal/view"
	"gorm.io/gorm"
)

type AuthContainer struct {
	Service    AuthService
	Handler    *Handler
	Middleware *Middleware
}

func NewAuthContainer(
	db *gorm.DB,
	users user.UserRepository,
	tokens *TokenManager,
	revocations RevocationStore,
	cookie CookieConfig,
	onRegister RegistrationHook,
	bcryptCost int,
	views view.Renderer,
) *AuthContainer {
	service := NewService(db, users, onRegister, bcryptCost)

	return &AuthContainer{
		Service:    service,
		Handler:    NewHandler(service, tokens, revocations, cookie, views),
		Middleware: NewMiddleware(tokens, revocations, cookie, users),
	}
}
