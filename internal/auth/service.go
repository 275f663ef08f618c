package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/form"
	"github.com/mariakisialiova/itechart-quiz/internal/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

// RegistrationHook runs inside the registration transaction after the user
// row is created.
type RegistrationHook func(tx *gorm.DB, u *user.User) error

type AuthService interface {
	Register(ctx context.Context, f form.RegistrationForm) (*user.User, form.Errors, error)
	Authenticate(ctx context.Context, f form.LoginForm) (*user.User, form.Errors, error)
	CreateStaff(ctx context.Context, username, password string) (*user.User, error)
}

type authService struct {
	db         *gorm.DB
	users      user.UserRepository
	onRegister RegistrationHook
	cost       int
	dummyHash  []byte
}

func NewService(db *gorm.DB, users user.UserRepository, onRegister RegistrationHook, cost int) AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &authService{
		db:         db,
		users:      users,
		onRegister: onRegister,
		cost:       cost,
		dummyHash:  dummy,
	}
}

func (s *authService) Register(ctx context.Context, f form.RegistrationForm) (*user.User, form.Errors, error) {
	log := config.WithContext(ctx)

	f.Clean()
	errs := form.Validate(f)
	if !errs.Valid() {
		return nil, errs, nil
	}

	u, err := s.createUser(ctx, f.Username, f.Password1, false)
	if errors.Is(err, ErrUsernameTaken) {
		errs.Add("username", "A user with that username already exists.")
		return nil, errs, nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to register user")
		return nil, errs, err
	}

	log.WithField("user_id", u.ID.String()).Info("User registered")
	return u, errs, nil
}

func (s *authService) Authenticate(ctx context.Context, f form.LoginForm) (*user.User, form.Errors, error) {
	log := config.WithContext(ctx)

	f.Clean()
	errs := form.Validate(f)
	if !errs.Valid() {
		return nil, errs, nil
	}

	u, err := s.users.GetByUsername(ctx, f.Username)
	if err != nil {
		log.WithError(err).Error("Failed to look up user")
		return nil, errs, err
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(f.Password))
		return nil, errs, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(f.Password)); err != nil {
		return nil, errs, ErrInvalidCredentials
	}

	return u, errs, nil
}

// CreateStaff creates a staff user, or promotes and resets the password of
// an existing one.
func (s *authService) CreateStaff(ctx context.Context, username, password string) (*user.User, error) {
	log := config.WithContext(ctx)

	f := form.RegistrationForm{Username: username, Password1: password, Password2: password}
	f.Clean()
	if errs := form.Validate(f); !errs.Valid() {
		return nil, fmt.Errorf("invalid staff credentials: %v", errs.Fields)
	}

	existing, err := s.users.GetByUsername(ctx, f.Username)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		u, err := s.createUser(ctx, f.Username, f.Password1, true)
		if err != nil {
			return nil, err
		}
		log.WithField("user_id", u.ID.String()).Info("Staff user created")
		return u, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password1), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	existing.PasswordHash = string(hash)
	existing.IsStaff = true
	if err := s.users.Update(ctx, existing); err != nil {
		return nil, err
	}
	log.WithField("user_id", existing.ID.String()).Info("User promoted to staff")
	return existing, nil
}

func (s *authService) createUser(ctx context.Context, username, password string, staff bool) (*user.User, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      staff,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := user.NewRepository(tx).Create(ctx, u); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return err
		}
		if s.onRegister != nil {
			return s.onRegister(tx, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func RoleOf(u *user.User) string {
	if u.IsStaff {
		return RoleStaff
	}
	return RoleUser
}
