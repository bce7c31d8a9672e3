package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/model"
	"storefront/store"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLen = 72
)

// AccountService registers users and checks credentials. Carts stay keyed
// by session id; accounts only decorate orders and the profile endpoints.
type AccountService struct {
	users store.UserStore
	log   *zap.Logger
	cost  int
}

var _ AccountServiceInterface = (*AccountService)(nil)

// NewAccountService hashes with bcrypt at cost; zero selects the default.
func NewAccountService(users store.UserStore, log *zap.Logger, cost int) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AccountService{users: users, log: log, cost: cost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare address only, not "Name <addr>" forms.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validatePassword(field, pw string) error {
	if len(pw) < minPasswordLen {
		return invalidInput(field, "password must be at least 8 characters")
	}
	if len(pw) > maxPasswordLen {
		return invalidInput(field, "password must be at most 72 bytes")
	}
	return nil
}

func (s *AccountService) Register(ctx context.Context, email, password, name string) (UserDTO, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return UserDTO{}, invalidInput("email", "a valid email is required")
	}
	if err := validatePassword("password", password); err != nil {
		return UserDTO{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return UserDTO{}, err
	}
	u, err := s.users.CreateUser(ctx, model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	})
	if errors.Is(err, store.ErrEmailTaken) {
		return UserDTO{}, &Error{Kind: KindConflict, Field: "email", Message: "email already registered"}
	}
	if err != nil {
		return UserDTO{}, err
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID))
	return toUserDTO(u), nil
}

// Authenticate reports the same error for an unknown email and a wrong
// password.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (UserDTO, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrUserNotFound) {
		return UserDTO{}, unauthorized("invalid email or password")
	}
	if err != nil {
		return UserDTO{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Info("login rejected", zap.Int64("user_id", u.ID))
		return UserDTO{}, unauthorized("invalid email or password")
	}
	return toUserDTO(u), nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (UserDTO, error) {
	u, err := s.lookup(ctx, id)
	if err != nil {
		return UserDTO{}, err
	}
	return toUserDTO(u), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, id int64, name string) (UserDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UserDTO{}, invalidInput("name", "name is required")
	}
	u, err := s.lookup(ctx, id)
	if err != nil {
		return UserDTO{}, err
	}
	u.Name = name
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return UserDTO{}, err
	}
	return toUserDTO(u), nil
}

func (s *AccountService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if err := validatePassword("newPassword", next); err != nil {
		return err
	}
	u, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return &Error{Kind: KindUnauthorized, Field: "currentPassword", Message: "current password is incorrect"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.log.Info("password changed", zap.Int64("user_id", u.ID))
	return nil
}

// lookup treats a vanished account as an expired login.
func (s *AccountService) lookup(ctx context.Context, id int64) (model.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrUserNotFound) {
		return model.User{}, unauthorized("not logged in")
	}
	return u, err
}
