package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// PasswordHashCost is the bcrypt cost used for stored passwords.
const PasswordHashCost = bcrypt.DefaultCost

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserService registers and loads users.
type UserService struct {
	db userStorage
}

// NewUserService creates a UserService on top of db.
func NewUserService(db userStorage) *UserService {
	return &UserService{db: db}
}

// Register validates req, hashes the password and stores the user.
func (s *UserService) Register(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)

	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperr.Validation("the submitted email is invalid")
	}
	if !IsStrongPassword(req.Password) {
		return nil, apperr.Validation(
			"the password must be at least 6 characters long and contain a lowercase letter, " +
				"an uppercase letter, a digit and a symbol",
		)
	}

	_, taken, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/Register(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("a user with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordHashCost)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/Register(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	usr := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
	}

	err = s.db.CreateUser(ctx, usr)
	if errors.Is(err, models.ErrEmailTaken) {
		return nil, apperr.Conflict("a user with this email already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/Register(): error while `s.db.CreateUser()` calling: %w", err)
	}

	logger.Log.Infow("user registered", "user_id", usr.ID)

	return usr, nil
}

// GetByID loads the user with userID.
func (s *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	usr, found, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/GetByID(): error while `s.db.GetUserByID()` calling: %w", err)
	}
	if !found {
		return nil, apperr.NotFound("user not found")
	}

	return usr, nil
}

// IsStrongPassword reports whether password has at least 6 characters
// including a lowercase letter, an uppercase letter, a digit and a symbol.
func IsStrongPassword(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	return hasLower && hasUpper && hasDigit && hasSymbol
}
