package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"agency-portal/db"
	"agency-portal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrEmailTaken     = errors.New("an account with this email already exists")
	ErrInvalidInput   = errors.New("invalid input")
)

// RegisterInput carries the fields accepted on registration
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type UserService struct {
	repo       db.UserRepository
	dbManager  *db.DBManager
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(repo db.UserRepository, dbManager *db.DBManager, bcryptCost int, logger *zap.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:       repo,
		dbManager:  dbManager,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// Register validates in, hashes the password and stores a new agent account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, validationError("email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, validationError("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	return s.create(ctx, &models.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      models.RoleAgent,
	}, in.Password)
}

func (s *UserService) create(ctx context.Context, u *models.User, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u.Password = string(hash)

	if err := s.dbManager.CreateUser(ctx, s.repo, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Authenticate returns the account matching email and password. Unknown
// emails and wrong passwords both yield ErrBadCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	if cost, err := bcrypt.Cost([]byte(u.Password)); err == nil && cost != s.bcryptCost {
		s.rehash(ctx, u, password)
	}
	return u, nil
}

func (s *UserService) rehash(ctx context.Context, u *models.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Warn("rehash failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	if err := s.dbManager.UpdateUserPassword(ctx, s.repo, u.ID, string(hash)); err != nil {
		s.logger.Warn("storing rehashed password failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	u.Password = string(hash)
}

// FindByID returns nil without error when the account no longer exists
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// EnsureAdmin creates the admin account if no account uses email yet.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return false, err
	}

	_, err := s.create(ctx, &models.User{Email: email, Role: models.RoleAdmin}, password)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}
