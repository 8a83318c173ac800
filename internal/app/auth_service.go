package app

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storechat/internal/model"
	"storechat/internal/pkg/jwtutil"
	"storechat/internal/repository"
	"storechat/internal/roles"
)

const minPasswordLength = 8

// dummyHash is compared against when a login names no account, so that
// unknown and known users take the same time to reject.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storechat-no-such-user"), bcrypt.DefaultCost)

// AuthService manages storefront accounts and issues the tokens chat
// requests are authenticated with.
type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	signupRole    string
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// LoginInput.Login is a username or an email address.
type LoginInput struct {
	Login    string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
	Actor Actor
}

func NewAuthService(userRepo *repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		signupRole:    roles.Customer,
	}
}

// Register opens a customer account. Staff roles are granted separately
// (see the grant-role command), never through self sign-up.
func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := strings.TrimSpace(input.Password)

	switch {
	case username == "":
		return nil, ErrInvalidInput.WithMessage("username is required")
	case strings.Contains(username, "@"):
		return nil, ErrInvalidInput.WithMessage("username must not contain @")
	case !validEmail(email):
		return nil, ErrInvalidInput.WithMessage("a valid email is required")
	case len(password) < minPasswordLength:
		return nil, ErrInvalidInput.WithMessage("password must be at least %d characters", minPasswordLength)
	}

	if existing, err := s.userRepo.GetByUsername(username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameExists
	}
	if existing, err := s.userRepo.GetByEmail(email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Roles:        []model.UserRole{{Role: s.signupRole}},
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login accepts either the username or the email of the account.
func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	login := strings.TrimSpace(input.Login)
	password := strings.TrimSpace(input.Password)
	if login == "" || password == "" {
		return nil, ErrInvalidInput.WithMessage("login and password are required")
	}

	user, err := s.lookup(login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return s.issue(user)
}

func (s *AuthService) lookup(login string) (*model.User, error) {
	if strings.Contains(login, "@") {
		return s.userRepo.GetByEmail(strings.ToLower(login))
	}
	return s.userRepo.GetByUsername(login)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token failed: %w", err)
	}
	return &AuthResult{
		Token: token,
		User:  user,
		Actor: Actor{UserID: user.ID, Roles: user.RoleNames()},
	}, nil
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrUnauthenticated
	}
	return s.userRepo.GetByID(id)
}

// Actor loads the caller together with the platform roles it holds now, so
// a role granted or revoked takes effect without a new token.
func (s *AuthService) Actor(userID uint) (Actor, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return Actor{}, err
	}
	if user == nil {
		return Actor{}, ErrUnauthenticated
	}
	return Actor{UserID: user.ID, Roles: user.RoleNames()}, nil
}
