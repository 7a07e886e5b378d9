package services

import (
	"context"
	"errors"
	"log"

	"WorkBridge/server/internal/auth"
	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/store"
)

type RegisterInput struct {
	Email    string
	Username string
	Password string
	UserType string
	FullName string
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, *AuthTokens, error)
	Login(ctx context.Context, email, password string) (*models.User, *AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	UserByID(ctx context.Context, id int) (*models.User, error)
	Students(ctx context.Context) ([]models.User, error)
}

type userService struct {
	store  store.Store
	tokens *auth.TokenManager
}

func NewUserService(st store.Store, tokens *auth.TokenManager) *userService {
	return &userService{store: st, tokens: tokens}
}

func (us *userService) Register(ctx context.Context, input RegisterInput) (*models.User, *AuthTokens, error) {
	if !models.ValidUserType(input.UserType) {
		return nil, nil, models.ErrInvalidRequest
	}

	if taken, err := us.store.EmailTaken(ctx, input.Email); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, models.ErrEmailTaken
	}
	if taken, err := us.store.UsernameTaken(ctx, input.Username); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, models.ErrUsernameTaken
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		return nil, nil, err
	}

	user := &models.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		UserType:     input.UserType,
		FullName:     input.FullName,
	}
	if _, err := us.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}
	log.Printf("User registered: %s (ID: %d)", user.Username, user.ID)

	tokens, err := us.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (us *userService) Login(ctx context.Context, email, password string) (*models.User, *AuthTokens, error) {
	user, err := us.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, nil, models.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := auth.CheckPasswordHash(password, user.PasswordHash); err != nil {
		log.Printf("Password verification failed for user %d", user.ID)
		return nil, nil, models.ErrInvalidCredentials
	}

	tokens, err := us.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (us *userService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := us.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	user, err := us.store.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", models.ErrInvalidToken
		}
		return "", err
	}
	return us.tokens.NewAccessToken(user.ID, user.UserType)
}

func (us *userService) UserByID(ctx context.Context, id int) (*models.User, error) {
	return us.store.UserByID(ctx, id)
}

func (us *userService) Students(ctx context.Context) ([]models.User, error) {
	students, err := us.store.UsersByType(ctx, models.UserTypeStudent)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []models.User{}
	}
	return students, nil
}

func (us *userService) issueTokens(user *models.User) (*AuthTokens, error) {
	access, err := us.tokens.NewAccessToken(user.ID, user.UserType)
	if err != nil {
		log.Printf("Error creating access token for user %d: %v", user.ID, err)
		return nil, err
	}
	refresh, err := us.tokens.NewRefreshToken(user.ID)
	if err != nil {
		log.Printf("Error creating refresh token for user %d: %v", user.ID, err)
		return nil, err
	}
	return &AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}
