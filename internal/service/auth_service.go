package service

import (
	"context"
	"errors"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/repository"
	"mentor_lms_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

// LoginResult 登录成功返回的令牌与用户
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "AuthService.Login"

	user, err := s.UserRepo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewError(op, util.ErrInvalidCredentials, "invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.NewError(op, util.ErrInvalidCredentials, "invalid credentials")
	}
	if user.Disabled {
		return nil, util.ForbiddenError(op, "account disabled")
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// CreateUserRequest 管理员创建账号
type CreateUserRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     model.UserRole `json:"role" binding:"required"`
}

func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	const op = "AuthService.CreateUser"

	if !req.Role.Valid() {
		return nil, util.InvalidInputError(op, "unknown role").WithDetail("role", req.Role)
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.NewError(op, util.ErrAlreadyExists, "email already registered").WithDetail("email", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
