package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"Community_Feed/internal/model"
	"Community_Feed/internal/pkg"
	"Community_Feed/internal/repository/store"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	PasswordMinLen = 8
	UsernameMaxLen = 150
)

// TokenStore 单点登录：只认最近一次签发的 access token
type TokenStore interface {
	Save(ctx context.Context, userID uint64, token string) error
	Get(ctx context.Context, userID uint64) (string, error)
	Extend(ctx context.Context, userID uint64) error
	Delete(ctx context.Context, userID uint64) error
}

type UserService struct {
	repo     *store.UserRepository
	tokens   TokenStore
	issuer   *pkg.TokenIssuer
	validate *validator.Validate
}

// NewUserService tokens 为 nil 时退化为无状态 JWT
func NewUserService(repo *store.UserRepository, tokens TokenStore, issuer *pkg.TokenIssuer) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		issuer:   issuer,
		validate: validator.New(),
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type AuthResult struct {
	User UserView `json:"user"`
	pkg.Pair
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	verr := &ValidationError{}
	switch {
	case in.Username == "":
		verr.Add("username", "This field may not be blank.")
	case utf8.RuneCountInString(in.Username) > UsernameMaxLen:
		verr.Add("username", "Ensure this field has no more than 150 characters.")
	}
	if in.Email != "" && s.validate.Var(in.Email, "email") != nil {
		verr.Add("email", "Enter a valid email address.")
	}
	if utf8.RuneCountInString(in.Password) < PasswordMinLen {
		verr.Add("password", "Ensure this field has at least 8 characters.")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return nil, fieldError("username", "A user with that username already exists.")
		}
		return nil, wrap("create user", err)
	}
	return s.issue(ctx, user)
}

func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if s.tokens == nil {
		return nil
	}
	return s.tokens.Delete(ctx, userID)
}

// Refresh 用 refresh token 换新的一对，并替换已登记的 access token
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	pair, err := s.issuer.Refresh(refreshToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if s.tokens != nil {
		claims, err := s.issuer.ParseAccess(pair.AccessToken)
		if err != nil {
			return nil, err
		}
		if err := s.tokens.Save(ctx, claims.UserID, pair.AccessToken); err != nil {
			return nil, err
		}
	}
	return pair, nil
}

// Me 匿名返回 nil
func (s *UserService) Me(ctx context.Context, userID uint64) (*UserView, error) {
	if userID == 0 {
		return nil, nil
	}
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	v := userView(user)
	return &v, nil
}

func (s *UserService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	pair, err := s.issuer.GeneratePair(user.ID)
	if err != nil {
		return nil, err
	}
	// 将token写入redis
	if s.tokens != nil {
		if err := s.tokens.Save(ctx, user.ID, pair.AccessToken); err != nil {
			return nil, err
		}
	}
	return &AuthResult{User: userView(user), Pair: *pair}, nil
}
