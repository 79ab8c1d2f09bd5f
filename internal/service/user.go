package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/core/auth"
	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/pkg/utils"
)

type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Username string  `json:"username"`
	Phone    *string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type ProfileInput struct {
	Username  *string `json:"username"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Dashboard struct {
	RecentHirings     []domain.HiringRecord `json:"recentHirings"`
	FavoriteEmployees []domain.AIEmployee   `json:"favoriteEmployees"`
	PendingReviews    []domain.HiringRecord `json:"pendingReviews"`
}

type UserListQuery struct {
	Offset      int    `form:"offset" binding:"min=0"`
	Limit       int    `form:"limit" binding:"min=0,max=100"`
	Q           string `form:"q"`
	WithDeleted bool   `form:"with_deleted"`
}

type UserList struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

type UserService struct {
	Deps
	jwt *auth.JWTer
}

func NewUserService(d Deps, jwt *auth.JWTer) *UserService {
	d.normalize()
	return &UserService{Deps: d, jwt: jwt}
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	ve := &domain.ValidationError{}
	if !validEmail(in.Email) {
		ve.Add("email", "must be a valid email address")
	}
	if len(in.Password) < 6 {
		ve.Add("password", "must be at least 6 characters")
	}
	if len([]rune(in.Username)) < 2 {
		ve.Add("username", "must be at least 2 characters")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	users := s.Store.Users()
	if u, err := users.FindByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, domain.Invalid("email", "already registered")
	}
	if u, err := users.FindByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if u != nil {
		return nil, domain.Invalid("username", "already taken")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Phone:        trimmedOrNil(in.Phone),
	}
	if err := users.Create(ctx, u); err != nil {
		// 并发注册兜底
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Invalid("email", "email or username already registered")
		}
		return nil, err
	}
	s.Log.Info("user registered", zap.String("user_id", u.ID))
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	ve := &domain.ValidationError{}
	if !validEmail(email) {
		ve.Add("email", "must be a valid email address")
	}
	if in.Password == "" {
		ve.Add("password", "is required")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	u, err := s.Store.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	return s.issue(u)
}

func (s *UserService) issue(u *domain.User) (*AuthResult, error) {
	tok, err := s.jwt.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: tok, User: u}, nil
}

// Resolve 令牌里的用户必须仍然存在（封禁即软删）
func (s *UserService) Resolve(ctx context.Context, uid string) (*domain.User, error) {
	u, err := s.Store.Users().FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
	}
	return u, nil
}

func (s *UserService) Me(ctx context.Context, uid string) (*domain.User, error) {
	return s.Resolve(ctx, uid)
}

func (s *UserService) UpdateProfile(ctx context.Context, uid string, in ProfileInput) (*domain.User, error) {
	fields := map[string]any{}
	ve := &domain.ValidationError{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if len([]rune(name)) < 2 {
			ve.Add("username", "must be at least 2 characters")
		} else {
			fields["username"] = name
		}
	}
	if in.Phone != nil {
		fields["phone"] = trimmedOrNil(in.Phone)
	}
	if in.AvatarURL != nil {
		raw := strings.TrimSpace(*in.AvatarURL)
		if u, err := url.ParseRequestURI(raw); raw != "" && (err != nil || u.Host == "") {
			ve.Add("avatar_url", "must be a valid URL")
		} else {
			fields["avatar_url"] = trimmedOrNil(in.AvatarURL)
		}
	}
	if len(fields) == 0 && len(ve.Fields) == 0 {
		ve.Add("profile", "no fields to update")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if name, ok := fields["username"].(string); ok {
		other, err := s.Store.Users().FindByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != uid {
			return nil, domain.Invalid("username", "already taken")
		}
	}
	if err := s.Store.Users().UpdateFields(ctx, uid, fields); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Invalid("username", "already taken")
		}
		return nil, err
	}
	return s.Resolve(ctx, uid)
}

func (s *UserService) ChangePassword(ctx context.Context, uid string, in PasswordInput) error {
	ve := &domain.ValidationError{}
	if in.CurrentPassword == "" {
		ve.Add("currentPassword", "is required")
	}
	if len(in.NewPassword) < 6 {
		ve.Add("newPassword", "must be at least 6 characters")
	}
	if err := ve.OrNil(); err != nil {
		return err
	}
	u, err := s.Resolve(ctx, uid)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(in.CurrentPassword, u.PasswordHash) {
		return domain.Invalid("currentPassword", "is incorrect")
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Store.Users().UpdateFields(ctx, uid, map[string]any{"password_hash": hash})
}

func (s *UserService) Dashboard(ctx context.Context, uid string) (*Dashboard, error) {
	recent, err := s.Store.Hirings().Recent(ctx, uid, 5)
	if err != nil {
		return nil, err
	}
	favs, err := s.Store.Favorites().ListByUser(ctx, uid, 6)
	if err != nil {
		return nil, err
	}
	pending, err := s.Store.Hirings().PendingReview(ctx, uid, 3)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		RecentHirings:     nonNil(recent),
		FavoriteEmployees: make([]domain.AIEmployee, 0, len(favs)),
		PendingReviews:    nonNil(pending),
	}
	for _, f := range favs {
		if f.Employee != nil {
			d.FavoriteEmployees = append(d.FavoriteEmployees, *f.Employee)
		}
	}
	return d, nil
}

// List 管理端用户列表
func (s *UserService) List(ctx context.Context, q UserListQuery) (*UserList, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	users, total, err := s.Store.Users().List(ctx, domain.UserFilter{
		Offset: q.Offset, Limit: q.Limit, Q: q.Q, WithDeleted: q.WithDeleted,
	})
	if err != nil {
		return nil, err
	}
	return &UserList{Total: total, Items: nonNil(users)}, nil
}

// Ban 软删除；已签发的令牌随之失效
func (s *UserService) Ban(ctx context.Context, uid string) error {
	ok, err := s.Store.Users().SoftDelete(ctx, uid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	s.Log.Info("user banned", zap.String("user_id", uid))
	return nil
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
