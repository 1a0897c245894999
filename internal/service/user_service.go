package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	redisrepo "Lee_Social/internal/repository/redis"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type userStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfileImage(ctx context.Context, id, key string) error
}

// sessionStore 记录每个用户当前有效的 access token
type sessionStore interface {
	Set(ctx context.Context, userID, token string) error
	Get(ctx context.Context, userID string) (string, error)
	Extend(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}

type imageStore interface {
	URL(ctx context.Context, key string) string
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ProfileImage 头像在对象存储中的key和临时下载地址
type ProfileImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type RegisterInput struct {
	Username string
	Fullname string
	Email    string
	Password string
}

type UserService struct {
	repo     userStore
	tokens   *pkg.TokenManager
	sessions sessionStore
	images   imageStore
}

// NewUserService sessions 为 nil 时不做单点登录校验
func NewUserService(repo userStore, tokens *pkg.TokenManager, sessions sessionStore, images imageStore) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		sessions: sessions,
		images:   images,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.PublicProfile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || len(in.Password) < minPasswordLen {
		return nil, pkg.ErrValidation
	}
	for _, key := range []string{in.Username, in.Email} {
		existing, err := s.repo.FindByUsername(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, pkg.ErrDuplicateUser
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:       uuid.NewString(),
		Username: in.Username,
		Fullname: in.Fullname,
		Email:    in.Email,
		Password: string(hash),
		Role:     model.RoleUser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, pkg.ErrConstraintViolation) {
			return nil, pkg.ErrDuplicateUser
		}
		return nil, err
	}
	return s.profile(ctx, user), nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkg.ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, pkg.ErrInvalidPassword
	}
	return s.issue(ctx, user)
}

func (s *UserService) Logout(ctx context.Context, userID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Delete(ctx, userID)
}

// Refresh 用 refresh token 换一对新的令牌，旧的 access token 随之失效
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkg.ErrRefreshInvalid
	}
	return s.issue(ctx, user)
}

func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.tokens.GeneratePair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	// 将token写入redis
	if s.sessions != nil {
		if err := s.sessions.Set(ctx, user.ID, pair.AccessToken); err != nil {
			return nil, err
		}
	}
	return pair, nil
}

// CheckSession 校验 token 是否为该用户当前有效的会话，通过后续期
func (s *UserService) CheckSession(ctx context.Context, userID, token string) error {
	if s.sessions == nil {
		return nil
	}
	stored, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, redisrepo.ErrTokenNotFound) {
		return pkg.ErrSessionReplaced
	}
	if err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrInternal, err)
	}
	if stored != token {
		return pkg.ErrSessionReplaced
	}
	if err := s.sessions.Extend(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrInternal, err)
	}
	return nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*model.PublicProfile, error) {
	return s.GetPublicProfile(ctx, userID)
}

func (s *UserService) GetPublicProfile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkg.ErrUserNotFound
	}
	return s.profile(ctx, user), nil
}

func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, pkg.ErrUserNotFound
	}
	return user.Role == model.RoleAdmin, nil
}

// UploadProfileImage 用新生成的文件名保存头像，保留原文件的扩展名
func (s *UserService) UploadProfileImage(ctx context.Context, userID, filename string, r io.Reader, size int64, contentType string) (*ProfileImage, error) {
	if s.images == nil {
		return nil, pkg.ErrStorageUnavailable
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkg.ErrUserNotFound
	}
	key := "profile/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	if err := s.images.Upload(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfileImage(ctx, userID, key); err != nil {
		return nil, err
	}
	return &ProfileImage{Filename: key, URL: s.images.URL(ctx, key)}, nil
}

// ProfileImageURL filename 为空时取当前用户自己的头像
func (s *UserService) ProfileImageURL(ctx context.Context, userID, filename string) (*ProfileImage, error) {
	if s.images == nil {
		return nil, pkg.ErrStorageUnavailable
	}
	if filename == "" {
		user, err := s.repo.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, pkg.ErrUserNotFound
		}
		filename = user.ProfileImage
	}
	return &ProfileImage{Filename: filename, URL: s.images.URL(ctx, filename)}, nil
}

func (s *UserService) profile(ctx context.Context, user *model.User) *model.PublicProfile {
	var url string
	if s.images != nil {
		url = s.images.URL(ctx, user.ProfileImage)
	}
	return &model.PublicProfile{
		ID:              user.ID,
		Username:        user.Username,
		Fullname:        user.Fullname,
		ProfileImageURL: url,
	}
}
