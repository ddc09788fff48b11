package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 64 // bcrypt ignores input past 72 bytes
)

// UserService handles accounts, profiles and admin user tools
type UserService struct {
	db       *gorm.DB
	settings Settings
}

// NewUserService creates the service
func NewUserService(deps Dependencies) *UserService {
	return &UserService{db: deps.DB, settings: deps.Settings}
}

// RegisterInput is a sign-up request
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

func validPassword(p string) bool {
	return len(p) >= minPasswordLen && len(p) <= maxPasswordLen
}

// Register creates a user with a hashed password
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, validationf("invalid email")
	}
	if !validPassword(in.Password) {
		return domain.User{}, validationf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return domain.User{}, validationf("full name is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Email:           email,
		Password:        string(hash),
		FullName:        fullName,
		Role:            domain.RoleUser,
		WithdrawalTimes: s.settings.WithdrawalTimes,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User registered")
	return user, nil
}

// Login checks credentials and issues a JWT
func (s *UserService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.User{}, ErrInvalidCredentials
		}
		return "", domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", domain.User{}, ErrInvalidCredentials
	}
	token, err := utils.GenerateJWT(user.ID, user.Role, s.settings.JWTSecret, s.settings.JWTTTL)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

// Get loads a user by id
func (s *UserService) Get(ctx context.Context, id uint) (domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return domain.User{}, notFound(err, "user")
	}
	return user, nil
}

// UpdateProfile changes the user's display name
func (s *UserService) UpdateProfile(ctx context.Context, id uint, fullName string) (domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return domain.User{}, validationf("full name is required")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("full_name", fullName).Error; err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *UserService) ChangePassword(ctx context.Context, id uint, current, next string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if !validPassword(next) {
		return validationf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(&user).Update("password", string(hash)).Error
}

// Search finds users whose full name contains q, newest first
func (s *UserService) Search(ctx context.Context, q string, limit int) ([]domain.User, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}
	query := s.db.WithContext(ctx).Model(&domain.User{})
	if q = strings.TrimSpace(q); q != "" {
		query = query.Where(likeClause("full_name"), containsPattern(q))
	}
	var users []domain.User
	if err := query.Order("created_at desc, id desc").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// ResetWithdrawalTimes restores the user's withdrawal allowance
func (s *UserService) ResetWithdrawalTimes(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("withdrawal_times", s.settings.WithdrawalTimes).Error; err != nil {
		return domain.User{}, fmt.Errorf("reset withdrawal times: %w", err)
	}
	user.WithdrawalTimes = s.settings.WithdrawalTimes
	notifyBestEffort(ctx, s.db, id, domain.NotifyWithdrawal, "Withdrawal requests reset",
		fmt.Sprintf("You can request %d more withdrawals", s.settings.WithdrawalTimes))
	logrus.WithFields(logrus.Fields{"user_id": id, "withdrawal_times": s.settings.WithdrawalTimes}).Info("Withdrawal times reset")
	return user, nil
}

// Count returns the number of registered users
func (s *UserService) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// SellerProfile is the public page of a seller
type SellerProfile struct {
	Seller domain.PublicUser `json:"seller"`
	Notes  []domain.Note     `json:"notes"`
}

// SellerProfile returns the seller's public info and published notes
func (s *UserService) SellerProfile(ctx context.Context, id uint) (SellerProfile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return SellerProfile{}, err
	}
	out := SellerProfile{Seller: user.Public()}
	err = s.db.WithContext(ctx).Where("owner_id = ? AND is_published = ?", id, true).
		Order("created_at desc").Find(&out.Notes).Error
	if err != nil {
		return SellerProfile{}, fmt.Errorf("list seller notes: %w", err)
	}
	return out, nil
}
