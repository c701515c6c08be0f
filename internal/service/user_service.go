package service

import (
	"context"
	"errors"
	"strings"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserInput struct {
	Username string           `json:"username" validate:"required"`
	Password string           `json:"password" validate:"required,min=8"`
	Name     string           `json:"name" validate:"required"`
	Role     string           `json:"role"`
	Status   model.UserStatus `json:"status"`
}

// UserUpdate — пустой Password оставляет прежний хеш.
type UserUpdate struct {
	Name     string           `json:"name" validate:"required"`
	Role     string           `json:"role"`
	Status   model.UserStatus `json:"status"`
	Password string           `json:"password" validate:"omitempty,min=8"`
}

type UserService struct {
	db   *gorm.DB
	cost int
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, cost: bcrypt.DefaultCost}
}

// WithHashCost меняет стоимость bcrypt (тесты используют bcrypt.MinCost).
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func userDefaults(role string, status model.UserStatus) (string, model.UserStatus, error) {
	if role = strings.TrimSpace(role); role == "" {
		role = model.DefaultUserRole
	}
	if status == "" {
		status = model.UserStatusActive
	}
	if !status.Valid() {
		return "", "", errs.NewValidation("invalid value", "status")
	}
	return role, status, nil
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	role, status, err := userDefaults(in.Role, in.Status)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           newID("u"),
		Username:     in.Username,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         role,
		Status:       status,
		CreatedAt:    today(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("LOWER(username) = ?", strings.ToLower(u.Username)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrUsernameTaken
		}
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	var items []model.User
	if err := s.db.WithContext(ctx).Order("created_at").Order("username").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UserUpdate) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	role, status, err := userDefaults(in.Role, in.Status)
	if err != nil {
		return nil, err
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{"name": in.Name, "role": role, "status": string(status)}
	if in.Password != "" {
		hash, err := s.hash(in.Password)
		if err != nil {
			return nil, err
		}
		changes["password_hash"] = hash
	}
	if err := s.db.WithContext(ctx).Model(u).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete не удаляет последнего пользователя.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Count(&n).Error; err != nil {
			return err
		}
		var exists int64
		if err := tx.Model(&model.User{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return errs.ErrUserNotFound
		}
		if n <= 1 {
			return errs.ErrLastUser
		}
		return tx.Where("id = ?", id).Delete(&model.User{}).Error
	})
}

// Authenticate проверяет логин (без учёта регистра) и пароль по bcrypt-хешу.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	if u.Status != model.UserStatusActive {
		return nil, errs.ErrUserLocked
	}
	return &u, nil
}
