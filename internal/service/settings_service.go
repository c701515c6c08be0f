package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/psds-microservice/crm-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const supportSettingsKey = "support"

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Support возвращает сохранённые настройки поддержки или значения по умолчанию.
func (s *SettingsService) Support(ctx context.Context) (model.SupportSettings, error) {
	var row model.Setting
	err := s.db.WithContext(ctx).First(&row, "name = ?", supportSettingsKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultSupportSettings(), nil
	}
	if err != nil {
		return model.SupportSettings{}, err
	}
	var out model.SupportSettings
	if err := json.Unmarshal([]byte(row.Value), &out); err != nil {
		return model.SupportSettings{}, fmt.Errorf("decode support settings: %w", err)
	}
	return out, nil
}

func (s *SettingsService) SaveSupport(ctx context.Context, in model.SupportSettings) (model.SupportSettings, error) {
	in.SupportEmail = strings.TrimSpace(in.SupportEmail)
	if err := validateStruct(&in); err != nil {
		return model.SupportSettings{}, err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return model.SupportSettings{}, err
	}
	row := model.Setting{Key: supportSettingsKey, Value: string(body)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return model.SupportSettings{}, err
	}
	return in, nil
}
