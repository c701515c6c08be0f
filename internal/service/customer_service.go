package service

import (
	"context"
	"errors"
	"strings"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/kafka"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/ttacon/libphonenumber"
	"gorm.io/gorm"
)

// CustomerInput — поля создания и обновления клиента. Status пустой → Aktiv.
type CustomerInput struct {
	Name    string               `json:"name" validate:"required"`
	Company string               `json:"company" validate:"required"`
	Email   string               `json:"email" validate:"required,email"`
	Phone   string               `json:"phone"`
	Status  model.CustomerStatus `json:"status"`
}

func (in *CustomerInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Status == "" {
		in.Status = model.CustomerStatusActive
	}
}

func (in *CustomerInput) validate() error {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return err
	}
	if !in.Status.Valid() {
		return errs.NewValidation("invalid value", "status")
	}
	return nil
}

type CustomerService struct {
	db          *gorm.DB
	events      kafka.EventProducer
	phoneRegion string
}

func NewCustomerService(db *gorm.DB, events kafka.EventProducer, phoneRegion string) *CustomerService {
	return &CustomerService{db: db, events: events, phoneRegion: phoneRegion}
}

// normalizePhone приводит номер к E.164, если он валиден для региона; иначе оставляет как введён.
func (s *CustomerService) normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, s.phoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*model.Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &model.Customer{
		ID:        newID("c"),
		Name:      in.Name,
		Company:   in.Company,
		Email:     in.Email,
		Phone:     s.normalizePhone(in.Phone),
		Status:    in.Status,
		CreatedAt: today(),
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	kafka.Async(s.events, kafka.EventCustomerCreated, c.ID, c)
	return c, nil
}

func (s *CustomerService) List(ctx context.Context) ([]model.Customer, error) {
	var items []model.Customer
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Update заменяет редактируемые поля целиком (PATCH с полным телом, как в REST-контракте).
func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput) (*model.Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{
		"name":    in.Name,
		"company": in.Company,
		"email":   in.Email,
		"phone":   s.normalizePhone(in.Phone),
		"status":  string(in.Status),
	}
	if err := s.db.WithContext(ctx).Model(c).Updates(changes).Error; err != nil {
		return nil, err
	}
	c, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	kafka.Async(s.events, kafka.EventCustomerUpdated, c.ID, c)
	return c, nil
}

// Delete удаляет клиента без тикетов; клиент с тикетами → errs.ErrCustomerHasTickets.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tickets int64
		if err := tx.Model(&model.Ticket{}).Where("customer_id = ?", id).Count(&tickets).Error; err != nil {
			return err
		}
		if tickets > 0 {
			return errs.ErrCustomerHasTickets
		}
		res := tx.Where("id = ?", id).Delete(&model.Customer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.ErrCustomerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	kafka.Async(s.events, kafka.EventCustomerDeleted, id, map[string]string{"id": id})
	return nil
}
