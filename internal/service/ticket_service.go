package service

import (
	"context"
	"errors"
	"strings"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/kafka"
	"github.com/psds-microservice/crm-service/internal/model"
	"gorm.io/gorm"
)

// TicketInput — поля создания тикета. Пустые status/priority → Offen/Mittel.
type TicketInput struct {
	CustomerID  string               `json:"customerId" validate:"required"`
	Title       string               `json:"title" validate:"required"`
	Description string               `json:"description" validate:"required"`
	Status      model.TicketStatus   `json:"status"`
	Priority    model.TicketPriority `json:"priority"`
	AssignedTo  *string              `json:"assignedTo"`
}

// TicketUpdate — полная замена редактируемых полей; customerId не меняется.
type TicketUpdate struct {
	Title       string               `json:"title" validate:"required"`
	Description string               `json:"description" validate:"required"`
	Status      model.TicketStatus   `json:"status"`
	Priority    model.TicketPriority `json:"priority"`
	AssignedTo  *string              `json:"assignedTo"`
}

type TicketFilter struct {
	CustomerID string
	Status     model.TicketStatus
}

func checkEnums(status model.TicketStatus, priority model.TicketPriority) error {
	var bad []string
	if !status.Valid() {
		bad = append(bad, "status")
	}
	if !priority.Valid() {
		bad = append(bad, "priority")
	}
	if len(bad) > 0 {
		return errs.NewValidation("invalid value", bad...)
	}
	return nil
}

func defaults(status model.TicketStatus, priority model.TicketPriority) (model.TicketStatus, model.TicketPriority) {
	if status == "" {
		status = model.TicketStatusOpen
	}
	if priority == "" {
		priority = model.TicketPriorityMedium
	}
	return status, priority
}

type TicketService struct {
	db     *gorm.DB
	events kafka.EventProducer
}

func NewTicketService(db *gorm.DB, events kafka.EventProducer) *TicketService {
	return &TicketService{db: db, events: events}
}

// Create сохраняет тикет только если клиент customerId существует (проверка и вставка в одной транзакции).
func (s *TicketService) Create(ctx context.Context, in TicketInput) (*model.Ticket, error) {
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	in.Status, in.Priority = defaults(in.Status, in.Priority)
	if err := checkEnums(in.Status, in.Priority); err != nil {
		return nil, err
	}
	t := &model.Ticket{
		ID:          newID("t"),
		CustomerID:  in.CustomerID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssignedTo:  optional(in.AssignedTo),
		CreatedAt:   today(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Customer{}).Where("id = ?", t.CustomerID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errs.NewValidation("unknown customer", "customerId")
		}
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	kafka.Async(s.events, kafka.EventTicketCreated, t.ID, t)
	return t, nil
}

func (s *TicketService) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *TicketService) List(ctx context.Context, f TicketFilter) ([]model.Ticket, error) {
	var items []model.Ticket
	tx := s.db.WithContext(ctx).Model(&model.Ticket{})
	if f.CustomerID != "" {
		tx = tx.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", string(f.Status))
	}
	if err := tx.Order("created_at DESC").Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *TicketService) Update(ctx context.Context, id string, in TicketUpdate) (*model.Ticket, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	in.Status, in.Priority = defaults(in.Status, in.Priority)
	if err := checkEnums(in.Status, in.Priority); err != nil {
		return nil, err
	}
	changes := map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
		"status":      string(in.Status),
		"priority":    string(in.Priority),
		"assigned_to": optional(in.AssignedTo),
	}
	t, err := s.apply(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	kafka.Async(s.events, kafka.EventTicketUpdated, t.ID, t)
	return t, nil
}

// UpdateStatus идемпотентен: повторная установка того же статуса не ошибка.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) (*model.Ticket, error) {
	if status == "" {
		return nil, errs.NewValidation("required", "status")
	}
	if !status.Valid() {
		return nil, errs.NewValidation("invalid value", "status")
	}
	t, err := s.apply(ctx, id, map[string]interface{}{"status": string(status)})
	if err != nil {
		return nil, err
	}
	kafka.Async(s.events, kafka.EventTicketStatusChanged, t.ID, t)
	return t, nil
}

func (s *TicketService) apply(ctx context.Context, id string, changes map[string]interface{}) (*model.Ticket, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(t).Updates(changes).Error; err != nil {
		return nil, err
	}
	// Updates не обновляет структуру для nil-значений из map — перечитываем
	return s.GetByID(ctx, id)
}

func (s *TicketService) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Ticket{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrTicketNotFound
	}
	kafka.Async(s.events, kafka.EventTicketDeleted, id, map[string]string{"id": id})
	return nil
}
