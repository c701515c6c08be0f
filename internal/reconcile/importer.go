package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/extraction"
	"github.com/psds-microservice/crm-service/internal/kafka"
	"github.com/psds-microservice/crm-service/internal/lock"
	"github.com/psds-microservice/crm-service/internal/metrics"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	// LeadCompany помечает клиентов, созданных импортом писем.
	LeadCompany = "Unbekannt (Auto-Import)"
	// UnknownSenderName — имя нового клиента, если отправитель не назвал себя.
	UnknownSenderName = "Unbekannter Absender"
)

var emailCheck = validator.New()

type Outcome string

const (
	OutcomeLinked          Outcome = "linked"
	OutcomeCreatedLead     Outcome = "created_lead"
	OutcomeDefaultCustomer Outcome = "default_customer"
)

// Исходы прерванного импорта (для ответа API и метрик).
const (
	OutcomeInvalid          = "invalid"
	OutcomeExtractionFailed = "extraction_failed"
	OutcomeManualAssignment = "manual_assignment_required"
	OutcomePartial          = "partial"
	OutcomeFailed           = "failed"
)

type CustomerStore interface {
	List(ctx context.Context) ([]model.Customer, error)
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	Create(ctx context.Context, in service.CustomerInput) (*model.Customer, error)
}

type TicketStore interface {
	Create(ctx context.Context, in service.TicketInput) (*model.Ticket, error)
}

// Deps — зависимости импортёра. Events может быть nil.
type Deps struct {
	Customers CustomerStore
	Tickets   TicketStore
	Extractor extraction.Extractor
	Locker    lock.Locker
	Events    kafka.EventProducer
	Log       logrus.FieldLogger
}

type Config struct {
	// DefaultCustomerID — резервный клиент для писем без распознанного отправителя; пустой → импорт прерывается.
	DefaultCustomerID string
	ExtractionTimeout time.Duration
}

// Result — итог успешного импорта.
type Result struct {
	Ticket           *model.Ticket   `json:"ticket"`
	Customer         *model.Customer `json:"customer"`
	CreatedCustomer  bool            `json:"createdCustomer"`
	Outcome          Outcome         `json:"outcome"`
	ManualAssignment bool            `json:"manualAssignment"`
}

// Preview — решение импорта без записи: кого бы привязали и создали бы клиента.
type Preview struct {
	Extracted        extraction.Extracted   `json:"extracted"`
	Outcome          Outcome                `json:"outcome"`
	Customer         *model.Customer        `json:"customer,omitempty"`
	NewCustomer      *service.CustomerInput `json:"newCustomer,omitempty"`
	ManualAssignment bool                   `json:"manualAssignment"`
}

// PartialImportError — клиент создан, тикет нет. Клиент остаётся в базе (без отката).
type PartialImportError struct {
	Customer *model.Customer
	Err      error
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("customer %s created but ticket failed: %v", e.Customer.ID, e.Err)
}

func (e *PartialImportError) Unwrap() error { return e.Err }

// OutcomeOf классифицирует ошибку импорта.
func OutcomeOf(err error) string {
	var partial *PartialImportError
	switch {
	case errors.As(err, &partial):
		return OutcomePartial
	case errs.IsValidation(err):
		return OutcomeInvalid
	case errors.Is(err, errs.ErrExtractionFailed):
		return OutcomeExtractionFailed
	case errors.Is(err, errs.ErrManualAssignmentRequired):
		return OutcomeManualAssignment
	default:
		return OutcomeFailed
	}
}

type Importer struct {
	Deps
	cfg Config
}

func NewImporter(deps Deps, cfg Config) *Importer {
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = 30 * time.Second
	}
	return &Importer{Deps: deps, cfg: cfg}
}

// Import: извлечение → сопоставление/создание клиента → тикет.
func (i *Importer) Import(ctx context.Context, email string) (*Result, error) {
	start := time.Now()
	ex, err := i.extract(ctx, email)
	var res *Result
	if err == nil {
		res, err = i.commit(ctx, ex)
	}
	i.observe(start, res, err)
	return res, err
}

// Commit выполняет импорт по уже извлечённым (и, возможно, отредактированным оператором) полям.
func (i *Importer) Commit(ctx context.Context, ex extraction.Extracted) (*Result, error) {
	start := time.Now()
	res, err := i.commit(ctx, ex)
	i.observe(start, res, err)
	return res, err
}

// Preview извлекает поля и сообщает решение, ничего не записывая.
func (i *Importer) Preview(ctx context.Context, email string) (*Preview, error) {
	ex, err := i.extract(ctx, email)
	if err != nil {
		return nil, err
	}
	p := &Preview{Extracted: ex}
	addr, ok := i.sender(ex)
	if !ok {
		// то же решение, что примет Commit: без резервного клиента импорт невозможен
		c, err := i.defaultCustomer(ctx)
		if err != nil {
			return nil, err
		}
		p.Outcome = OutcomeDefaultCustomer
		p.ManualAssignment = true
		p.Customer = c
		return p, nil
	}
	customers, err := i.Customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if c, found := Match(addr, customers); found {
		p.Outcome = OutcomeLinked
		p.Customer = &c
		return p, nil
	}
	in := leadInput(ex, addr)
	p.Outcome = OutcomeCreatedLead
	p.NewCustomer = &in
	return p, nil
}

func (i *Importer) extract(ctx context.Context, email string) (extraction.Extracted, error) {
	if strings.TrimSpace(email) == "" {
		return extraction.Extracted{}, errs.NewValidation("required", "text")
	}
	ctx, cancel := context.WithTimeout(ctx, i.cfg.ExtractionTimeout)
	defer cancel()
	ex, err := i.Extractor.Extract(ctx, email)
	if err != nil {
		if !errors.Is(err, errs.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %v", errs.ErrExtractionFailed, err)
		}
		return extraction.Extracted{}, err
	}
	return ex, nil
}

func leadInput(ex extraction.Extracted, email string) service.CustomerInput {
	return service.CustomerInput{
		Name:    ex.CustomerName.Or(UnknownSenderName),
		Company: LeadCompany,
		Email:   email,
		Status:  model.CustomerStatusLead,
	}
}

func (i *Importer) commit(ctx context.Context, ex extraction.Extracted) (*Result, error) {
	ex.Title = strings.TrimSpace(ex.Title)
	ex.Description = strings.TrimSpace(ex.Description)
	if !ex.Priority.Valid() {
		ex.Priority = extraction.NormalizePriority(string(ex.Priority))
	}
	var missing []string
	if ex.Title == "" {
		missing = append(missing, "title")
	}
	if ex.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, errs.NewValidation("required", missing...)
	}

	addr, ok := i.sender(ex)
	if !ok {
		return i.commitDefault(ctx, ex)
	}

	// match-or-create под блокировкой по адресу: параллельные импорты одного отправителя не плодят дубликаты
	unlock, err := i.Locker.Obtain(ctx, "import:"+strings.ToLower(addr))
	if err != nil {
		return nil, fmt.Errorf("lock sender: %w", err)
	}
	defer unlock()

	customers, err := i.Customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if c, found := Match(addr, customers); found {
		t, err := i.createTicket(ctx, ex, c.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Ticket: t, Customer: &c, Outcome: OutcomeLinked}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	created, err := i.Customers.Create(ctx, leadInput(ex, addr))
	if err != nil {
		return nil, fmt.Errorf("create lead customer: %w", err)
	}
	t, err := i.createTicket(ctx, ex, created.ID)
	if err != nil {
		i.Log.WithError(err).WithFields(logrus.Fields{
			"customer_id": created.ID,
			"email":       created.Email,
		}).Error("import: ticket failed after lead creation, customer left in place")
		metrics.OrphanedLeads.Inc()
		kafka.Async(i.Events, kafka.EventOrphanedLead, created.ID, map[string]interface{}{
			"customer": created,
			"error":    err.Error(),
		})
		return nil, &PartialImportError{Customer: created, Err: err}
	}
	return &Result{Ticket: t, Customer: created, CreatedCustomer: true, Outcome: OutcomeCreatedLead}, nil
}

// sender — адрес отправителя, если модель извлекла корректный email. Некорректный адрес считается отсутствующим.
func (i *Importer) sender(ex extraction.Extracted) (string, bool) {
	addr, ok := ex.CustomerEmail.Get()
	if !ok {
		return "", false
	}
	addr = strings.TrimSpace(addr)
	if err := emailCheck.Var(addr, "required,email"); err != nil {
		i.Log.WithField("email", addr).Warn("import: extracted sender email is malformed, treating sender as unknown")
		return "", false
	}
	return addr, true
}

// defaultCustomer — резервный клиент; не настроен или не существует → errs.ErrManualAssignmentRequired.
func (i *Importer) defaultCustomer(ctx context.Context) (*model.Customer, error) {
	if i.cfg.DefaultCustomerID == "" {
		return nil, errs.ErrManualAssignmentRequired
	}
	c, err := i.Customers.GetByID(ctx, i.cfg.DefaultCustomerID)
	if errors.Is(err, errs.ErrCustomerNotFound) {
		return nil, fmt.Errorf("%w: default customer %s does not exist", errs.ErrManualAssignmentRequired, i.cfg.DefaultCustomerID)
	}
	if err != nil {
		return nil, fmt.Errorf("default customer: %w", err)
	}
	return c, nil
}

func (i *Importer) commitDefault(ctx context.Context, ex extraction.Extracted) (*Result, error) {
	c, err := i.defaultCustomer(ctx)
	if err != nil {
		return nil, err
	}
	t, err := i.createTicket(ctx, ex, c.ID)
	if err != nil {
		return nil, err
	}
	i.Log.WithFields(logrus.Fields{
		"ticket_id":   t.ID,
		"customer_id": c.ID,
	}).Warn("import: sender not recognised, ticket needs manual assignment")
	return &Result{Ticket: t, Customer: c, Outcome: OutcomeDefaultCustomer, ManualAssignment: true}, nil
}

func (i *Importer) createTicket(ctx context.Context, ex extraction.Extracted, customerID string) (*model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := i.Tickets.Create(ctx, service.TicketInput{
		CustomerID:  customerID,
		Title:       ex.Title,
		Description: ex.Description,
		Status:      model.TicketStatusOpen,
		Priority:    ex.Priority,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return t, nil
}

func (i *Importer) observe(start time.Time, res *Result, err error) {
	outcome := OutcomeOf(err)
	if err == nil {
		outcome = string(res.Outcome)
	}
	metrics.ImportTotal.WithLabelValues(outcome).Inc()
	metrics.ImportDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil && outcome != OutcomePartial {
		i.Log.WithError(err).WithField("outcome", outcome).Warn("import: aborted")
	}
}
