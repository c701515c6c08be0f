package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/psds-microservice/crm-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func strp(s string) *string { return &s }

func newCustomer(t *testing.T, svc *service.CustomerService, email string) *model.Customer {
	t.Helper()
	c, err := svc.Create(context.Background(), service.CustomerInput{
		Name: "Max Mustermann", Company: "Muster AG", Email: email,
	})
	require.NoError(t, err)
	return c
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var v *errs.ValidationError
	require.True(t, errors.As(err, &v), "expected ValidationError, got %v", err)
	return v.Fields
}

func TestCustomerService_CreateDefaults(t *testing.T) {
	svc := service.NewCustomerService(testutil.DB(t), nil, "DE")
	c := newCustomer(t, svc, "max@muster.de")

	assert.Regexp(t, `^c-[0-9a-f-]{36}$`, c.ID)
	assert.Equal(t, model.CustomerStatusActive, c.Status)
	assert.Equal(t, time.Now().UTC().Format(model.DateLayout), c.CreatedAt)
	assert.Equal(t, "", c.Phone)
}

func TestCustomerService_CreateValidation(t *testing.T) {
	svc := service.NewCustomerService(testutil.DB(t), nil, "DE")
	ctx := context.Background()

	_, err := svc.Create(ctx, service.CustomerInput{Name: "  ", Email: "x@y.de"})
	assert.ElementsMatch(t, []string{"name", "company"}, validationFields(t, err))

	_, err = svc.Create(ctx, service.CustomerInput{Name: "A", Company: "B", Email: "not-an-email"})
	assert.Equal(t, []string{"email"}, validationFields(t, err))

	_, err = svc.Create(ctx, service.CustomerInput{Name: "A", Company: "B", Email: "a@b.de", Status: "Kunde"})
	assert.Equal(t, []string{"status"}, validationFields(t, err))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCustomerService_PhoneNormalisation(t *testing.T) {
	svc := service.NewCustomerService(testutil.DB(t), nil, "DE")
	ctx := context.Background()

	c, err := svc.Create(ctx, service.CustomerInput{Name: "A", Company: "B", Email: "a@b.de", Phone: "+1 650-253-0000"})
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", c.Phone)

	c, err = svc.Create(ctx, service.CustomerInput{Name: "A", Company: "B", Email: "c@b.de", Phone: "auf Anfrage"})
	require.NoError(t, err)
	assert.Equal(t, "auf Anfrage", c.Phone)
}

func TestCustomerService_UpdateAndNotFound(t *testing.T) {
	svc := service.NewCustomerService(testutil.DB(t), nil, "DE")
	ctx := context.Background()
	c := newCustomer(t, svc, "max@muster.de")

	up, err := svc.Update(ctx, c.ID, service.CustomerInput{
		Name: "Max M.", Company: "Muster GmbH", Email: "max@muster.de", Status: model.CustomerStatusInactive,
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, up.ID)
	assert.Equal(t, "Muster GmbH", up.Company)
	assert.Equal(t, model.CustomerStatusInactive, up.Status)
	assert.Equal(t, c.CreatedAt, up.CreatedAt)

	_, err = svc.Update(ctx, "c-missing", service.CustomerInput{Name: "A", Company: "B", Email: "a@b.de"})
	assert.ErrorIs(t, err, errs.ErrCustomerNotFound)

	_, err = svc.GetByID(ctx, "c-missing")
	assert.ErrorIs(t, err, errs.ErrCustomerNotFound)
}

func TestCustomerService_DeleteGuardsTickets(t *testing.T) {
	db := testutil.DB(t)
	customers := service.NewCustomerService(db, nil, "DE")
	tickets := service.NewTicketService(db, nil)
	ctx := context.Background()
	c := newCustomer(t, customers, "max@muster.de")

	tk, err := tickets.Create(ctx, service.TicketInput{CustomerID: c.ID, Title: "Login", Description: "geht nicht"})
	require.NoError(t, err)

	assert.ErrorIs(t, customers.Delete(ctx, c.ID), errs.ErrCustomerHasTickets)
	require.NoError(t, tickets.Delete(ctx, tk.ID))
	require.NoError(t, customers.Delete(ctx, c.ID))
	assert.ErrorIs(t, customers.Delete(ctx, c.ID), errs.ErrCustomerNotFound)
}

func TestTicketService_RoundTrip(t *testing.T) {
	db := testutil.DB(t)
	customers := service.NewCustomerService(db, nil, "DE")
	tickets := service.NewTicketService(db, nil)
	ctx := context.Background()
	c := newCustomer(t, customers, "max@muster.de")

	created, err := tickets.Create(ctx, service.TicketInput{
		CustomerID:  c.ID,
		Title:       "Rechnung fehlt",
		Description: "Keine Rechnung für Januar",
		Status:      model.TicketStatusInProgress,
		Priority:    model.TicketPriorityHigh,
		AssignedTo:  strp("Anna"),
	})
	require.NoError(t, err)

	list, err := tickets.List(ctx, service.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, c.ID, got.CustomerID)
	assert.Equal(t, "Rechnung fehlt", got.Title)
	assert.Equal(t, "Keine Rechnung für Januar", got.Description)
	assert.Equal(t, model.TicketStatusInProgress, got.Status)
	assert.Equal(t, model.TicketPriorityHigh, got.Priority)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "Anna", *got.AssignedTo)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestTicketService_CreateValidation(t *testing.T) {
	db := testutil.DB(t)
	tickets := service.NewTicketService(db, nil)
	ctx := context.Background()

	_, err := tickets.Create(ctx, service.TicketInput{Title: "x"})
	assert.ElementsMatch(t, []string{"customerId", "description"}, validationFields(t, err))

	_, err = tickets.Create(ctx, service.TicketInput{CustomerID: "c-ghost", Title: "x", Description: "y"})
	assert.Equal(t, []string{"customerId"}, validationFields(t, err))

	c := newCustomer(t, service.NewCustomerService(db, nil, "DE"), "a@b.de")
	_, err = tickets.Create(ctx, service.TicketInput{CustomerID: c.ID, Title: "x", Description: "y", Priority: "Sofort"})
	assert.Equal(t, []string{"priority"}, validationFields(t, err))

	tk, err := tickets.Create(ctx, service.TicketInput{CustomerID: c.ID, Title: "x", Description: "y", AssignedTo: strp(" ")})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusOpen, tk.Status)
	assert.Equal(t, model.TicketPriorityMedium, tk.Priority)
	assert.Nil(t, tk.AssignedTo)
}

func TestTicketService_UpdateStatusIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tickets := service.NewTicketService(db, nil)
	ctx := context.Background()
	c := newCustomer(t, service.NewCustomerService(db, nil, "DE"), "a@b.de")
	tk, err := tickets.Create(ctx, service.TicketInput{CustomerID: c.ID, Title: "x", Description: "y"})
	require.NoError(t, err)

	first, err := tickets.UpdateStatus(ctx, tk.ID, model.TicketStatusResolved)
	require.NoError(t, err)
	second, err := tickets.UpdateStatus(ctx, tk.ID, model.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, model.TicketStatusResolved, second.Status)

	_, err = tickets.UpdateStatus(ctx, "t-missing", model.TicketStatusResolved)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
	_, err = tickets.UpdateStatus(ctx, tk.ID, "")
	assert.Equal(t, []string{"status"}, validationFields(t, err))
}

func TestTicketService_UpdateAndFilter(t *testing.T) {
	db := testutil.DB(t)
	customers := service.NewCustomerService(db, nil, "DE")
	tickets := service.NewTicketService(db, nil)
	ctx := context.Background()
	a := newCustomer(t, customers, "a@b.de")
	b := newCustomer(t, customers, "b@b.de")

	ta, err := tickets.Create(ctx, service.TicketInput{CustomerID: a.ID, Title: "a", Description: "a", AssignedTo: strp("Tom")})
	require.NoError(t, err)
	_, err = tickets.Create(ctx, service.TicketInput{CustomerID: b.ID, Title: "b", Description: "b"})
	require.NoError(t, err)

	up, err := tickets.Update(ctx, ta.ID, service.TicketUpdate{Title: "a2", Description: "a2", Priority: model.TicketPriorityUrgent})
	require.NoError(t, err)
	assert.Equal(t, "a2", up.Title)
	assert.Equal(t, model.TicketPriorityUrgent, up.Priority)
	assert.Equal(t, model.TicketStatusOpen, up.Status)
	assert.Nil(t, up.AssignedTo, "assignee cleared when omitted")
	assert.Equal(t, a.ID, up.CustomerID)

	onlyA, err := tickets.List(ctx, service.TicketFilter{CustomerID: a.ID})
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, ta.ID, onlyA[0].ID)

	urgent, err := tickets.List(ctx, service.TicketFilter{Status: model.TicketStatusClosed})
	require.NoError(t, err)
	assert.Empty(t, urgent)

	_, err = tickets.Update(ctx, "t-missing", service.TicketUpdate{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
	assert.ErrorIs(t, tickets.Delete(ctx, "t-missing"), errs.ErrTicketNotFound)
}

func TestUserService_Lifecycle(t *testing.T) {
	users := service.NewUserService(testutil.DB(t)).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	admin, err := users.Create(ctx, service.UserInput{Username: "admin", Password: "admin123", Name: "Admin", Role: "Administrator"})
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, admin.Status)
	assert.NotEqual(t, "admin123", admin.PasswordHash)

	_, err = users.Create(ctx, service.UserInput{Username: "ADMIN", Password: "whatever1", Name: "Dup"})
	assert.ErrorIs(t, err, errs.ErrUsernameTaken)

	_, err = users.Create(ctx, service.UserInput{Username: "kurz", Password: "123", Name: "K"})
	assert.Equal(t, []string{"password"}, validationFields(t, err))

	got, err := users.Authenticate(ctx, "Admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = users.Authenticate(ctx, "admin", "wrong-pass")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody", "admin123")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	assert.ErrorIs(t, users.Delete(ctx, admin.ID), errs.ErrLastUser)

	agent, err := users.Create(ctx, service.UserInput{Username: "anna", Password: "geheim123", Name: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUserRole, agent.Role)

	_, err = users.Update(ctx, agent.ID, service.UserUpdate{Name: "Anna", Status: model.UserStatusLocked})
	require.NoError(t, err)
	_, err = users.Authenticate(ctx, "anna", "geheim123")
	assert.ErrorIs(t, err, errs.ErrUserLocked)

	_, err = users.Update(ctx, agent.ID, service.UserUpdate{Name: "Anna", Password: "neuesPass1"})
	require.NoError(t, err)
	_, err = users.Authenticate(ctx, "anna", "neuesPass1")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, agent.ID))
	assert.ErrorIs(t, users.Delete(ctx, agent.ID), errs.ErrUserNotFound)
}

func TestSettingsService_DefaultsAndSave(t *testing.T) {
	svc := service.NewSettingsService(testutil.DB(t))
	ctx := context.Background()

	got, err := svc.Support(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSupportSettings(), got)

	want := model.SupportSettings{SupportEmail: "help@crm.de", SLAHours: 8, BusinessHours: "24/7"}
	_, err = svc.SaveSupport(ctx, want)
	require.NoError(t, err)
	want.SLAHours = 4
	_, err = svc.SaveSupport(ctx, want)
	require.NoError(t, err)

	got, err = svc.Support(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.SaveSupport(ctx, model.SupportSettings{SupportEmail: "kaputt", SLAHours: -1})
	assert.ElementsMatch(t, []string{"supportEmail", "slaHours"}, validationFields(t, err))
}

func TestStatsService_Dashboard(t *testing.T) {
	db := testutil.DB(t)
	customers := service.NewCustomerService(db, nil, "DE")
	tickets := service.NewTicketService(db, nil)
	ctx := context.Background()
	a := newCustomer(t, customers, "a@b.de")
	_, err := customers.Create(ctx, service.CustomerInput{Name: "L", Company: "L", Email: "l@b.de", Status: model.CustomerStatusLead})
	require.NoError(t, err)
	for _, p := range []model.TicketPriority{model.TicketPriorityHigh, model.TicketPriorityHigh, model.TicketPriorityLow} {
		_, err := tickets.Create(ctx, service.TicketInput{CustomerID: a.ID, Title: "x", Description: "y", Priority: p})
		require.NoError(t, err)
	}

	stats, err := service.NewStatsService(db).Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Customers.Total)
	assert.Equal(t, int64(1), stats.Customers.By["Lead"])
	assert.Equal(t, int64(3), stats.TicketsByStatus.By["Offen"])
	assert.Equal(t, int64(2), stats.TicketsByPriority.By["Hoch"])
	assert.Equal(t, int64(3), stats.TicketsByPriority.Total)
}
