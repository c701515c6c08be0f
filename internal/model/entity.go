package model

// DateLayout — формат дат createdAt (календарная дата).
const DateLayout = "2006-01-02"

type CustomerStatus string

const (
	CustomerStatusLead     CustomerStatus = "Lead"
	CustomerStatusActive   CustomerStatus = "Aktiv"
	CustomerStatusInactive CustomerStatus = "Inaktiv"
)

func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerStatusLead, CustomerStatusActive, CustomerStatusInactive:
		return true
	}
	return false
}

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Offen"
	TicketStatusInProgress TicketStatus = "In Bearbeitung"
	TicketStatusResolved   TicketStatus = "Gelöst"
	TicketStatusClosed     TicketStatus = "Geschlossen"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Niedrig"
	TicketPriorityMedium TicketPriority = "Mittel"
	TicketPriorityHigh   TicketPriority = "Hoch"
	TicketPriorityUrgent TicketPriority = "Dringend"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

type Customer struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	Name      string         `gorm:"type:text;not null" json:"name"`
	Company   string         `gorm:"type:text;not null" json:"company"`
	Email     string         `gorm:"type:text;not null" json:"email"`
	Phone     string         `gorm:"type:text;not null" json:"phone"`
	Status    CustomerStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt string         `gorm:"column:created_at;type:text;not null;autoCreateTime:false" json:"createdAt"`
}

type Ticket struct {
	ID          string         `gorm:"primaryKey;type:text" json:"id"`
	CustomerID  string         `gorm:"column:customer_id;type:text;index:idx_tickets_customer;not null" json:"customerId"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Status      TicketStatus   `gorm:"type:text;not null" json:"status"`
	Priority    TicketPriority `gorm:"type:text;not null" json:"priority"`
	AssignedTo  *string        `gorm:"column:assigned_to;type:text" json:"assignedTo,omitempty"`
	CreatedAt   string         `gorm:"column:created_at;type:text;not null;autoCreateTime:false" json:"createdAt"`
}

type UserStatus string

const (
	UserStatusActive UserStatus = "Aktiv"
	UserStatusLocked UserStatus = "Gesperrt"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusLocked
}

const DefaultUserRole = "Support Agent"

type User struct {
	ID           string     `gorm:"primaryKey;type:text" json:"id"`
	Username     string     `gorm:"type:text;not null" json:"username"`
	PasswordHash string     `gorm:"column:password_hash;type:text;not null" json:"-"`
	Name         string     `gorm:"type:text;not null" json:"name"`
	Role         string     `gorm:"type:text;not null" json:"role"`
	Status       UserStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt    string     `gorm:"column:created_at;type:text;not null;autoCreateTime:false" json:"createdAt"`
}

// Setting — строка key/value таблицы settings, value хранит JSON.
type Setting struct {
	Key   string `gorm:"column:name;primaryKey;type:text" json:"key"`
	Value string `gorm:"type:text;not null" json:"value"`
}

type SupportSettings struct {
	SupportEmail      string `json:"supportEmail" validate:"omitempty,email"`
	SupportPhone      string `json:"supportPhone"`
	SLAHours          int    `json:"slaHours" validate:"gte=0"`
	BusinessHours     string `json:"businessHours"`
	EscalationContact string `json:"escalationContact"`
}

func DefaultSupportSettings() SupportSettings {
	return SupportSettings{
		SupportEmail:      "support@omnicrm.de",
		SupportPhone:      "+49 30 1234567",
		SLAHours:          24,
		BusinessHours:     "Mo-Fr 09:00-18:00",
		EscalationContact: "Leitung Support",
	}
}
