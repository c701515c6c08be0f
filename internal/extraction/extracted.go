package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/model"
)

// Opt — необязательное строковое поле с явным признаком наличия.
type Opt struct {
	value   string
	present bool
}

func Some(v string) Opt { return Opt{value: v, present: true} }

func None() Opt { return Opt{} }

// OptOf — Some для непустой (после TrimSpace) строки, иначе None.
func OptOf(v string) Opt {
	if v = strings.TrimSpace(v); v == "" {
		return None()
	}
	return Some(v)
}

func (o Opt) Get() (string, bool) { return o.value, o.present }

func (o Opt) Present() bool { return o.present }

// Or возвращает значение или def, если поле отсутствует.
func (o Opt) Or(def string) string {
	if o.present {
		return o.value
	}
	return def
}

func (o Opt) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Opt) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*o = None()
		return nil
	}
	*o = OptOf(*s)
	return nil
}

// Extracted — структурированный результат разбора письма. Живёт одну попытку импорта.
type Extracted struct {
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Priority      model.TicketPriority `json:"priority"`
	CustomerName  Opt                  `json:"customerName"`
	CustomerEmail Opt                  `json:"customerEmail"`
}

// payload — сырой JSON ответа модели.
type payload struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Priority      string  `json:"priority"`
	CustomerName  *string `json:"customerName"`
	CustomerEmail *string `json:"customerEmail"`
}

var priorityAliases = map[string]model.TicketPriority{
	"niedrig":  model.TicketPriorityLow,
	"low":      model.TicketPriorityLow,
	"mittel":   model.TicketPriorityMedium,
	"medium":   model.TicketPriorityMedium,
	"normal":   model.TicketPriorityMedium,
	"hoch":     model.TicketPriorityHigh,
	"high":     model.TicketPriorityHigh,
	"dringend": model.TicketPriorityUrgent,
	"urgent":   model.TicketPriorityUrgent,
}

// NormalizePriority сопоставляет метку (немецкую или английскую) с перечислением; неизвестное → Mittel.
func NormalizePriority(s string) model.TicketPriority {
	if p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p
	}
	return model.TicketPriorityMedium
}

// Parse разбирает ответ модели. Невалидный JSON или пустые title/description → errs.ErrExtractionFailed.
func Parse(raw string) (Extracted, error) {
	raw = strings.TrimSpace(raw)
	// некоторые модели оборачивают JSON в markdown-блок
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var p payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return Extracted{}, fmt.Errorf("%w: decode response: %v", errs.ErrExtractionFailed, err)
	}
	out := Extracted{
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Priority:    NormalizePriority(p.Priority),
	}
	if out.Title == "" || out.Description == "" {
		return Extracted{}, fmt.Errorf("%w: title and description are required", errs.ErrExtractionFailed)
	}
	if p.CustomerName != nil {
		out.CustomerName = OptOf(*p.CustomerName)
	}
	if p.CustomerEmail != nil {
		out.CustomerEmail = OptOf(*p.CustomerEmail)
	}
	return out, nil
}
