package reconcile

import (
	"strings"

	"github.com/psds-microservice/crm-service/internal/model"
)

// Match возвращает первого клиента (в порядке списка), чей email совпадает с email без учёта регистра.
// Пустой email ни с чем не совпадает.
func Match(email string, customers []model.Customer) (model.Customer, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Customer{}, false
	}
	for _, c := range customers {
		if strings.EqualFold(strings.TrimSpace(c.Email), email) {
			return c, true
		}
	}
	return model.Customer{}, false
}
