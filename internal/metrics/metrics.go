package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportTotal — импорты писем по исходу (linked, created_lead, default_customer, invalid,
	// extraction_failed, manual_assignment_required, partial, failed).
	ImportTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_email_import_total",
		Help: "Email-to-ticket imports by outcome",
	}, []string{"outcome"})

	// ImportDuration — длительность импорта, включая вызов сервиса извлечения.
	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_email_import_duration_seconds",
		Help:    "Email import latency by outcome",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"outcome"})

	// OrphanedLeads — клиенты, созданные импортом, тикет которых не сохранился.
	OrphanedLeads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_orphaned_leads_total",
		Help: "Lead customers created by an import whose ticket could not be stored",
	})
)
