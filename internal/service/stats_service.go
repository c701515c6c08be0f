package service

import (
	"context"

	"github.com/psds-microservice/crm-service/internal/model"
	"gorm.io/gorm"
)

type CountGroup struct {
	Total int64            `json:"total"`
	By    map[string]int64 `json:"by"`
}

// DashboardStats — сводка для дашборда.
type DashboardStats struct {
	Customers         CountGroup `json:"customers"`
	TicketsByStatus   CountGroup `json:"ticketsByStatus"`
	TicketsByPriority CountGroup `json:"ticketsByPriority"`
}

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	customers, err := s.group(ctx, &model.Customer{}, "status")
	if err != nil {
		return nil, err
	}
	byStatus, err := s.group(ctx, &model.Ticket{}, "status")
	if err != nil {
		return nil, err
	}
	byPriority, err := s.group(ctx, &model.Ticket{}, "priority")
	if err != nil {
		return nil, err
	}
	return &DashboardStats{Customers: customers, TicketsByStatus: byStatus, TicketsByPriority: byPriority}, nil
}

func (s *StatsService) group(ctx context.Context, table interface{}, column string) (CountGroup, error) {
	var rows []struct {
		Value string
		N     int64
	}
	err := s.db.WithContext(ctx).Model(table).
		Select(column + " AS value, COUNT(*) AS n").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return CountGroup{}, err
	}
	out := CountGroup{By: make(map[string]int64, len(rows))}
	for _, r := range rows {
		out.By[r.Value] = r.N
		out.Total += r.N
	}
	return out, nil
}
