package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
)

const (
	metricsCachePattern = "metrics:*"
	metricsCacheTTL     = time.Minute
)

// invalidateMetrics drops every cached dashboard figure after client data changed
func invalidateMetrics(ctx context.Context, cache *RedisCache) {
	if err := cache.DeletePattern(ctx, metricsCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate metrics cache")
	}
}

// ClientTotals aggregates a set of clients. Active cases still have money owed.
type ClientTotals struct {
	TotalClients        int64   `json:"total_clients"`
	TotalContractAmount float64 `json:"total_contract_amount"`
	ActiveCases         int64   `json:"active_cases"`
}

type EmployeeStats struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	ClientTotals
}

type AdminMetrics struct {
	ClientTotals
	TotalUsers int             `json:"total_users"`
	Employees  []EmployeeStats `json:"employees"`
}

type MetricsService struct {
	db       *gorm.DB
	accounts AccountProvider
	roles    *RoleService
	cache    *RedisCache
}

func NewMetricsService(db *gorm.DB, accounts AccountProvider, roles *RoleService, cache *RedisCache) *MetricsService {
	return &MetricsService{db: db, accounts: accounts, roles: roles, cache: cache}
}

func clientTotals(db *gorm.DB) (ClientTotals, error) {
	var totals ClientTotals
	err := db.Model(&models.Client{}).
		Select("COUNT(*) AS total_clients, " +
			"COALESCE(SUM(contract_amount), 0) AS total_contract_amount, " +
			"COALESCE(SUM(CASE WHEN total_paid < contract_amount THEN 1 ELSE 0 END), 0) AS active_cases").
		Scan(&totals).Error
	return totals, err
}

// Dashboard aggregates the clients visible to the caller
func (s *MetricsService) Dashboard(ctx context.Context, session auth.Session) (ClientTotals, error) {
	key := "metrics:dashboard:" + session.UserID
	if session.IsAdmin() {
		key = "metrics:dashboard:all"
	}
	return GetOrSet(s.cache, ctx, key, metricsCacheTTL, func() (ClientTotals, error) {
		return clientTotals(s.db.WithContext(ctx).Scopes(visibleTo(session)))
	})
}

// Admin aggregates all clients plus per-employee figures. An employee whose figures cannot
// be computed is logged and left out.
func (s *MetricsService) Admin(ctx context.Context, session auth.Session) (*AdminMetrics, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	return GetOrSet(s.cache, ctx, "metrics:admin", metricsCacheTTL, func() (*AdminMetrics, error) {
		return s.computeAdmin(ctx)
	})
}

func (s *MetricsService) computeAdmin(ctx context.Context) (*AdminMetrics, error) {
	db := s.db.WithContext(ctx)

	totals, err := clientTotals(db)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		uids = append(uids, a.UID)
	}
	roles, err := s.roles.RolesOf(ctx, uids)
	if err != nil {
		return nil, err
	}
	names, err := profileNames(ctx, db, uids)
	if err != nil {
		return nil, err
	}

	metrics := &AdminMetrics{ClientTotals: totals, TotalUsers: len(accounts), Employees: []EmployeeStats{}}
	for _, a := range accounts {
		if roles[a.UID] != models.RoleEmployee {
			continue
		}
		stats, err := clientTotals(db.Where("employee_id = ?", a.UID))
		if err != nil {
			log.Error().Err(err).Str("employee_id", a.UID).Msg("failed to compute employee stats")
			continue
		}
		name := names[a.UID]
		if name == "" {
			name = a.DisplayName
		}
		metrics.Employees = append(metrics.Employees, EmployeeStats{
			UserID:       a.UID,
			FullName:     name,
			Email:        a.Email,
			ClientTotals: stats,
		})
	}
	return metrics, nil
}
