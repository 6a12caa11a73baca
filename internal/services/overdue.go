package services

import (
	"context"
	"sort"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/schedule"
)

// OverdueClient is one contract that is behind on payments
type OverdueClient struct {
	ClientID    uint    `json:"client_id"`
	FullName    string  `json:"full_name"`
	Outstanding float64 `json:"outstanding"`
	TotalPaid   float64 `json:"total_paid"`
}

// OverdueByAssignee groups overdue contracts by the employee responsible for them: the
// assigned employee, or the owner when nobody is assigned. It runs without a session and is
// meant for background jobs.
func (s *ClientService) OverdueByAssignee(ctx context.Context) (map[string][]OverdueClient, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Where("total_paid < contract_amount").Order("full_name").Find(&clients).Error; err != nil {
		return nil, err
	}

	now := s.now()
	grouped := make(map[string][]OverdueClient)
	for _, c := range clients {
		if !schedule.IsOverdue(contractState(c), now) {
			continue
		}
		assignee := c.EmployeeID
		if assignee == "" {
			assignee = c.OwnerID
		}
		if assignee == "" {
			continue
		}
		progress := schedule.ComputeProgress(c.ContractAmount, c.TotalPaid, c.DepositPaid, c.DepositTarget)
		grouped[assignee] = append(grouped[assignee], OverdueClient{
			ClientID:    c.ID,
			FullName:    c.FullName,
			Outstanding: progress.Outstanding,
			TotalPaid:   c.TotalPaid,
		})
	}

	for _, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].FullName < list[j].FullName })
	}
	return grouped, nil
}
