package facility

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dashboardRecent = 5

type MaintenanceCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

type LeaveCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// MonthlyWork covers tickets completed since the start of the current month.
// AverageCompletionHours is measured from start of work, or assignment when
// the ticket was never marked in progress.
type MonthlyWork struct {
	MaintenanceCompleted   int     `json:"maintenance_completed"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
}

// WorkerDashboard is a worker's own ticket and leave overview. Pending
// tickets are the ones assigned but not started.
type WorkerDashboard struct {
	MaintenanceStats  MaintenanceCounts           `json:"maintenance_stats"`
	RecentMaintenance []models.MaintenanceRequest `json:"recent_maintenance"`
	LeaveStats        LeaveCounts                 `json:"leave_stats"`
	RecentLeaves      []models.LeaveRequest       `json:"recent_leaves"`
	Monthly           MonthlyWork                 `json:"monthly_stats"`
}

func (s *Service) WorkerDashboard(ctx context.Context, workerID primitive.ObjectID) (*WorkerDashboard, error) {
	if _, err := s.loadUser(ctx, workerID, models.RoleWorker); err != nil {
		return nil, err
	}
	tickets, err := s.maintenance.FindMaintenance(ctx, db.MaintenanceFilter{AssignedTo: &workerID})
	if err != nil {
		return nil, err
	}
	leaves, err := s.leaves.FindLeaves(ctx, db.LeaveFilter{WorkerID: &workerID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	d := &WorkerDashboard{}
	d.MaintenanceStats.Total = len(tickets)

	hours := decimal.Zero
	for _, t := range tickets {
		switch t.Status {
		case models.MaintenanceAssigned:
			d.MaintenanceStats.Pending++
		case models.MaintenanceInProgress:
			d.MaintenanceStats.InProgress++
		case models.MaintenanceCompleted:
			d.MaintenanceStats.Completed++
			if t.CompletedDate == nil || t.CompletedDate.Before(monthStart) {
				continue
			}
			d.Monthly.MaintenanceCompleted++
			start := t.StartedDate
			if start == nil {
				start = t.AssignedDate
			}
			if start != nil {
				hours = hours.Add(decimal.NewFromFloat(t.CompletedDate.Sub(*start).Hours()))
			}
		}
	}
	if n := d.Monthly.MaintenanceCompleted; n > 0 {
		d.Monthly.AverageCompletionHours = hours.Div(decimal.NewFromInt(int64(n))).Round(1).InexactFloat64()
	}

	d.LeaveStats.Total = len(leaves)
	for _, l := range leaves {
		switch l.Status {
		case models.LeavePending:
			d.LeaveStats.Pending++
		case models.LeaveApproved:
			d.LeaveStats.Approved++
		case models.LeaveRejected:
			d.LeaveStats.Rejected++
		}
	}

	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i].AssignedDate, tickets[j].AssignedDate
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].CreatedAt.After(leaves[j].CreatedAt) })
	d.RecentMaintenance = tickets[:min(dashboardRecent, len(tickets))]
	d.RecentLeaves = leaves[:min(dashboardRecent, len(leaves))]
	return d, nil
}
