package facility

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MaintenanceInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
}

// CreateMaintenance opens a ticket for the tenant's current apartment.
func (s *Service) CreateMaintenance(ctx context.Context, tenantID primitive.ObjectID, in MaintenanceInput) (*models.MaintenanceRequest, error) {
	if in.Title == "" || in.Description == "" {
		return nil, apperr.Validation("title and description are required")
	}
	if !models.IsValidMaintenanceCategory(in.Category) {
		return nil, apperr.Validation("unknown category %q", in.Category)
	}
	if in.Priority == "" {
		in.Priority = "Medium"
	}
	if !models.IsValidMaintenancePriority(in.Priority) {
		return nil, apperr.Validation("unknown priority %q", in.Priority)
	}

	tenant, err := s.loadUser(ctx, tenantID, models.RoleTenant)
	if err != nil {
		return nil, err
	}
	aptID := tenant.ApartmentID()
	if aptID == nil {
		return nil, apperr.Validation("no apartment assigned to this tenant")
	}

	req := &models.MaintenanceRequest{
		TenantID:    tenant.ID,
		ApartmentID: *aptID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      models.MaintenancePending,
	}
	if err := s.maintenance.InsertMaintenance(ctx, req); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"ticket_id": req.ID.Hex(), "priority": req.Priority}).Info("Maintenance request created")
	return req, nil
}

func (s *Service) ListMaintenance(ctx context.Context, filter db.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	return s.maintenance.FindMaintenance(ctx, filter)
}

// AssignMaintenance hands an open ticket to an active worker.
func (s *Service) AssignMaintenance(ctx context.Context, id, workerID primitive.ObjectID, notes string) (*models.MaintenanceRequest, error) {
	var req *models.MaintenanceRequest
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		worker, err := s.loadUser(ctx, workerID, models.RoleWorker)
		if err != nil {
			return err
		}
		if !worker.IsActive {
			return apperr.Validation("worker %s is not active", worker.Name)
		}
		req, err = s.maintenance.FindMaintenanceByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != models.MaintenancePending && req.Status != models.MaintenanceAssigned {
			return apperr.InvalidTransition("maintenance request", string(req.Status), string(models.MaintenanceAssigned))
		}
		now := s.now()
		req.Status = models.MaintenanceAssigned
		req.AssignedTo = &worker.ID
		req.AssignedDate = &now
		if notes != "" {
			req.AdminNotes = notes
		}
		return s.maintenance.UpdateMaintenance(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

var maintenanceFlow = map[models.MaintenanceStatus][]models.MaintenanceStatus{
	models.MaintenancePending:    {models.MaintenanceCancelled},
	models.MaintenanceAssigned:   {models.MaintenanceInProgress, models.MaintenanceCancelled},
	models.MaintenanceInProgress: {models.MaintenanceCompleted, models.MaintenanceCancelled},
}

// UpdateMaintenanceStatus moves a ticket along its workflow. Workers may only
// touch tickets assigned to them and cannot cancel.
func (s *Service) UpdateMaintenanceStatus(ctx context.Context, id primitive.ObjectID, actor *models.User, status models.MaintenanceStatus, notes string) (*models.MaintenanceRequest, error) {
	var req *models.MaintenanceRequest
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.maintenance.FindMaintenanceByID(ctx, id)
		if err != nil {
			return err
		}
		if actor.Role == models.RoleWorker {
			if req.AssignedTo == nil || *req.AssignedTo != actor.ID {
				return apperr.Forbidden("ticket is not assigned to you")
			}
			if status == models.MaintenanceCancelled {
				return apperr.Forbidden("workers cannot cancel tickets")
			}
		}

		allowed := false
		for _, next := range maintenanceFlow[req.Status] {
			if next == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperr.InvalidTransition("maintenance request", string(req.Status), string(status))
		}

		now := s.now()
		switch status {
		case models.MaintenanceInProgress:
			req.StartedDate = &now
		case models.MaintenanceCompleted:
			req.CompletedDate = &now
			start := req.StartedDate
			if start == nil {
				start = req.AssignedDate
			}
			if start != nil {
				req.ActualCompletionTime = fmt.Sprintf("%.1f hours", now.Sub(*start).Hours())
			}
		}
		req.Status = status
		if notes != "" {
			req.WorkNotes = notes
		}
		return s.maintenance.UpdateMaintenance(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// SubmitFeedback records the tenant's rating on their completed ticket.
func (s *Service) SubmitFeedback(ctx context.Context, id, tenantID primitive.ObjectID, rating int, comment string) (*models.MaintenanceRequest, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	req, err := s.maintenance.FindMaintenanceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TenantID != tenantID {
		return nil, apperr.Forbidden("ticket belongs to another tenant")
	}
	if req.Status != models.MaintenanceCompleted {
		return nil, apperr.Validation("feedback is only accepted on completed tickets")
	}
	req.Feedback = &models.TenantFeedback{Rating: rating, Comment: comment, SubmittedAt: s.now()}
	if err := s.maintenance.UpdateMaintenance(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}
