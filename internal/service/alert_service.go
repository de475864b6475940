package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"airjump/internal/events"
	"airjump/internal/metrics"
	"airjump/internal/models"
	"airjump/internal/repository"
	"airjump/internal/validation"

	log "github.com/sirupsen/logrus"
)

var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrAlertResolved = errors.New("alert already resolved")
)

const (
	maxAlertTypeLength    = 50
	maxAlertMessageLength = 1000
)

// AlertService lets staff raise and resolve emergency alerts about children
type AlertService struct {
	alertRepo    *repository.AlertRepository
	childRepo    *repository.ChildRepository
	userRepo     *repository.UserRepository
	emailService *EmailService
	publisher    events.Publisher
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewAlertService creates a new alert service. emailService and publisher may be nil.
func NewAlertService(
	alertRepo *repository.AlertRepository,
	childRepo *repository.ChildRepository,
	userRepo *repository.UserRepository,
	emailService *EmailService,
	publisher events.Publisher,
	m *metrics.Metrics,
) *AlertService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &AlertService{
		alertRepo:    alertRepo,
		childRepo:    childRepo,
		userRepo:     userRepo,
		emailService: emailService,
		publisher:    publisher,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Raise stores an active alert and notifies the child's parent
func (s *AlertService) Raise(ctx context.Context, operatorID, childID int64, alertType, message string) (*models.EmergencyAlert, error) {
	alertType = strings.TrimSpace(alertType)
	if err := validation.ValidateRequired("type", alertType, maxAlertTypeLength); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if err := validation.ValidateRequired("message", message, maxAlertMessageLength); err != nil {
		return nil, err
	}

	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	alert := &models.EmergencyAlert{
		ChildID:    childID,
		ChildName:  child.Name,
		Type:       alertType,
		Message:    message,
		OperatorID: operatorID,
		Status:     models.AlertActive,
		CreatedAt:  s.now(),
	}
	if err := s.alertRepo.CreateAlert(alert); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AlertsRaised.Inc()
	}
	log.WithFields(log.Fields{"alert": alert.ID, "child": childID, "type": alertType}).Warn("Emergency alert raised")

	if err := s.publisher.Publish(events.AlertRaised, alert); err != nil {
		log.Warnf("Failed to publish %s: %v", events.AlertRaised, err)
	}
	s.notifyParent(ctx, child, alert)
	return alert, nil
}

// notifyParent emails the parent. Failures are logged since the alert is already stored.
func (s *AlertService) notifyParent(ctx context.Context, child *models.Child, alert *models.EmergencyAlert) {
	if !s.emailService.IsEnabled() {
		return
	}
	parent, err := s.userRepo.GetUserByID(child.ParentID)
	if err != nil || parent == nil {
		log.Warnf("Failed to load parent of child %d for alert %d: %v", child.ID, alert.ID, err)
		return
	}
	if err := s.emailService.SendEmergencyAlertEmail(ctx, parent.Email, parent.Name, child.Name, alert.Type, alert.Message); err != nil {
		log.Warnf("Failed to email alert %d to parent %d: %v", alert.ID, parent.ID, err)
	}
}

// Resolve closes an active alert
func (s *AlertService) Resolve(alertID int64) (*models.EmergencyAlert, error) {
	alert, err := s.alertRepo.GetAlertByID(alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrAlertNotFound
	}
	if alert.Status == models.AlertResolved {
		return nil, ErrAlertResolved
	}

	now := s.now()
	ok, err := s.alertRepo.ResolveAlert(alertID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlertResolved
	}

	alert.Status = models.AlertResolved
	alert.ResolvedAt = &now
	if err := s.publisher.Publish(events.AlertResolved, alert); err != nil {
		log.Warnf("Failed to publish %s: %v", events.AlertResolved, err)
	}
	return alert, nil
}

// ListActive returns unresolved alerts, newest first
func (s *AlertService) ListActive() ([]models.EmergencyAlert, error) {
	return s.alertRepo.GetActiveAlerts()
}

// ListForParent returns every alert about the parent's children
func (s *AlertService) ListForParent(parentID int64) ([]models.EmergencyAlert, error) {
	return s.alertRepo.GetParentAlerts(parentID)
}
