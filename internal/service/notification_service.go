package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/backuo/backuo-backend/internal/apperr"
	"github.com/backuo/backuo-backend/internal/models"
	"github.com/backuo/backuo-backend/internal/repository"
	"gorm.io/gorm"
)

type TargetKind string

const (
	TargetAll        TargetKind = "all"
	TargetUsers      TargetKind = "users"
	TargetByEmail    TargetKind = "by_email"
	TargetByUsername TargetKind = "by_username"
)

// NotificationTarget is the closed set of recipient selectors. The admin API
// historically accepted "all", a bare id array, or {type, value} objects;
// UnmarshalJSON folds all of those into the tagged form.
type NotificationTarget struct {
	Kind     TargetKind
	UserIDs  []uint
	Email    string
	Username string
}

func (t *NotificationTarget) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "all" {
			return fmt.Errorf("unknown target %q", s)
		}
		t.Kind = TargetAll
		return nil
	}

	var ids []uint
	if err := json.Unmarshal(data, &ids); err == nil {
		t.Kind = TargetUsers
		for _, id := range ids {
			if id != 0 {
				t.UserIDs = append(t.UserIDs, id)
			}
		}
		return nil
	}

	var obj struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch obj.Type {
	case "byEmail":
		t.Kind = TargetByEmail
		t.Email = obj.Value
	case "byUsername":
		t.Kind = TargetByUsername
		t.Username = obj.Value
	default:
		return fmt.Errorf("unknown target type %q", obj.Type)
	}
	if obj.Value == "" {
		return errors.New("target value is required")
	}
	return nil
}

type NotificationService struct {
	notificationRepo repository.NotificationRepositoryInterface
	userRepo         repository.UserRepositoryInterface
}

func NewNotificationService(notificationRepo repository.NotificationRepositoryInterface, userRepo repository.UserRepositoryInterface) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo, userRepo: userRepo}
}

// ResolveTarget maps a target to the concrete recipient id set with a single
// lookup. An email/username that matches nobody resolves to an empty set, not
// an error, mirroring the idempotent "inserted: 0" admin contract.
func (s *NotificationService) ResolveTarget(target NotificationTarget) ([]uint, error) {
	switch target.Kind {
	case TargetAll:
		return s.userRepo.AllIDs()
	case TargetUsers:
		return target.UserIDs, nil
	case TargetByEmail:
		user, err := s.userRepo.FindByEmail(target.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []uint{user.ID}, nil
	case TargetByUsername:
		user, err := s.userRepo.FindByUsername(target.Username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []uint{user.ID}, nil
	default:
		return nil, apperr.Validation("invalid_target", "unknown notification target")
	}
}

// Send persists one notification per resolved recipient and returns the
// stored records for the caller to push. Persisting is the durable half;
// pushing is best-effort and happens after this returns.
func (s *NotificationService) Send(target NotificationTarget, title, body string) ([]*models.Notification, error) {
	if title == "" {
		return nil, apperr.Validation("missing_title", "title is required")
	}

	ids, err := s.ResolveTarget(target)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	notifications := make([]*models.Notification, 0, len(ids))
	for _, id := range ids {
		notifications = append(notifications, &models.Notification{
			UserID: id,
			Title:  title,
			Body:   body,
		})
	}
	if err := s.notificationRepo.CreateBatch(notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *NotificationService) List(userID uint) ([]models.Notification, error) {
	return s.notificationRepo.ListForUser(userID, 100)
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.notificationRepo.MarkAllRead(userID)
}

func (s *NotificationService) ClearAll(userID uint) error {
	return s.notificationRepo.ClearAll(userID)
}
