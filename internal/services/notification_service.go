package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/repositories"
)

const maxNotificationMessageLength = 500

// NotificationServiceDeps wires the notification repository.
type NotificationServiceDeps struct {
	Repository  repositories.NotificationRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type notificationService struct {
	repo  repositories.NotificationRepository
	now   func() time.Time
	newID func() string
}

// NewNotificationService constructs the in-app notification service.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Repository == nil {
		return nil, errors.New("notification service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &notificationService{
		repo:  deps.Repository,
		now:   func() time.Time { return clock().UTC() },
		newID: idGen,
	}, nil
}

func (s *notificationService) Notify(ctx context.Context, cmd NotifyCommand) (Notification, error) {
	message := strings.TrimSpace(cmd.Message)
	if message == "" {
		return Notification{}, validationError("message is required")
	}
	if len([]rune(message)) > maxNotificationMessageLength {
		message = string([]rune(message)[:maxNotificationMessageLength])
	}

	n := Notification{
		ID:        "ntf_" + s.newID(),
		Audience:  cmd.Audience,
		Message:   message,
		Link:      strings.TrimSpace(cmd.Link),
		CreatedAt: s.now(),
	}
	switch cmd.Audience {
	case domain.NotificationAudienceAdmins:
	case domain.NotificationAudienceAccount:
		n.AccountID = strings.TrimSpace(cmd.AccountID)
		if n.AccountID == "" {
			return Notification{}, validationError("account id is required for account notifications")
		}
	default:
		return Notification{}, validationError("unknown audience %q", cmd.Audience)
	}

	if err := s.repo.Insert(ctx, n); err != nil {
		return Notification{}, mapRepositoryError(err)
	}
	return n, nil
}

// List returns the actor's notifications; administrators also see admin broadcasts.
func (s *notificationService) List(ctx context.Context, actor Actor) ([]Notification, error) {
	accountID := strings.TrimSpace(actor.AccountID)
	if accountID == "" {
		return nil, validationError("account id is required")
	}
	items, err := s.repo.ListVisible(ctx, accountID, actor.IsAdmin)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if items == nil {
		items = []Notification{}
	}
	return items, nil
}

// MarkRead flags a notification as read. Repeating the call leaves the first read time in place.
func (s *notificationService) MarkRead(ctx context.Context, cmd MarkNotificationReadCommand) (Notification, error) {
	id := strings.TrimSpace(cmd.NotificationID)
	if id == "" {
		return Notification{}, validationError("notification id is required")
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Notification{}, mapRepositoryError(err)
	}
	if !n.IsFor(strings.TrimSpace(cmd.Actor.AccountID), cmd.Actor.IsAdmin) {
		return Notification{}, fmt.Errorf("%w: notification is addressed to someone else", ErrAuthorization)
	}
	if n.Read {
		return n, nil
	}

	now := s.now()
	if err := s.repo.MarkRead(ctx, id, now); err != nil {
		return Notification{}, mapRepositoryError(err)
	}
	n.Read = true
	n.ReadAt = &now
	return n, nil
}
