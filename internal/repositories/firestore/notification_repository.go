package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
)

const notificationsCollection = "notifications"

type notificationDocument struct {
	Audience  string     `firestore:"audience"`
	AccountID string     `firestore:"accountId,omitempty"`
	Message   string     `firestore:"message"`
	Link      string     `firestore:"link,omitempty"`
	Read      bool       `firestore:"read"`
	ReadAt    *time.Time `firestore:"readAt,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	base *pfirestore.BaseRepository[notificationDocument]
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}
	return &NotificationRepository{base: pfirestore.NewBaseRepository[notificationDocument](provider, notificationsCollection)}, nil
}

func (r *NotificationRepository) Insert(ctx context.Context, n domain.Notification) error {
	if r == nil || r.base == nil {
		return errors.New("notification repository not initialised")
	}
	return r.base.Create(ctx, strings.TrimSpace(n.ID), notificationDocument{
		Audience:  string(n.Audience),
		AccountID: n.AccountID,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    utcPtr(n.ReadAt),
		CreatedAt: n.CreatedAt.UTC(),
	})
}

func (r *NotificationRepository) FindByID(ctx context.Context, notificationID string) (domain.Notification, error) {
	if r == nil || r.base == nil {
		return domain.Notification{}, errors.New("notification repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(notificationID))
	if err != nil {
		return domain.Notification{}, err
	}
	return decodeNotification(doc), nil
}

// MarkRead flags the notification as read. A missing notification yields not-found.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, readAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("notification repository not initialised")
	}
	return r.base.Update(ctx, strings.TrimSpace(notificationID), []firestore.Update{
		{Path: "read", Value: true},
		{Path: "readAt", Value: readAt.UTC()},
	})
}

// ListVisible merges the account's own notifications with admin broadcasts when requested, newest first.
func (r *NotificationRepository) ListVisible(ctx context.Context, accountID string, includeAdmin bool) ([]domain.Notification, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("notification repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("audience", "==", string(domain.NotificationAudienceAccount)).
			Where("accountId", "==", strings.TrimSpace(accountID))
	})
	if err != nil {
		return nil, err
	}
	if includeAdmin {
		admin, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("audience", "==", string(domain.NotificationAudienceAdmins))
		})
		if err != nil {
			return nil, err
		}
		docs = append(docs, admin...)
	}

	out := make([]domain.Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeNotification(doc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func decodeNotification(doc pfirestore.Document[notificationDocument]) domain.Notification {
	return domain.Notification{
		ID:        doc.ID,
		Audience:  domain.NotificationAudience(doc.Data.Audience),
		AccountID: doc.Data.AccountID,
		Message:   doc.Data.Message,
		Link:      doc.Data.Link,
		Read:      doc.Data.Read,
		ReadAt:    utcPtr(doc.Data.ReadAt),
		CreatedAt: doc.Data.CreatedAt.UTC(),
	}
}
