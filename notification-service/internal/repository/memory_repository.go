package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/arojasjg/milicon/notification-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]types.Notification
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{notifications: make(map[uuid.UUID]types.Notification)}
}

func (r *MemoryNotificationRepository) Create(ctx context.Context, notification *domain.NotificationAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[notification.ID] = *notification.Notification
	return nil
}

func (r *MemoryNotificationRepository) Update(ctx context.Context, notification *domain.NotificationAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.notifications[notification.ID]
	if !ok {
		return nil
	}
	stored.Status = notification.Status
	stored.SentAt = notification.SentAt
	r.notifications[notification.ID] = stored
	return nil
}

func (r *MemoryNotificationRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.NotificationAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notifications := []*domain.NotificationAggregate{}
	for _, n := range r.notifications {
		if n.OrderID != orderID {
			continue
		}
		n := n
		notifications = append(notifications, &domain.NotificationAggregate{Notification: &n})
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return notifications, nil
}
