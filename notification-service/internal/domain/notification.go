package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

var ErrMissingRecipient = errors.New("notification recipient is missing")

type NotificationAggregate struct {
	*types.Notification
}

func NewEmailNotification(orderID, userID uuid.UUID, recipient, subject, message string) (*NotificationAggregate, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, ErrMissingRecipient
	}

	return &NotificationAggregate{
		Notification: &types.Notification{
			ID:        uuid.New(),
			OrderID:   orderID,
			UserID:    userID,
			Type:      types.NotificationTypeEmail,
			Status:    types.NotificationStatusPending,
			Subject:   subject,
			Message:   message,
			Recipient: recipient,
			CreatedAt: time.Now().UTC(),
		},
	}, nil
}

func (n *NotificationAggregate) MarkAsSent() {
	n.Status = types.NotificationStatusSent
	now := time.Now().UTC()
	n.SentAt = &now
}

func (n *NotificationAggregate) MarkAsFailed() {
	n.Status = types.NotificationStatusFailed
}
