package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arojasjg/milicon/notification-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/database"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.NotificationAggregate) error
	Update(ctx context.Context, notification *domain.NotificationAggregate) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.NotificationAggregate, error)
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL,
		user_id UUID NOT NULL,
		type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		recipient VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_order_id ON notifications (order_id, created_at DESC)`,
}

type PostgresNotificationRepository struct {
	db database.DBTX
}

func NewPostgresNotificationRepository(db database.DBTX) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, notification *domain.NotificationAggregate) error {
	query := `
		INSERT INTO notifications (
			id, order_id, user_id, type, status,
			subject, message, recipient, created_at, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.OrderID,
		notification.UserID,
		notification.Type,
		notification.Status,
		notification.Subject,
		notification.Message,
		notification.Recipient,
		notification.CreatedAt,
		notification.SentAt,
	)
	if err != nil {
		return fmt.Errorf("notification creation error: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) Update(ctx context.Context, notification *domain.NotificationAggregate) error {
	query := `
		UPDATE notifications
		SET status = $2, sent_at = $3
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, notification.ID, notification.Status, notification.SentAt); err != nil {
		return fmt.Errorf("notification update error: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.NotificationAggregate, error) {
	query := `
		SELECT id, order_id, user_id, type, status,
			   subject, message, recipient, created_at, sent_at
		FROM notifications
		WHERE order_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("notifications retrieval error: %w", err)
	}
	defer rows.Close()

	notifications := []*domain.NotificationAggregate{}
	for rows.Next() {
		notification := &domain.NotificationAggregate{Notification: &types.Notification{}}
		var sentAt sql.NullTime

		err := rows.Scan(
			&notification.ID,
			&notification.OrderID,
			&notification.UserID,
			&notification.Type,
			&notification.Status,
			&notification.Subject,
			&notification.Message,
			&notification.Recipient,
			&notification.CreatedAt,
			&sentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("notification scan error: %w", err)
		}

		if sentAt.Valid {
			notification.SentAt = &sentAt.Time
		}

		notifications = append(notifications, notification)
	}

	return notifications, rows.Err()
}
