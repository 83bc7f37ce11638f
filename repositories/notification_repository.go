package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pokernights/poker-tracker/models"
)

var (
	ErrNotificationNotFound        = errors.New("notification not found")
	ErrNotificationInvalidReceiver = errors.New("invalid notification receiver reference")
)

type NotificationRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, notifications []*models.Notification) error
	ListByReceiver(ctx context.Context, receiverID int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID int) (*models.Notification, error)
	MarkAllRead(ctx context.Context, receiverID int) (int, error)
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresNotificationRepository) CreateBatch(ctx context.Context, exec SQLExecutor, notifications []*models.Notification) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO notifications (sender_id, receiver_id, title, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at`

	for _, n := range notifications {
		err := executor.QueryRowContext(ctx, query, n.SenderID, n.ReceiverID, n.Title, n.Message).
			Scan(&n.ID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return fmt.Errorf("%w: user %d", ErrNotificationInvalidReceiver, n.ReceiverID)
			}
			return err
		}
	}
	return nil
}

// ListByReceiver возвращает уведомления пользователя от новых к старым.
func (r *postgresNotificationRepository) ListByReceiver(ctx context.Context, receiverID int) ([]models.Notification, error) {
	query := `
		SELECT
			n.id, n.sender_id, n.receiver_id, n.title, n.message, n.is_read, n.created_at,
			COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM notifications n
		LEFT JOIN users u ON u.id = n.sender_id
		WHERE n.receiver_id = $1
		ORDER BY n.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if scanErr := rows.Scan(
			&n.ID, &n.SenderID, &n.ReceiverID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt,
			&n.SenderUsername, &n.SenderFirstName, &n.SenderLastName,
		); scanErr != nil {
			return nil, scanErr
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, notificationID int) (*models.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1
		RETURNING id, sender_id, receiver_id, title, message, is_read, created_at`

	n := &models.Notification{}
	err := r.db.QueryRowContext(ctx, query, notificationID).
		Scan(&n.ID, &n.SenderID, &n.ReceiverID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *postgresNotificationRepository) MarkAllRead(ctx context.Context, receiverID int) (int, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE receiver_id = $1 AND is_read = FALSE`

	result, err := r.db.ExecContext(ctx, query, receiverID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
