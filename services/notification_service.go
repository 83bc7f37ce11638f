package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pokernights/poker-tracker/models"
	"github.com/pokernights/poker-tracker/repositories"
)

type SendNotificationInput struct {
	SenderID    int     `json:"senderId"`
	ReceiverIDs []int   `json:"receiverIds"`
	Title       *string `json:"title,omitempty"`
	Message     string  `json:"message"`
}

type NotificationService struct {
	db               *sql.DB
	notificationRepo repositories.NotificationRepository
}

func NewNotificationService(db *sql.DB, notificationRepo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{db: db, notificationRepo: notificationRepo}
}

// SendNotification рассылает одно сообщение нескольким получателям: все
// строки вставляются одной транзакцией.
func (s *NotificationService) SendNotification(ctx context.Context, input SendNotificationInput) ([]models.Notification, error) {
	if input.Message == "" {
		return nil, ErrMessageRequired
	}
	if len(input.ReceiverIDs) == 0 {
		return nil, ErrReceiversRequired
	}

	notifications := make([]*models.Notification, 0, len(input.ReceiverIDs))
	for _, receiverID := range input.ReceiverIDs {
		notifications = append(notifications, &models.Notification{
			SenderID:   input.SenderID,
			ReceiverID: receiverID,
			Title:      input.Title,
			Message:    input.Message,
		})
	}

	err := runInTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		return s.notificationRepo.CreateBatch(ctx, tx, notifications)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationInvalidReceiver) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, err)
		}
		return nil, err
	}

	created := make([]models.Notification, 0, len(notifications))
	for _, n := range notifications {
		created = append(created, *n)
	}
	return created, nil
}

func (s *NotificationService) GetUserNotifications(ctx context.Context, userID int) ([]models.Notification, error) {
	return s.notificationRepo.ListByReceiver(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID int) (*models.Notification, error) {
	n, err := s.notificationRepo.MarkRead(ctx, notificationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// MarkAllAsRead помечает все непрочитанные уведомления пользователя и
// возвращает число затронутых строк.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int) (int, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
