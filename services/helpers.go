package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pokernights/poker-tracker/models"
)

// isValidStatusTransition кодирует однонаправленный жизненный цикл игры:
// pending → active → finished. Повтор текущего статуса разрешён как no-op,
// откаты и пропуски этапов запрещены.
func isValidStatusTransition(current, next models.GameStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.GameStatus][]models.GameStatus{
		models.GameStatusPending:  {models.GameStatusActive},
		models.GameStatusActive:   {models.GameStatusFinished},
		models.GameStatusFinished: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// runInTx выполняет fn внутри транзакции: commit при успехе, rollback при
// любой ошибке. Соединение возвращается в пул в обоих случаях.
func runInTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
